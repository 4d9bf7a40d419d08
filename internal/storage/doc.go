// Package storage persists archived status history.
//
// Drivers:
//   - "file": JSON Lines, one row per history record
//   - "sqlite": SQLite database file (build tag sqlite)
package storage
