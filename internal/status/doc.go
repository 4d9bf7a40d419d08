// Package status records a bounded audit history of leveled log calls and
// derives the single status message a status bar should show.
//
// One Log instance is created per session and passed by reference to every
// component that reports status. Each leveled call writes into a named slot
// (one slot per UI region) and appends a HistoryRecord whose category is the
// slot key. Slots hold either a persistent message or a transient "flash"
// that stops being eligible for display at its expiry.
//
// Slot and category keys are opaque strings. Applications should keep a
// small fixed vocabulary, typically one key per region of the surface, e.g.:
//
//	"request"   current request/response state
//	"detector"  content classification results
//	"config"    configuration load/save feedback
//	"action"    short-lived feedback for user actions (flashes)
//
// Visibility rules:
//   - expired transients are ignored (they stay in the store until cleared)
//   - any live transient beats every persistent message; the most recent wins
//   - otherwise the highest severity wins, most recent within a severity
//
// A single timer is kept armed for the earliest future expiry so subscribers
// hear about a flash disappearing at the moment it happens.
package status
