package storage

import (
	"errors"
	"time"

	"statusbar/internal/status"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrClosed   = errors.New("storage closed")
)

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Row is one archived history record. Its JSON shape is the export entry
// plus the session that produced it.
type Row struct {
	Session string `json:"session"`
	status.ExportEntry
}

func rowsFor(session string, records []status.HistoryRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{Session: session, ExportEntry: status.NewExportEntry(r)})
	}
	return rows
}
