package status

import (
	"encoding/json"
	"io"
	"time"
)

// ExportEntry is the JSON shape of one exported history record.
type ExportEntry struct {
	Time     string   `json:"time"`
	Seq      uint64   `json:"seq"`
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Args     []string `json:"args"`
}

// NewExportEntry converts a record; Time is RFC 3339 in UTC with nanoseconds.
func NewExportEntry(r HistoryRecord) ExportEntry {
	args := r.Args
	if args == nil {
		args = []string{}
	}
	return ExportEntry{
		Time:     r.CreatedAt.UTC().Format(time.RFC3339Nano),
		Seq:      r.Seq,
		Severity: r.Severity,
		Category: r.Category,
		Message:  r.Text,
		Args:     args,
	}
}

func exportEntries(records []HistoryRecord) []ExportEntry {
	out := make([]ExportEntry, len(records))
	for i, r := range records {
		out[i] = NewExportEntry(r)
	}
	return out
}

// ExportHistory serializes the current history as an indented JSON array.
func (l *Log) ExportHistory() []byte {
	b, err := json.MarshalIndent(exportEntries(l.History()), "", "  ")
	if err != nil {
		// Entries only hold strings and integers.
		return []byte("[]")
	}
	return b
}

// WriteHistory streams the history as JSON Lines, one ExportEntry per line.
func (l *Log) WriteHistory(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, e := range exportEntries(l.History()) {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
