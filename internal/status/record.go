package status

import (
	"slices"
	"time"
)

// HistoryRecord is one audit entry. Records are never mutated after creation.
type HistoryRecord struct {
	Seq       uint64
	CreatedAt time.Time
	Severity  Severity
	Category  string
	Text      string
	// Args holds the textual form of every raw argument.
	Args []string
}

func (r HistoryRecord) clone() HistoryRecord {
	r.Args = slices.Clone(r.Args)
	return r
}

// SlotMessage is the latest message posted to a slot. A zero ExpiresAt marks
// a persistent message.
type SlotMessage struct {
	Slot      string
	Severity  Severity
	Text      string
	Args      []string
	PostedAt  time.Time
	ExpiresAt time.Time
	Seq       uint64
}

// Transient reports whether the message carries an expiry.
func (m SlotMessage) Transient() bool { return !m.ExpiresAt.IsZero() }

// Expired reports whether a transient message is no longer eligible at now.
func (m SlotMessage) Expired(now time.Time) bool {
	return m.Transient() && !now.Before(m.ExpiresAt)
}

// newerThan orders by PostedAt, then by write sequence.
func (m SlotMessage) newerThan(o SlotMessage) bool {
	if !m.PostedAt.Equal(o.PostedAt) {
		return m.PostedAt.After(o.PostedAt)
	}
	return m.Seq > o.Seq
}

func (m SlotMessage) clone() SlotMessage {
	m.Args = slices.Clone(m.Args)
	return m
}
