package status

import (
	"sort"
	"time"
)

// slotStore maps a slot key to its latest message. Expired transients are
// kept until cleared, pruned, or evicted by the max bound.
type slotStore struct {
	msgs map[string]SlotMessage
	max  int // <= 0 means unbounded
}

func newSlotStore(limit int) *slotStore {
	return &slotStore{msgs: map[string]SlotMessage{}, max: limit}
}

func (s *slotStore) get(slot string) (SlotMessage, bool) {
	m, ok := s.msgs[slot]
	return m, ok
}

// put replaces the message for m.Slot. When the write would grow the store
// past max, expired transients go first and then the oldest slots. The
// evicted messages are returned.
func (s *slotStore) put(m SlotMessage, now time.Time) []SlotMessage {
	var evicted []SlotMessage
	if _, exists := s.msgs[m.Slot]; !exists && s.max > 0 && len(s.msgs) >= s.max {
		for slot, old := range s.msgs {
			if old.Expired(now) {
				evicted = append(evicted, old)
				delete(s.msgs, slot)
			}
		}
		for len(s.msgs) >= s.max {
			oldest, ok := s.oldest()
			if !ok {
				break
			}
			evicted = append(evicted, oldest)
			delete(s.msgs, oldest.Slot)
		}
	}
	s.msgs[m.Slot] = m
	return evicted
}

func (s *slotStore) oldest() (SlotMessage, bool) {
	var (
		out   SlotMessage
		found bool
	)
	for _, m := range s.msgs {
		if !found || out.newerThan(m) {
			out = m
			found = true
		}
	}
	return out, found
}

// remove deletes slot when present and its severity passes the filter.
func (s *slotStore) remove(slot string, levels []Severity) bool {
	m, ok := s.msgs[slot]
	if !ok || !matchSeverity(m.Severity, levels) {
		return false
	}
	delete(s.msgs, slot)
	return true
}

func (s *slotStore) removeAll(levels []Severity) int {
	n := 0
	for slot, m := range s.msgs {
		if matchSeverity(m.Severity, levels) {
			delete(s.msgs, slot)
			n++
		}
	}
	return n
}

func (s *slotStore) prune(now time.Time) int {
	n := 0
	for slot, m := range s.msgs {
		if m.Expired(now) {
			delete(s.msgs, slot)
			n++
		}
	}
	return n
}

// nextExpiry is the earliest ExpiresAt still in the future.
func (s *slotStore) nextExpiry(now time.Time) (time.Time, bool) {
	var (
		next  time.Time
		found bool
	)
	for _, m := range s.msgs {
		if !m.Transient() || !m.ExpiresAt.After(now) {
			continue
		}
		if !found || m.ExpiresAt.Before(next) {
			next = m.ExpiresAt
			found = true
		}
	}
	return next, found
}

// list returns copies sorted by slot key.
func (s *slotStore) list() []SlotMessage {
	out := make([]SlotMessage, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

func (s *slotStore) len() int { return len(s.msgs) }

func matchSeverity(sev Severity, levels []Severity) bool {
	if len(levels) == 0 {
		return true
	}
	set := newSeveritySet(levels)
	return sev.Valid() && set[sev]
}
