package status

// DefaultCapacity is the history size used when none is configured.
const DefaultCapacity = 100

// Ring is a fixed-capacity FIFO of history records. It is not safe for
// concurrent use; Log serializes access.
type Ring struct {
	buf   []HistoryRecord
	head  int // index of the oldest record
	count int
}

// NewRing returns a ring holding at most capacity records. Non-positive
// capacities fall back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]HistoryRecord, capacity)}
}

func (r *Ring) Cap() int { return len(r.buf) }
func (r *Ring) Len() int { return r.count }

// Append adds rec at the tail, overwriting the oldest record when full. It
// returns the evicted record, if any.
func (r *Ring) Append(rec HistoryRecord) (evicted HistoryRecord, ok bool) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = rec
		r.count++
		return HistoryRecord{}, false
	}
	evicted = r.buf[r.head]
	r.buf[r.head] = rec
	r.head = (r.head + 1) % len(r.buf)
	return evicted, true
}

// Snapshot copies the records in insertion order.
func (r *Ring) Snapshot() []HistoryRecord {
	out := make([]HistoryRecord, 0, r.count)
	r.each(func(rec HistoryRecord) { out = append(out, rec.clone()) })
	return out
}

// Filter returns the records whose severity is in severities and whose
// category is in categories. A nil or empty filter matches everything on that
// dimension.
func (r *Ring) Filter(severities []Severity, categories []string) []HistoryRecord {
	sevs := newSeveritySet(severities)
	var cats map[string]struct{}
	if len(categories) > 0 {
		cats = make(map[string]struct{}, len(categories))
		for _, c := range categories {
			cats[c] = struct{}{}
		}
	}

	out := make([]HistoryRecord, 0, r.count)
	r.each(func(rec HistoryRecord) {
		if len(severities) > 0 && (!rec.Severity.Valid() || !sevs[rec.Severity]) {
			return
		}
		if cats != nil {
			if _, ok := cats[rec.Category]; !ok {
				return
			}
		}
		out = append(out, rec.clone())
	})
	return out
}

// Since returns records with Seq greater than seq, oldest first.
func (r *Ring) Since(seq uint64) []HistoryRecord {
	var out []HistoryRecord
	r.each(func(rec HistoryRecord) {
		if rec.Seq > seq {
			out = append(out, rec.clone())
		}
	})
	return out
}

func (r *Ring) Clear() {
	clear(r.buf)
	r.head = 0
	r.count = 0
}

func (r *Ring) each(fn func(HistoryRecord)) {
	for i := 0; i < r.count; i++ {
		fn(r.buf[(r.head+i)%len(r.buf)])
	}
}
