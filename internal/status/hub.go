package status

import (
	"sync"
	"sync/atomic"
)

// HistoryFunc receives the full history snapshot after each change.
type HistoryFunc func(records []HistoryRecord)

// VisibilityFunc receives the resolved visible message; ok is false when
// nothing should be shown.
type VisibilityFunc func(msg SlotMessage, ok bool)

type subscriber[F any] struct {
	id     uint64
	fn     F
	active atomic.Bool
}

// channel is an ordered list of subscribers. Delivery runs on the caller's
// goroutine in subscription order.
type channel[F any] struct {
	mu   sync.Mutex
	subs []*subscriber[F]
}

func (c *channel[F]) add(id uint64, fn F) func() {
	s := &subscriber[F]{id: id, fn: fn}
	s.active.Store(true)

	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.active.Store(false)
			c.mu.Lock()
			for i, cur := range c.subs {
				if cur.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					break
				}
			}
			c.mu.Unlock()
		})
	}
}

func (c *channel[F]) snapshot() []*subscriber[F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) == 0 {
		return nil
	}
	return append([]*subscriber[F](nil), c.subs...)
}

// hub owns the history and visibility channels.
type hub struct {
	seq     atomic.Uint64
	history channel[HistoryFunc]
	visible channel[VisibilityFunc]

	// onPanic reports a recovered subscriber panic.
	onPanic func(name string, p any)
}

func (h *hub) onHistory(fn HistoryFunc) func() {
	if fn == nil {
		return func() {}
	}
	return h.history.add(h.seq.Add(1), fn)
}

func (h *hub) onVisible(fn VisibilityFunc) func() {
	if fn == nil {
		return func() {}
	}
	return h.visible.add(h.seq.Add(1), fn)
}

func (h *hub) emitHistory(subs []*subscriber[HistoryFunc], records []HistoryRecord) {
	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		// Each subscriber gets its own copy.
		cp := make([]HistoryRecord, len(records))
		for i, r := range records {
			cp[i] = r.clone()
		}
		h.call("history", func() { s.fn(cp) })
	}
}

func (h *hub) emitVisible(subs []*subscriber[VisibilityFunc], msg SlotMessage, ok bool) {
	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		m := msg.clone()
		h.call("visibility", func() { s.fn(m, ok) })
	}
}

func (h *hub) call(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil && h.onPanic != nil {
			h.onPanic(name, r)
		}
	}()
	fn()
}
