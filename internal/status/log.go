package status

import (
	"sync"
	"time"

	logx "statusbar/pkg/logx"
)

// DefaultFlash is the flash lifetime used when a caller passes timeout <= 0
// and Options.DefaultFlash is unset.
const DefaultFlash = 3 * time.Second

// Sink receives every leveled call for human tailing. Implementations may
// fail; a panicking sink never affects the caller.
type Sink interface {
	Log(sev Severity, category string, args []any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(sev Severity, category string, args []any)

func (f SinkFunc) Log(sev Severity, category string, args []any) { f(sev, category, args) }

// Options configures a Log. The zero value is usable.
type Options struct {
	// Capacity bounds history; <= 0 means DefaultCapacity.
	Capacity int
	// MaxSlots bounds the slot store; <= 0 means unbounded.
	MaxSlots int
	// DefaultFlash applies to flashes posted with timeout <= 0.
	DefaultFlash time.Duration

	Sink   Sink
	Clock  Clock
	Logger logx.Logger
}

// Log is the audit history plus status-bar state for one session.
//
// All methods are safe for concurrent use. Notifications are delivered one
// at a time, in change order, after the state lock is released. A subscriber
// may call back into the Log; the notifications of that call are queued and
// delivered once the current callback returns.
type Log struct {
	mu           sync.Mutex
	clock        Clock
	sink         Sink
	log          logx.Logger
	defaultFlash time.Duration
	seq          uint64
	ring         *Ring
	slots        *slotStore
	sched        *expiryScheduler
	hub          hub

	// pending holds delivery steps in change order; draining is set while
	// one goroutine runs them.
	pending  []func()
	draining bool
}

// New builds a Log from opts.
func New(opts Options) *Log {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.DefaultFlash <= 0 {
		opts.DefaultFlash = DefaultFlash
	}
	if opts.Logger.IsZero() {
		opts.Logger = logx.Nop()
	}
	l := &Log{
		clock:        opts.Clock,
		sink:         opts.Sink,
		log:          opts.Logger,
		defaultFlash: opts.DefaultFlash,
		ring:         NewRing(opts.Capacity),
		slots:        newSlotStore(opts.MaxSlots),
	}
	l.sched = newExpiryScheduler(opts.Clock, l.onExpiry)
	l.hub.onPanic = func(name string, p any) {
		l.log.Warn("status subscriber panicked", logx.String("channel", name), logx.Any("panic", p))
	}
	return l
}

func (l *Log) Error(slot string, args ...any) SlotMessage { return l.Post(Error, slot, args...) }
func (l *Log) Warn(slot string, args ...any) SlotMessage  { return l.Post(Warn, slot, args...) }
func (l *Log) Info(slot string, args ...any) SlotMessage  { return l.Post(Info, slot, args...) }
func (l *Log) Debug(slot string, args ...any) SlotMessage { return l.Post(Debug, slot, args...) }

func (l *Log) ErrorFlash(timeout time.Duration, slot string, args ...any) SlotMessage {
	return l.Flash(Error, timeout, slot, args...)
}

func (l *Log) WarnFlash(timeout time.Duration, slot string, args ...any) SlotMessage {
	return l.Flash(Warn, timeout, slot, args...)
}

func (l *Log) InfoFlash(timeout time.Duration, slot string, args ...any) SlotMessage {
	return l.Flash(Info, timeout, slot, args...)
}

// Post writes a persistent message to slot and records it in history.
func (l *Log) Post(sev Severity, slot string, args ...any) SlotMessage {
	return l.write(sev, slot, 0, args)
}

// Flash writes a transient message that stops being visible after timeout.
func (l *Log) Flash(sev Severity, timeout time.Duration, slot string, args ...any) SlotMessage {
	if timeout <= 0 {
		timeout = l.defaultFlash
	}
	return l.write(sev, slot, timeout, args)
}

func (l *Log) write(sev Severity, slot string, ttl time.Duration, args []any) SlotMessage {
	text := FormatArgs(args...)
	texts := argTexts(args)
	l.forward(sev, slot, args)

	l.mu.Lock()
	now := l.clock.Now()
	l.seq++
	l.ring.Append(HistoryRecord{
		Seq:       l.seq,
		CreatedAt: now,
		Severity:  sev,
		Category:  slot,
		Text:      text,
		Args:      texts,
	})

	msg := SlotMessage{
		Slot:     slot,
		Severity: sev,
		Text:     text,
		Args:     texts,
		PostedAt: now,
		Seq:      l.seq,
	}
	if ttl > 0 {
		msg.ExpiresAt = now.Add(ttl)
	}
	prev, had := l.slots.get(slot)
	evicted := l.slots.put(msg, now)
	if msg.Transient() || (had && prev.Transient()) || anyTransient(evicted) {
		l.rescheduleLocked(now)
	}
	if len(evicted) > 0 {
		l.log.Debug("status slots evicted", logx.Int("count", len(evicted)), logx.Int("max", l.slots.max))
	}
	l.enqueueLocked(l.collectLocked(now, true))
	l.mu.Unlock()

	l.drain()
	return msg.clone()
}

func (l *Log) forward(sev Severity, category string, args []any) {
	if l.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.log.Debug("status sink panicked", logx.String("category", category), logx.Any("panic", r))
		}
	}()
	l.sink.Log(sev, category, args)
}

// ClearSlot removes the message in slot when it exists and, if levels are
// given, its severity is one of them. It reports whether a message was
// removed. Visibility subscribers are notified either way.
func (l *Log) ClearSlot(slot string, levels ...Severity) bool {
	var removed bool
	l.mutateSlots(func() { removed = l.slots.remove(slot, levels) })
	return removed
}

// ClearAll removes every slot message whose severity is in levels, or all of
// them when levels is empty. It returns the number removed.
func (l *Log) ClearAll(levels ...Severity) int {
	var n int
	l.mutateSlots(func() { n = l.slots.removeAll(levels) })
	return n
}

// Prune drops expired transient messages from the slot store.
func (l *Log) Prune() int {
	var n int
	l.mutateSlots(func() { n = l.slots.prune(l.clock.Now()) })
	return n
}

// mutateSlots runs fn under the lock and notifies visibility subscribers
// only; slot clears are not history events.
func (l *Log) mutateSlots(fn func()) {
	l.mu.Lock()
	fn()
	now := l.clock.Now()
	l.rescheduleLocked(now)
	l.enqueueLocked(l.collectLocked(now, false))
	l.mu.Unlock()

	l.drain()
}

// ClearHistory empties the ring and notifies history subscribers.
func (l *Log) ClearHistory() {
	l.mu.Lock()
	l.ring.Clear()
	subs := l.hub.history.snapshot()
	l.enqueueLocked(func() { l.hub.emitHistory(subs, nil) })
	l.mu.Unlock()

	l.drain()
}

// CurrentVisible resolves the visible message at the current instant.
func (l *Log) CurrentVisible() (SlotMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visibleLocked(l.clock.Now())
}

// Slots returns a copy of every stored slot message, expired ones included,
// sorted by slot key.
func (l *Log) Slots() []SlotMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slots.list()
}

// History returns a copy of the history, oldest first.
func (l *Log) History() []HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ring.Snapshot()
}

// FilterHistory returns records matching both filters; an empty filter
// matches everything on its dimension.
func (l *Log) FilterHistory(severities []Severity, categories []string) []HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ring.Filter(severities, categories)
}

// HistorySince returns records with Seq > seq still held by the ring, and the
// highest sequence number assigned so far.
func (l *Log) HistorySince(seq uint64) ([]HistoryRecord, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ring.Since(seq), l.seq
}

// Capacity returns the history bound.
func (l *Log) Capacity() int { return l.ring.Cap() }

// OnHistoryChange subscribes fn to history changes. The returned func
// unsubscribes and may be called any number of times.
func (l *Log) OnHistoryChange(fn HistoryFunc) (unsubscribe func()) {
	return l.hub.onHistory(fn)
}

// OnVisibilityChange subscribes fn to visibility re-evaluations.
func (l *Log) OnVisibilityChange(fn VisibilityFunc) (unsubscribe func()) {
	return l.hub.onVisible(fn)
}

// Close stops the expiry timer. The Log stays usable but no longer notifies
// subscribers when flashes expire.
func (l *Log) Close() {
	l.mu.Lock()
	l.sched.stop()
	l.mu.Unlock()
}

// NextExpiry reports the instant the expiry timer is armed for.
func (l *Log) NextExpiry() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sched.armed()
}

func (l *Log) onExpiry(gen uint64) {
	l.mu.Lock()
	if !l.sched.current(gen) {
		l.mu.Unlock()
		return
	}
	l.sched.fired()
	now := l.clock.Now()
	l.rescheduleLocked(now)
	l.enqueueLocked(l.collectLocked(now, false))
	l.mu.Unlock()

	l.drain()
}

func (l *Log) rescheduleLocked(now time.Time) {
	next, ok := l.slots.nextExpiry(now)
	l.sched.reschedule(next, ok, now)
}

func (l *Log) visibleLocked(now time.Time) (SlotMessage, bool) {
	if l.slots.len() == 0 {
		return SlotMessage{}, false
	}
	return Resolve(l.slots.list(), now)
}

// enqueueLocked appends a delivery step. Steps are queued under the same lock
// as the change they describe, so queue order is change order.
func (l *Log) enqueueLocked(step func()) {
	l.pending = append(l.pending, step)
}

// drain runs queued delivery steps unless another call is already doing so;
// that call (possibly further up this goroutine's stack, when a subscriber
// re-enters the Log) picks up whatever was queued.
func (l *Log) drain() {
	l.mu.Lock()
	if l.draining {
		l.mu.Unlock()
		return
	}
	l.draining = true
	for len(l.pending) > 0 {
		step := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		l.mu.Unlock()
		step()
		l.mu.Lock()
	}
	l.pending = nil
	l.draining = false
	l.mu.Unlock()
}

// collectLocked captures notification payloads under l.mu and returns the
// delivery step, which must run after l.mu is released.
func (l *Log) collectLocked(now time.Time, history bool) func() {
	var (
		histSubs []*subscriber[HistoryFunc]
		records  []HistoryRecord
	)
	if history {
		if histSubs = l.hub.history.snapshot(); len(histSubs) > 0 {
			records = l.ring.Snapshot()
		}
	}
	visSubs := l.hub.visible.snapshot()
	var (
		msg SlotMessage
		ok  bool
	)
	if len(visSubs) > 0 {
		msg, ok = l.visibleLocked(now)
	}
	return func() {
		l.hub.emitHistory(histSubs, records)
		l.hub.emitVisible(visSubs, msg, ok)
	}
}

func anyTransient(msgs []SlotMessage) bool {
	for _, m := range msgs {
		if m.Transient() {
			return true
		}
	}
	return false
}
