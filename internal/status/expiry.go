package status

import "time"

// expiryScheduler keeps at most one timer, armed for the earliest future
// expiry among transient slot messages.
//
// Timer callbacks carry the generation they were armed with; a callback from
// a superseded timer (Stop lost the race) is ignored by the owner.
type expiryScheduler struct {
	clock Clock
	fire  func(gen uint64)

	timer    Timer
	deadline time.Time // zero when idle
	gen      uint64
	stopped  bool
}

func newExpiryScheduler(clock Clock, fire func(gen uint64)) *expiryScheduler {
	return &expiryScheduler{clock: clock, fire: fire}
}

// armed reports the current deadline.
func (s *expiryScheduler) armed() (time.Time, bool) {
	return s.deadline, !s.deadline.IsZero()
}

// current reports whether gen belongs to the live timer.
func (s *expiryScheduler) current(gen uint64) bool {
	return !s.stopped && gen == s.gen && s.timer != nil
}

// reschedule targets next (ok=false means no pending expiry). A timer already
// armed for the same instant is left alone.
func (s *expiryScheduler) reschedule(next time.Time, ok bool, now time.Time) {
	if s.stopped {
		return
	}
	if ok && s.timer != nil && s.deadline.Equal(next) {
		return
	}
	s.cancel()
	if !ok {
		return
	}
	d := next.Sub(now)
	if d < 0 {
		d = 0
	}
	s.gen++
	gen := s.gen
	s.deadline = next
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
}

// fired clears the state of the timer that just ran.
func (s *expiryScheduler) fired() {
	s.timer = nil
	s.deadline = time.Time{}
}

func (s *expiryScheduler) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deadline = time.Time{}
	// Invalidate callbacks of any timer that may already be running.
	s.gen++
}

func (s *expiryScheduler) stop() {
	s.cancel()
	s.stopped = true
}
