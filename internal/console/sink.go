// Package console mirrors status calls into the structured log so an
// operator can tail them.
package console

import (
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"statusbar/internal/status"
	logx "statusbar/pkg/logx"
)

// Config controls the pass-through. RatePerSec <= 0 disables throttling.
type Config struct {
	RatePerSec int
}

// Sink implements status.Sink on top of a logx.Logger.
//
// A token bucket (burst = rate) keeps bursts of status updates from flooding
// the log. Dropped lines are counted and reported on the next line that gets
// through.
type Sink struct {
	log logx.Logger

	mu      sync.Mutex
	limiter *rate.Limiter

	dropped atomic.Uint64
}

var _ status.Sink = (*Sink)(nil)

func New(cfg Config, log logx.Logger) *Sink {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Sink{log: log}
	s.Apply(cfg)
	return s
}

// Apply swaps the rate limit at runtime.
func (s *Sink) Apply(cfg Config) {
	var lim *rate.Limiter
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	s.mu.Lock()
	s.limiter = lim
	s.mu.Unlock()
}

// Dropped returns how many lines were suppressed by the limiter so far.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

func (s *Sink) Log(sev status.Severity, category string, args []any) {
	level := levelOf(sev)
	// Lines below the log level neither spend a token nor count as dropped.
	if !s.log.Enabled(level) {
		return
	}

	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()

	if lim != nil && !lim.Allow() {
		s.dropped.Add(1)
		return
	}

	fields := []logx.Field{
		logx.String("slot", category),
		logx.Strs("args", argStrings(args)),
	}
	if n := s.dropped.Swap(0); n > 0 {
		fields = append(fields, logx.Uint64("dropped", n))
	}
	s.log.Log(level, status.FormatArgs(args...), fields...)
}

func levelOf(sev status.Severity) logx.Level {
	switch sev {
	case status.Error:
		return logx.LevelError
	case status.Warn:
		return logx.LevelWarn
	case status.Info:
		return logx.LevelInfo
	default:
		return logx.LevelDebug
	}
}

func argStrings(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = status.FormatArgs(a)
	}
	return out
}
