package status

import (
	"strings"
)

// Severity is ordered so that a larger value has a higher display priority.
type Severity int

const (
	Debug Severity = iota
	Info
	Warn
	Error
)

var severityNames = [...]string{"debug", "info", "warn", "error"}

func (s Severity) String() string {
	if s < Debug || s > Error {
		return "unknown"
	}
	return severityNames[s]
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool { return s >= Debug && s <= Error }

// ParseSeverity accepts the names produced by String (case-insensitive) plus
// "warning" and "err".
func ParseSeverity(raw string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug, true
	case "info":
		return Info, true
	case "warn", "warning":
		return Warn, true
	case "error", "err":
		return Error, true
	default:
		return 0, false
	}
}

// MarshalText keeps JSON exports human readable.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	v, ok := ParseSeverity(string(b))
	if !ok {
		return &unknownSeverityError{raw: string(b)}
	}
	*s = v
	return nil
}

type unknownSeverityError struct{ raw string }

func (e *unknownSeverityError) Error() string { return "status: unknown severity " + e.raw }

// severitySet is a small membership filter. Callers treat an empty input
// slice as "match all"; invalid severities never match.
type severitySet [Error + 1]bool

func newSeveritySet(levels []Severity) severitySet {
	var set severitySet
	for _, l := range levels {
		if l.Valid() {
			set[l] = true
		}
	}
	return set
}
