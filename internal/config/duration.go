package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNegativeDuration is wrapped by the helpers below for values like "-1s".
var ErrNegativeDuration = errors.New("duration must be >= 0")

// ParseDurationField parses a Go duration string found at the dotted config
// path. Blank means unset and yields 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: %w", path, ErrNegativeDuration)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def standing in for an
// unset or zero value.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
