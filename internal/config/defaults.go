package config

import (
	"fmt"
	"strings"
	"time"

	"statusbar/internal/status"
)

// Validate checks everything that can be checked without side effects.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Status.Capacity < 0 {
		return fmt.Errorf("status.capacity must be >= 0")
	}
	if cfg.Status.MaxSlots < 0 {
		return fmt.Errorf("status.max_slots must be >= 0")
	}
	if _, err := ParseDurationField("status.default_flash", cfg.Status.DefaultFlash); err != nil {
		return err
	}
	if cfg.Logging.RatePerSec < 0 {
		return fmt.Errorf("logging.rate_per_sec must be >= 0")
	}
	if cfg.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	if cfg.Archive != nil && cfg.Archive.Enabled {
		if strings.TrimSpace(cfg.Archive.Schedule) == "" {
			return fmt.Errorf("archive.schedule is required when archive.enabled")
		}
		if cfg.Storage == nil || !storageEnabled(cfg.Storage.Driver) {
			return fmt.Errorf("archive.enabled requires a storage driver")
		}
	}
	return nil
}

func storageEnabled(driver string) bool {
	d := strings.ToLower(strings.TrimSpace(driver))
	return d != "" && d != "none"
}

// StatusOptions maps the status section onto status.Options (without the
// runtime collaborators: sink, clock, logger).
func StatusOptions(cfg *Config) (status.Options, error) {
	flash, err := ParseDurationOrDefault("status.default_flash", cfg.Status.DefaultFlash, status.DefaultFlash)
	if err != nil {
		return status.Options{}, err
	}
	capacity := cfg.Status.Capacity
	if capacity <= 0 {
		capacity = status.DefaultCapacity
	}
	return status.Options{
		Capacity:     capacity,
		MaxSlots:     cfg.Status.MaxSlots,
		DefaultFlash: flash,
	}, nil
}

// BusyTimeout returns the parsed sqlite busy timeout (0 when unset).
func BusyTimeout(sc *StorageConfig) (time.Duration, error) {
	if sc == nil {
		return 0, nil
	}
	return ParseDurationField("storage.busy_timeout", sc.BusyTimeout)
}
