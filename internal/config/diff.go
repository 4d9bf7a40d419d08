package config

import (
	"strings"

	logx "statusbar/pkg/logx"
)

// SummarizeConfigChange returns the changed top-level sections and compact
// fields describing their new values, for a single reload log line.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Status != newCfg.Status {
		changed = append(changed, "status")
		attrs = append(attrs,
			logx.Int("status.capacity", newCfg.Status.Capacity),
			logx.Int("status.max_slots", newCfg.Status.MaxSlots),
			logx.String("status.default_flash", strings.TrimSpace(newCfg.Status.DefaultFlash)),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", strings.TrimSpace(newCfg.Logging.Level)),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file.enabled", newCfg.Logging.File.Enabled),
			logx.Int("logging.rate_per_sec", newCfg.Logging.RatePerSec),
		)
	}

	if !sameStorage(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		driver := ""
		if newCfg.Storage != nil {
			driver = newCfg.Storage.Driver
		}
		attrs = append(attrs, logx.String("storage.driver", driver))
	}

	if !sameArchive(oldCfg.Archive, newCfg.Archive) {
		changed = append(changed, "archive")
		if newCfg.Archive != nil {
			attrs = append(attrs,
				logx.Bool("archive.enabled", newCfg.Archive.Enabled),
				logx.String("archive.schedule", newCfg.Archive.Schedule),
			)
		}
	}

	return changed, attrs
}

// RestartRequired reports whether a change can only take effect on restart.
// Logging and the console rate are applied live; everything else sizes
// long-lived state.
func RestartRequired(changed []string) bool {
	for _, c := range changed {
		if c != "logging" {
			return true
		}
	}
	return false
}

func sameStorage(a, b *StorageConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameArchive(a, b *ArchiveConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
