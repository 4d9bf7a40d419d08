package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Status  StatusConfig   `json:"status"`
	Logging LoggingConfig  `json:"logging"`
	Storage *StorageConfig `json:"storage,omitempty"`
	Archive *ArchiveConfig `json:"archive,omitempty"`
}

// StatusConfig sizes the in-memory history and slot store.
//
// Defaults (when fields are omitted/zero):
//   - capacity: 100
//   - max_slots: 0 (unbounded)
//   - default_flash: "3s"
type StatusConfig struct {
	Capacity     int    `json:"capacity,omitempty"`
	MaxSlots     int    `json:"max_slots,omitempty"`
	DefaultFlash string `json:"default_flash,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	// RatePerSec throttles the status pass-through into the log.
	// 0 disables throttling.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls where archived history goes.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./statusbar_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ArchiveConfig controls periodic persistence of history to storage.
//
// Schedule accepts a cron expression ("*/5 * * * *", "@every 30s"),
// a Go duration ("30s") or HH:MM ("00:05").
type ArchiveConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
}
