package storage

import (
	"context"
	"fmt"
	"strings"

	"statusbar/internal/status"
	logx "statusbar/pkg/logx"
)

// Store is the persistence API used by the archiver.
type Store interface {
	// AppendHistory persists records in order, tagged with session.
	AppendHistory(ctx context.Context, session string, records []status.HistoryRecord) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.Component("storage")

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}
