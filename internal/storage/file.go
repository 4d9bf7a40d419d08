package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"statusbar/internal/status"
	logx "statusbar/pkg/logx"
)

// fileStore appends rows to <prefix>.history.jsonl.
type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	histPath := HistoryPath(path)
	f, err := os.OpenFile(histPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	log.Debug("file store opened", logx.String("path", histPath))
	return &fileStore{log: log, path: histPath, f: f, w: bufio.NewWriter(f)}, nil
}

// HistoryPath returns the JSON Lines file the file driver writes for path.
func HistoryPath(path string) string {
	path = strings.TrimSpace(path)
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base) + ".history.jsonl"
}

func (s *fileStore) AppendHistory(ctx context.Context, session string, records []status.HistoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	enc := json.NewEncoder(s.w)
	for _, row := range rowsFor(session, records) {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	// One flush per batch keeps rows whole on disk.
	return s.w.Flush()
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err1 := s.w.Flush()
	err2 := s.f.Close()
	s.f = nil
	s.w = nil
	return errors.Join(err1, err2)
}

// ReadFile decodes every row of a history file written by the file driver.
// Lines that fail to decode are skipped and counted.
func ReadFile(path string) (rows []Row, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var row Row
		if err := json.Unmarshal(line, &row); err != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, sc.Err()
}
