package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"

	"github.com/roach88/reqtrack/internal/config"
	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
)

const (
	filePerms = 0o644
	dirPerms  = 0o755
)

// Store reads and writes family files under a data directory.
type Store struct {
	cfg    config.Config
	logger *slog.Logger
}

// New creates a Store for cfg. The data directory is created lazily on
// first write.
func New(cfg config.Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{cfg: cfg, logger: logger}
}

// Config returns the configuration the store was created with.
func (s *Store) Config() config.Config { return s.cfg }

// ReadRaw returns the raw bytes of a family file, or nil if it is missing
// or blank.
func (s *Store) ReadRaw(f record.Family) ([]byte, error) {
	path := s.cfg.FamilyPath(f)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return data, nil
}

// Load decodes a family file into a slice of T. A missing or empty file
// yields an empty, non-nil slice. Malformed JSON is a ParseError fault.
func Load[T any](s *Store, f record.Family) ([]T, error) {
	data, err := s.ReadRaw(f)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if data == nil {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fault.New(fault.ParseError, "Invalid JSON in %s: %v", f.FileName(), err).
			With("file", f.FileName())
	}
	s.logger.Debug("loaded family", "family", string(f), "records", len(out))
	return out, nil
}

// Save rewrites a family file atomically.
func Save[T any](s *Store, f record.Family, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := Encode(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}

	if err := os.MkdirAll(s.cfg.DataPath(), dirPerms); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	path := s.cfg.FamilyPath(f)
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, fs.ErrNotExist)

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// atomic.WriteFile creates new files 0600.
	if isNew {
		if err := os.Chmod(path, filePerms); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
	}

	s.logger.Debug("saved family", "family", string(f), "records", len(items), "bytes", len(data))
	return nil
}

// Encode renders v the way family files are stored: two-space indent,
// no HTML escaping, trailing newline.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
