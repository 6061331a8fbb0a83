// Package snapshot persists the store's non-expiring entries as a single
// JSON document, replaced atomically on every save.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileSnapshot writes the key/value mapping to path via a temp file in the
// same directory followed by a rename, so readers never observe a partial
// document.
type FileSnapshot struct {
	logger *slog.Logger
	path   string
}

// New creates a snapshotter targeting path. The file is only opened inside
// Save and Load.
func New(path string, logger *slog.Logger) *FileSnapshot {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSnapshot{path: path, logger: logger}
}

// Path returns the snapshot file location.
func (f *FileSnapshot) Path() string {
	return f.path
}

// Save serializes items and atomically replaces the snapshot file.
func (f *FileSnapshot) Save(items map[string]string) error {
	if items == nil {
		items = map[string]string{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	defer func() {
		// No-ops once the rename has happened.
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(payload); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	f.logger.Debug("snapshot saved", "path", f.path, "entries", len(items))
	return nil
}

// Load reads the snapshot back. A missing file, an empty or whitespace-only
// file, and an undecodable document all yield an empty mapping: first boot
// and corruption recovery look the same to the caller. Only a genuine read
// failure on an existing file is reported as an error.
func (f *FileSnapshot) Load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]string{}, nil
	}

	var items map[string]string
	if err := json.Unmarshal(raw, &items); err != nil {
		f.logger.Warn("snapshot unreadable, starting empty", "path", f.path, "error", err)
		return map[string]string{}, nil
	}
	if items == nil {
		items = map[string]string{}
	}
	return items, nil
}
