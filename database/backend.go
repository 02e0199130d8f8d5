package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Record names. The JSON backend stores each one as <name>.json.
const (
	RecordOptOut           = "notified_users"
	RecordReminderChannels = "reminder_channels"
	RecordClosedThreads    = "closed_threads"
)

// ErrRecordMissing is returned by a Backend when a record was never written.
var ErrRecordMissing = errors.New("record missing")

// Backend persists whole records as opaque JSON payloads.
type Backend interface {
	Read(name string) ([]byte, error)
	Write(name string, payload []byte) error
	Close() error
}

// FileBackend keeps each record in its own JSON file inside dir.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

// Read returns the raw file content, or ErrRecordMissing.
func (f *FileBackend) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrRecordMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the record through a temp file and a rename, so a crash
// leaves either the old or the new content on disk.
func (f *FileBackend) Write(name string, payload []byte) error {
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, f.path(name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// Close is a no-op for files.
func (f *FileBackend) Close() error { return nil }
