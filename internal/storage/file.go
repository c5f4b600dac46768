package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/kasten/internal/checksum"
	"github.com/starford/kasten/internal/models"
)

// File implements Backend with a single JSON file.
type File struct {
	path string // absolute path to the blob file

	mu      sync.Mutex
	lastSum string // checksum of the bytes we last read or wrote
}

// NewFile creates a File backend at path. The parent directory is created
// if needed; the file itself may not exist yet.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, fmt.Errorf("storage: path is a directory: %s", abs)
	}
	return &File{path: abs}, nil
}

// Path returns the absolute path of the blob file.
func (f *File) Path() string { return f.path }

// Load reads and decodes the blob file.
func (f *File) Load(_ context.Context) ([]models.Note, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.remember(nil)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	f.remember(data)
	return Decode(data)
}

// Save atomically writes the blob: tmp file → fsync → rename.
func (f *File) Save(_ context.Context, notes []models.Note) error {
	data, err := Encode(notes)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)

	tmp, err := os.CreateTemp(dir, ".kasten-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	f.remember(data)
	return nil
}

// Stale reports whether the file on disk differs from what this backend
// last read or wrote, i.e. whether someone else changed it.
func (f *File) Stale() bool {
	data, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false
	}
	sum := checksum.Of(data)
	f.mu.Lock()
	defer f.mu.Unlock()
	return sum != f.lastSum
}

func (f *File) remember(data []byte) {
	sum := checksum.Of(data)
	f.mu.Lock()
	f.lastSum = sum
	f.mu.Unlock()
}
