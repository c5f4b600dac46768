package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peterbourgon/diskv/v3"

	"github.com/starford/kasten/internal/models"
)

// Diskv implements Backend on a diskv key-value directory.
type Diskv struct {
	d *diskv.Diskv
}

// NewDiskv creates a diskv-backed store rooted at basePath.
func NewDiskv(basePath string) (*Diskv, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	tmp := filepath.Join(abs, ".tmp")
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	return &Diskv{d: diskv.New(diskv.Options{
		BasePath:     abs,
		TempDir:      tmp, // write via rename
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 1024 * 1024, // 1MB
	})}, nil
}

// Load reads the notes blob.
func (s *Diskv) Load(_ context.Context) ([]models.Note, error) {
	if !s.d.Has(notesKey) {
		return nil, nil
	}
	data, err := s.d.Read(notesKey)
	if err != nil {
		return nil, fmt.Errorf("storage: diskv read: %w", err)
	}
	return Decode(data)
}

// Save writes the notes blob.
func (s *Diskv) Save(_ context.Context, notes []models.Note) error {
	data, err := Encode(notes)
	if err != nil {
		return err
	}
	if err := s.d.Write(notesKey, data); err != nil {
		return fmt.Errorf("storage: diskv write: %w", err)
	}
	return nil
}
