// Package testutil provides shared test helpers for setting up stores and backends.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/kasten/internal/notestore"
	"github.com/starford/kasten/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SequentialIDs makes a store mint ids n1, n2, ... so tests can name notes.
func SequentialIDs() notestore.Option {
	var (
		mu sync.Mutex
		n  int
	)
	return notestore.WithIDGenerator(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("n%d", n)
	})
}

// TestStore creates an empty store over an in-memory backend.
func TestStore(t *testing.T) (*notestore.Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return notestore.Open(context.Background(), mem, Logger(), SequentialIDs()), mem
}

// TestFileStore creates an empty store backed by a JSON file in a temp dir.
func TestFileStore(t *testing.T) (*notestore.Store, *storage.File) {
	t.Helper()
	file, err := storage.NewFile(filepath.Join(t.TempDir(), "kasten.json"))
	if err != nil {
		t.Fatal(err)
	}
	return notestore.Open(context.Background(), file, Logger(), SequentialIDs()), file
}

// Seed creates one note per entry, each holding a single address.
func Seed(t *testing.T, s *notestore.Store, addresses ...string) {
	t.Helper()
	for _, a := range addresses {
		if _, err := s.Create(context.Background(), []string{a}, "# "+a); err != nil {
			t.Fatalf("seed %q: %v", a, err)
		}
	}
}
