package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/starford/kasten/internal/models"
)

var sample = []models.Note{
	{ID: "a", Addresses: []string{"1", "1a"}, Content: "# One"},
	{ID: "b", Addresses: []string{"2"}, Content: "two"},
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFile(filepath.Join(dir, "file", "notes.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	db, err := OpenSQLite(filepath.Join(dir, "kasten.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	dv, err := NewDiskv(filepath.Join(dir, "diskv"))
	if err != nil {
		t.Fatalf("NewDiskv: %v", err)
	}

	return map[string]Backend{
		"file":   file,
		"sqlite": db,
		"diskv":  dv,
		"memory": NewMemory(),
	}
}

func TestBackends_EmptyLoad(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			notes, err := b.Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(notes) != 0 {
				t.Errorf("notes = %v, want empty", notes)
			}
		})
	}
}

func TestBackends_SaveLoad(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Save(ctx, sample); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := b.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, sample) {
				t.Errorf("got %+v, want %+v", got, sample)
			}

			// Overwrite with a smaller set.
			if err := b.Save(ctx, sample[1:]); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, _ = b.Load(ctx)
			if len(got) != 1 || got[0].ID != "b" {
				t.Errorf("after overwrite got %+v", got)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	notes, err := Decode([]byte(`[{"id":"x","addresses":["3b"],"content":"c"}]`))
	if err != nil {
		t.Fatalf("bare array: %v", err)
	}
	if len(notes) != 1 || notes[0].Addresses[0] != "3b" {
		t.Errorf("notes = %+v", notes)
	}

	notes, err = Decode([]byte("  \n"))
	if err != nil || notes != nil {
		t.Errorf("blank: notes=%v err=%v", notes, err)
	}

	for _, bad := range []string{`{not json`, `{"version":99,"notes":[]}`, `[{"addresses":["1"]}]`, `"str"`} {
		if _, err := Decode([]byte(bad)); !errors.Is(err, ErrCorrupt) {
			t.Errorf("Decode(%s) err = %v, want ErrCorrupt", bad, err)
		}
	}
}

func TestMemory_SaveErr(t *testing.T) {
	m := NewMemory()
	m.SaveErr = errors.New("disk full")
	if err := m.Save(context.Background(), sample); err == nil {
		t.Fatal("expected save error")
	}
	if m.Saves() != 0 {
		t.Errorf("saves = %d", m.Saves())
	}
}

func TestFile_CorruptLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Load(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}
}

func TestFile_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	f, _ := NewFile(filepath.Join(dir, "notes.json"))
	_ = f.Save(context.Background(), sample)
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "notes.json" {
		t.Errorf("unexpected files: %v", entries)
	}
}

func TestFile_Stale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	f, _ := NewFile(path)
	ctx := context.Background()

	if f.Stale() {
		t.Error("missing file should not be stale before any load")
	}
	if err := f.Save(ctx, sample); err != nil {
		t.Fatal(err)
	}
	if f.Stale() {
		t.Error("own save should not be stale")
	}
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if !f.Stale() {
		t.Error("external write should be stale")
	}
	if _, err := f.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if f.Stale() {
		t.Error("stale after reload")
	}
}

func TestNewFile_RejectsDirectory(t *testing.T) {
	if _, err := NewFile(t.TempDir()); err == nil {
		t.Error("expected error for directory path")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, logger, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	// Unrelated file should not trigger.
	_ = os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644)
	// Burst of writes should coalesce.
	for i := 0; i < 3; i++ {
		_ = os.WriteFile(path, []byte(`[]`), 0o644)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}

	select {
	case <-changed:
		t.Error("burst should produce a single callback")
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
