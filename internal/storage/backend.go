// Package storage defines the backing store for the note collection. The
// whole collection is one blob; backends only need to load and save it.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/kasten/internal/models"
)

// ErrCorrupt is returned by Load when the stored blob cannot be decoded.
var ErrCorrupt = errors.New("storage: corrupt note data")

// Backend persists the full note collection.
type Backend interface {
	// Load returns every stored note. A missing blob is an empty collection.
	Load(ctx context.Context) ([]models.Note, error)
	// Save replaces the stored collection with notes.
	Save(ctx context.Context, notes []models.Note) error
}

const blobVersion = 1

type blob struct {
	Version int           `json:"version"`
	Notes   []models.Note `json:"notes"`
}

// Encode serialises notes into the blob format shared by all backends.
func Encode(notes []models.Note) ([]byte, error) {
	if notes == nil {
		notes = []models.Note{}
	}
	data, err := json.MarshalIndent(blob{Version: blobVersion, Notes: notes}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage: encode: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a blob. A bare JSON array of notes is accepted too.
// Empty input decodes to an empty collection.
func Decode(data []byte) ([]models.Note, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var notes []models.Note
	if data[0] == '[' {
		if err := json.Unmarshal(data, &notes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	} else {
		var b blob
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if b.Version > blobVersion {
			return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, b.Version)
		}
		notes = b.Notes
	}

	for i, n := range notes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: note %d has no id", ErrCorrupt, i)
		}
	}
	return notes, nil
}
