package storage

import (
	"context"
	"sync"

	"github.com/starford/kasten/internal/models"
)

// Memory is an in-process Backend. It keeps the encoded blob so loads and
// saves go through the same codec as the persistent backends.
type Memory struct {
	mu   sync.Mutex
	data []byte

	// SaveErr, when set, is returned by every Save without storing anything.
	SaveErr error
	saves   int
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory { return &Memory{} }

// Load decodes the stored blob.
func (m *Memory) Load(_ context.Context) ([]models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Decode(m.data)
}

// Save encodes and stores notes.
func (m *Memory) Save(_ context.Context, notes []models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := Encode(notes)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

// SetRaw replaces the stored blob verbatim.
func (m *Memory) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

// Saves returns how many saves succeeded.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
