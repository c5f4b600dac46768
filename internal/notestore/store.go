// Package notestore owns the note collection and enforces its invariants:
// every address is valid, and no address is held by two notes.
package notestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/kasten/internal/address"
	"github.com/starford/kasten/internal/apperr"
	"github.com/starford/kasten/internal/models"
	"github.com/starford/kasten/internal/navigate"
	"github.com/starford/kasten/internal/storage"
	"github.com/starford/kasten/internal/tree"
)

// Store is the single owner of the note collection. Mutations are applied
// to a copy, persisted, and only then made visible.
type Store struct {
	backend storage.Backend
	logger  *slog.Logger
	newID   func() string

	mu     sync.RWMutex
	notes  []models.Note     // creation order
	owners map[string]string // address key -> note id
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides how new note identities are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Open loads the collection from backend. Unreadable or corrupt data is
// logged and treated as an empty collection so the store stays usable.
func Open(ctx context.Context, backend storage.Backend, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  logger,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	notes, owners, err := s.load(ctx)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, storage.ErrCorrupt) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "store: load failed, starting empty", slog.String("error", err.Error()))
		notes, owners = nil, map[string]string{}
	}
	s.notes, s.owners = notes, owners
	return s
}

// Reload replaces the in-memory collection with what the backend holds now.
// When the backend cannot be read the current collection stays in place and
// the error is returned.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, owners, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("store: reload failed, keeping current notes",
			slog.String("error", err.Error()), slog.Int("notes", len(s.notes)))
		return fmt.Errorf("notestore: reload: %w", err)
	}
	s.notes, s.owners = notes, owners
	s.logger.Info("store: reloaded", slog.Int("notes", len(notes)))
	return nil
}

// load reads the backend and repairs what it can: addresses are
// canonicalised, malformed or already-held addresses are dropped, and so is
// any note left without an address or sharing an id with an earlier note.
func (s *Store) load(ctx context.Context) ([]models.Note, map[string]string, error) {
	notes, err := s.backend.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	owners := make(map[string]string)
	ids := make(map[string]struct{}, len(notes))
	kept := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if _, dup := ids[n.ID]; dup {
			s.logger.Warn("store: dropping note with duplicate id", slog.String("note", n.ID))
			continue
		}

		var addrs []string
		for _, raw := range n.Addresses {
			a := address.Canonicalize(raw)
			if err := address.Validate(a); err != nil {
				s.logger.Warn("store: dropping invalid address",
					slog.String("address", raw), slog.String("note", n.ID), slog.String("error", err.Error()))
				continue
			}
			k := address.Key(a)
			if owner, taken := owners[k]; taken {
				if owner != n.ID {
					s.logger.Warn("store: dropping duplicate address",
						slog.String("address", a), slog.String("note", n.ID), slog.String("owner", owner))
				}
				continue
			}
			owners[k] = n.ID
			addrs = append(addrs, a)
		}
		if len(addrs) == 0 {
			s.logger.Warn("store: dropping note without addresses", slog.String("note", n.ID))
			continue
		}

		ids[n.ID] = struct{}{}
		n.Addresses = addrs
		kept = append(kept, n)
	}
	return kept, owners, nil
}

// Create adds a note. It fails with *apperr.ValidationError if any address
// is malformed and *apperr.ConflictError if any is held by another note;
// nothing is changed in either case.
func (s *Store) Create(ctx context.Context, addresses []string, content string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs, err := s.check(addresses, "")
	if err != nil {
		return models.Note{}, err
	}
	n := models.Note{ID: s.newID(), Addresses: addrs, Content: content}

	next := make([]models.Note, len(s.notes), len(s.notes)+1)
	copy(next, s.notes)
	next = append(next, n)
	if err := s.commit(ctx, next); err != nil {
		return models.Note{}, err
	}
	s.logger.Debug("store: created", slog.String("id", n.ID), slog.Any("addresses", n.Addresses))
	return n.Clone(), nil
}

// Update replaces a note's addresses and content. The note may keep any of
// its current addresses. Validation and conflict rules match Create.
func (s *Store) Update(ctx context.Context, id string, addresses []string, content string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Note{}, apperr.ErrNotFound
	}
	addrs, err := s.check(addresses, id)
	if err != nil {
		return models.Note{}, err
	}
	n := models.Note{ID: id, Addresses: addrs, Content: content}

	next := make([]models.Note, len(s.notes))
	copy(next, s.notes)
	next[i] = n
	if err := s.commit(ctx, next); err != nil {
		return models.Note{}, err
	}
	s.logger.Debug("store: updated", slog.String("id", id), slog.Any("addresses", n.Addresses))
	return n.Clone(), nil
}

// Remove deletes a note. Removing an unknown id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	next := make([]models.Note, 0, len(s.notes)-1)
	next = append(next, s.notes[:i]...)
	next = append(next, s.notes[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.Debug("store: removed", slog.String("id", id))
	return nil
}

// IsAddressTaken returns the note holding addr, ignoring excludingID.
func (s *Store) IsAddressTaken(addr, excludingID string) (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.owners[address.Key(addr)]
	if !ok || owner == excludingID {
		return models.Note{}, false
	}
	return s.notes[s.indexOf(owner)].Clone(), true
}

// Get returns the note with id.
func (s *Store) Get(id string) (models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Note{}, apperr.ErrNotFound
	}
	return s.notes[i].Clone(), nil
}

// Notes returns a snapshot of all notes in creation order.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Note, len(s.notes))
	for i, n := range s.notes {
		out[i] = n.Clone()
	}
	return out
}

// Rows derives the outline from the current notes, hiding exclude.
func (s *Store) Rows(exclude ...string) []models.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tree.Derive(s.notes, exclude...)
}

// Resolve finds the row to navigate to for a typed address.
func (s *Store) Resolve(target string, exclude ...string) (models.Row, bool) {
	return navigate.Resolve(s.Rows(exclude...), target)
}

// check canonicalises and validates a submission. The first failing
// address in input order is reported. Repeated addresses collapse into one.
func (s *Store) check(addresses []string, self string) ([]string, error) {
	if len(addresses) == 0 {
		return nil, &apperr.ValidationError{Reason: "at least one address is required"}
	}
	out := make([]string, 0, len(addresses))
	seen := make(map[string]struct{}, len(addresses))
	for _, raw := range addresses {
		a := address.Canonicalize(raw)
		if err := address.Validate(a); err != nil {
			return nil, err
		}
		k := address.Key(a)
		if owner, ok := s.owners[k]; ok && owner != self {
			return nil, &apperr.ConflictError{Address: a, OwnerID: owner}
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}

// commit persists next and, on success, makes it current. Callers hold mu.
func (s *Store) commit(ctx context.Context, next []models.Note) error {
	if err := s.backend.Save(ctx, next); err != nil {
		return fmt.Errorf("notestore: save: %w", err)
	}
	owners := make(map[string]string, len(s.owners))
	for _, n := range next {
		for _, a := range n.Addresses {
			owners[address.Key(a)] = n.ID
		}
	}
	s.notes, s.owners = next, owners
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, n := range s.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
