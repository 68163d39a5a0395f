// Package store holds the plain record stores the audited repositories wrap.
package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"datatrail/internal/records/models"
	"datatrail/pkg/platform/sentinel"
	"datatrail/pkg/requestcontext"
)

// MemoryStore keeps records of one type in process memory. Unique columns
// declared by the definition are enforced.
type MemoryStore[T any] struct {
	def    *models.Definition[T]
	mu     sync.RWMutex
	rows   map[int64]T
	nextID int64
}

func NewMemoryStore[T any](def *models.Definition[T]) *MemoryStore[T] {
	return &MemoryStore[T]{def: def, rows: make(map[int64]T), nextID: 1}
}

// Save inserts rec when it has no id and replaces the stored copy otherwise.
// A record carrying an id that is not stored yet is inserted under that id.
func (s *MemoryStore[T]) Save(ctx context.Context, rec *T) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *rec
	id := s.def.ID(&row)
	if id == 0 {
		id = s.nextID
		s.def.SetID(&row, id)
	}
	if err := s.checkUnique(&row, id); err != nil {
		return nil, err
	}
	version := 1
	if prev, ok := s.rows[id]; ok {
		version = *s.def.Version(&prev) + 1
	}
	*s.def.Version(&row) = version
	if s.def.Touch != nil {
		s.def.Touch(&row, requestcontext.Now(ctx))
	}
	if id >= s.nextID {
		s.nextID = id + 1
	}
	s.rows[id] = row
	out := row
	return &out, nil
}

func (s *MemoryStore[T]) FindByID(_ context.Context, id int64) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", s.def.SQLTable, id, sentinel.ErrNotFound)
	}
	return &row, nil
}

// FindAll returns every record ordered by id.
func (s *MemoryStore[T]) FindAll(_ context.Context) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := slices.Sorted(maps.Keys(s.rows))
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		row := s.rows[id]
		out = append(out, &row)
	}
	return out, nil
}

func (s *MemoryStore[T]) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *MemoryStore[T]) ExistsByID(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rows[id]
	return ok, nil
}

func (s *MemoryStore[T]) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}

func (s *MemoryStore[T]) checkUnique(rec *T, id int64) error {
	if s.def.Unique == nil {
		return nil
	}
	want := s.def.Unique(rec)
	for otherID, other := range s.rows {
		if otherID == id {
			continue
		}
		for _, key := range s.def.Unique(&other) {
			if slices.Contains(want, key) {
				return fmt.Errorf("%s %s: %w", s.def.SQLTable, key, sentinel.ErrConflict)
			}
		}
	}
	return nil
}
