package memory

import (
	"context"
	"iter"
	"slices"
	"sync"

	audit "datatrail/pkg/platform/audit"
)

// InMemoryStore keeps entries in insertion order. Suitable for tests and
// single-process development servers.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	nextID  int64
	// failWith, when set, is returned by Append. Lets tests take the store down.
	failWith error
}

var _ audit.Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.nextID = 1
}

// FailAppends makes every subsequent Append return err; nil restores normal
// operation.
func (s *InMemoryStore) FailAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *InMemoryStore) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	entry.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, *entry)
	return nil
}

// Query snapshots the matching entries when iteration starts.
func (s *InMemoryStore) Query(ctx context.Context, filter audit.Filter) iter.Seq2[audit.Entry, error] {
	return func(yield func(audit.Entry, error) bool) {
		matched := s.match(filter)
		for i, e := range matched {
			if filter.Limit > 0 && i >= filter.Limit {
				return
			}
			if err := ctx.Err(); err != nil {
				yield(audit.Entry{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (s *InMemoryStore) Count(_ context.Context, filter audit.Filter) (int, error) {
	return len(s.match(filter)), nil
}

// ListAll returns every entry in insertion order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries), nil
}

func (s *InMemoryStore) match(filter audit.Filter) []audit.Entry {
	s.mu.RLock()
	var matched []audit.Entry
	for _, e := range s.entries {
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	// Newest first; equal timestamps keep insertion order.
	slices.SortStableFunc(matched, func(a, b audit.Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return matched
}

