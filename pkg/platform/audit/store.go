package audit

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"
)

var (
	// ErrInvalidFilter marks a filter combination the query side rejects.
	ErrInvalidFilter = errors.New("invalid audit filter")
	// ErrSequenceConsumed is yielded when a result sequence is ranged twice.
	ErrSequenceConsumed = errors.New("audit result sequence already consumed")
)

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks Store

// Store persists and reads audit entries. Written entries are immutable, so
// there is no update or delete.
type Store interface {
	// Append writes one entry and assigns its ID.
	Append(ctx context.Context, entry *Entry) error
	Reader
}

// Reader is the read side of a Store.
type Reader interface {
	// Query streams matching entries newest first, ties in insertion order.
	Query(ctx context.Context, filter Filter) iter.Seq2[Entry, error]
	// Count returns the number of matching entries, ignoring Limit.
	Count(ctx context.Context, filter Filter) (int, error)
}

// Filter restricts a query. Zero-valued fields do not restrict; set fields
// combine with AND. From and To are inclusive.
type Filter struct {
	ActorID   *int64
	TableName string
	RecordID  *int64
	Kind      Kind
	From      *time.Time
	To        *time.Time
	// Limit caps the number of entries returned; zero means no cap.
	Limit int
}

// Validate rejects combinations that cannot be answered.
func (f Filter) Validate() error {
	if f.RecordID != nil && f.TableName == "" {
		return fmt.Errorf("%w: record id requires a table name", ErrInvalidFilter)
	}
	if f.Kind != "" && !f.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidFilter, f.Kind)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	return nil
}

// Matches reports whether e satisfies every set restriction. Limit is not
// considered.
func (f Filter) Matches(e Entry) bool {
	if f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID) {
		return false
	}
	if f.TableName != "" && e.TableName != f.TableName {
		return false
	}
	if f.RecordID != nil && (e.RecordID == nil || *e.RecordID != *f.RecordID) {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	return true
}

// SingleUse wraps seq so that only the first range over it produces entries;
// later ranges yield ErrSequenceConsumed once.
func SingleUse(seq iter.Seq2[Entry, error]) iter.Seq2[Entry, error] {
	var used atomic.Bool
	return func(yield func(Entry, error) bool) {
		if used.Swap(true) {
			yield(Entry{}, ErrSequenceConsumed)
			return
		}
		seq(yield)
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[Entry, error]) ([]Entry, error) {
	var out []Entry
	for e, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}
