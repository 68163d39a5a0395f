package audit

import (
	"context"
	"iter"
	"log/slog"
	"time"
)

// DefaultRecentLimit is how many entries Recent returns.
const DefaultRecentLimit = 50

// Query is the read-side service over stored entries. It is independent of the
// write path.
type Query struct {
	reader      Reader
	logger      *slog.Logger
	recentLimit int
}

// QueryOption configures a Query.
type QueryOption func(*Query)

// WithQueryLogger sets the logger.
func WithQueryLogger(logger *slog.Logger) QueryOption {
	return func(q *Query) {
		q.logger = logger
	}
}

// WithRecentLimit overrides DefaultRecentLimit.
func WithRecentLimit(n int) QueryOption {
	return func(q *Query) {
		if n > 0 {
			q.recentLimit = n
		}
	}
}

// NewQuery creates a Query over reader.
func NewQuery(reader Reader, opts ...QueryOption) *Query {
	q := &Query{
		reader:      reader,
		logger:      slog.Default(),
		recentLimit: DefaultRecentLimit,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Entries validates filter and returns a lazy, single-pass sequence of
// matching entries, newest first.
func (q *Query) Entries(ctx context.Context, filter Filter) (iter.Seq2[Entry, error], error) {
	if err := filter.Validate(); err != nil {
		q.logger.WarnContext(ctx, "rejected audit query", "error", err)
		return nil, err
	}
	return SingleUse(q.reader.Query(ctx, filter)), nil
}

// Count returns how many entries match filter.
func (q *Query) Count(ctx context.Context, filter Filter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	return q.reader.Count(ctx, filter)
}

// Recent returns the newest entries across all tables.
func (q *Query) Recent(ctx context.Context) (iter.Seq2[Entry, error], error) {
	return q.Entries(ctx, Filter{Limit: q.recentLimit})
}

// ByActor returns every entry credited to actorID.
func (q *Query) ByActor(ctx context.Context, actorID int64) (iter.Seq2[Entry, error], error) {
	return q.Entries(ctx, Filter{ActorID: &actorID})
}

// ByTable returns every entry for table.
func (q *Query) ByTable(ctx context.Context, table string) (iter.Seq2[Entry, error], error) {
	return q.Entries(ctx, Filter{TableName: table})
}

// ByKind returns every entry of kind.
func (q *Query) ByKind(ctx context.Context, kind Kind) (iter.Seq2[Entry, error], error) {
	return q.Entries(ctx, Filter{Kind: kind})
}

// ByRange returns entries with from <= timestamp <= to.
func (q *Query) ByRange(ctx context.Context, from, to time.Time) (iter.Seq2[Entry, error], error) {
	return q.Entries(ctx, Filter{From: &from, To: &to})
}

// ByRecord returns the history of one record.
func (q *Query) ByRecord(ctx context.Context, table string, recordID int64) (iter.Seq2[Entry, error], error) {
	return q.Entries(ctx, Filter{TableName: table, RecordID: &recordID})
}
