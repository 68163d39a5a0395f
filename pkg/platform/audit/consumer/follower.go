// Package consumer reads the audit mirror topic back into entries, so tools can
// follow the trail live without polling the database.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "datatrail/pkg/platform/audit"
)

// Fetcher is the subset of *kgo.Client the follower needs.
type Fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
}

// Handler receives each matching entry. Returning an error stops the follower.
type Handler func(ctx context.Context, entry audit.Entry) error

// Follower polls the mirror topic and hands matching entries to a Handler.
type Follower struct {
	fetcher Fetcher
	filter  audit.Filter
	logger  *slog.Logger
	backoff time.Duration
}

const defaultBackoff = time.Second

// Option configures a Follower.
type Option func(*Follower)

// WithFilter only passes entries matching f. A positive f.Limit stops the
// follower after that many entries.
func WithFilter(f audit.Filter) Option {
	return func(fl *Follower) {
		fl.filter = f
	}
}

// WithBackoff sets the pause after a poll that returned only errors.
// Defaults to one second.
func WithBackoff(d time.Duration) Option {
	return func(fl *Follower) {
		fl.backoff = d
	}
}

// New creates a Follower over fetcher.
func New(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Follower {
	f := &Follower{fetcher: fetcher, logger: logger, backoff: defaultBackoff}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Run polls until ctx is done, the client is closed, the filter limit is
// reached or handle fails. Only a handler error is returned.
func (f *Follower) Run(ctx context.Context, handle Handler) error {
	seen := 0
	for {
		fetches := f.fetcher.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}
		failed := 0
		fetches.EachError(func(topic string, partition int32, err error) {
			failed++
			f.logger.WarnContext(ctx, "audit mirror fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		if failed > 0 && fetches.NumRecords() == 0 {
			if !pause(ctx, f.backoff) {
				return nil
			}
			continue
		}

		records := fetches.RecordIter()
		for !records.Done() {
			rec := records.Next()
			entry, err := Decode(rec)
			if err != nil {
				// Malformed records are skipped, the mirror is not the source of truth.
				f.logger.WarnContext(ctx, "skipping undecodable audit record",
					"topic", rec.Topic,
					"partition", rec.Partition,
					"offset", rec.Offset,
					"error", err,
				)
				continue
			}
			if !f.filter.Matches(entry) {
				continue
			}
			if err := handle(ctx, entry); err != nil {
				return err
			}
			seen++
			if f.filter.Limit > 0 && seen >= f.filter.Limit {
				return nil
			}
		}
	}
}

// pause waits for d and reports false when ctx ends first.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Decode parses a record produced by the stream publisher.
func Decode(rec *kgo.Record) (audit.Entry, error) {
	var e audit.Entry
	if err := json.Unmarshal(rec.Value, &e); err != nil {
		return audit.Entry{}, fmt.Errorf("decode audit record at offset %d: %w", rec.Offset, err)
	}
	if !e.Kind.IsValid() || e.TableName == "" {
		return audit.Entry{}, fmt.Errorf("audit record at offset %d is not an entry", rec.Offset)
	}
	return e, nil
}
