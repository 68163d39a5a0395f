package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	audit "datatrail/pkg/platform/audit"
	"datatrail/pkg/platform/sentinel"
	txcontext "datatrail/pkg/platform/tx"
)

const table = "audit_entries"

var columns = []string{
	"id", "table_name", "record_id", "field_name", "old_value", "new_value",
	"kind", "actor_name", "actor_id", "timestamp", "description",
	"ip_address", "user_agent",
}

// Store implements audit.Store over the audit_entries table. Writes join the
// transaction carried in the context when there is one.
type Store struct {
	db      *sql.DB
	builder squirrel.StatementBuilderType
}

var _ audit.Store = (*Store)(nil)

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts entry and sets its ID from the sequence.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	query, args, err := s.builder.
		Insert(table).
		Columns(columns[1:]...).
		Values(
			entry.TableName,
			entry.RecordID,
			entry.FieldName,
			entry.OldValue,
			entry.NewValue,
			string(entry.Kind),
			entry.ActorName,
			entry.ActorID,
			entry.Timestamp,
			entry.Description,
			entry.IPAddress,
			entry.UserAgent,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry: %w", err)
	}

	if err := s.execer(ctx).QueryRowContext(ctx, query, args...).Scan(&entry.ID); err != nil {
		return fmt.Errorf("insert audit entry: %w", mapError(err))
	}
	return nil
}

// Query streams matching rows; the result set is opened when iteration starts
// and closed when it ends.
func (s *Store) Query(ctx context.Context, filter audit.Filter) iter.Seq2[audit.Entry, error] {
	return func(yield func(audit.Entry, error) bool) {
		q := applyFilter(s.builder.Select(columns...).From(table), filter).
			OrderBy("timestamp DESC", "id ASC")
		if filter.Limit > 0 {
			q = q.Limit(uint64(filter.Limit))
		}
		query, args, err := q.ToSql()
		if err != nil {
			yield(audit.Entry{}, fmt.Errorf("build audit query: %w", err))
			return
		}

		rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
		if err != nil {
			yield(audit.Entry{}, fmt.Errorf("query audit entries: %w", mapError(err)))
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				yield(audit.Entry{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(audit.Entry{}, fmt.Errorf("iterate audit entries: %w", mapError(err)))
		}
	}
}

// Count returns the number of matching rows.
func (s *Store) Count(ctx context.Context, filter audit.Filter) (int, error) {
	query, args, err := applyFilter(s.builder.Select("COUNT(*)").From(table), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build audit count: %w", err)
	}
	var n int
	if err := s.execer(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", mapError(err))
	}
	return n, nil
}

func applyFilter(q squirrel.SelectBuilder, f audit.Filter) squirrel.SelectBuilder {
	if f.ActorID != nil {
		q = q.Where(squirrel.Eq{"actor_id": *f.ActorID})
	}
	if f.TableName != "" {
		q = q.Where(squirrel.Eq{"table_name": f.TableName})
	}
	if f.RecordID != nil {
		q = q.Where(squirrel.Eq{"record_id": *f.RecordID})
	}
	if f.Kind != "" {
		q = q.Where(squirrel.Eq{"kind": string(f.Kind)})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"timestamp": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.LtOrEq{"timestamp": *f.To})
	}
	return q
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (audit.Entry, error) {
	var (
		e    audit.Entry
		kind string
	)
	err := row.Scan(
		&e.ID,
		&e.TableName,
		&e.RecordID,
		&e.FieldName,
		&e.OldValue,
		&e.NewValue,
		&kind,
		&e.ActorName,
		&e.ActorID,
		&e.Timestamp,
		&e.Description,
		&e.IPAddress,
		&e.UserAgent,
	)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}
	e.Kind = audit.Kind(kind)
	return e, nil
}

// mapError tags connection-level failures as unavailable so callers can tell
// them apart from bad statements.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return fmt.Errorf("%w: %s: %w", sentinel.ErrUnavailable, pqErr.Code.Name(), err)
		}
		if pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}
