package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"datatrail/internal/platform/postgres"
	"datatrail/internal/records/models"
	"datatrail/pkg/platform/sentinel"
	"datatrail/pkg/requestcontext"
)

// PostgresStore keeps records of one type in the table named by its
// definition.
type PostgresStore[T any] struct {
	def *models.Definition[T]
	db  postgres.Querier
	sb  squirrel.StatementBuilderType
}

func NewPostgresStore[T any](db postgres.Querier, def *models.Definition[T]) *PostgresStore[T] {
	return &PostgresStore[T]{
		def: def,
		db:  db,
		sb:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Save inserts rec when it has no id. Otherwise it upserts on the id column,
// bumping the stored version.
func (s *PostgresStore[T]) Save(ctx context.Context, rec *T) (*T, error) {
	id := s.def.ID(rec)
	columns := append([]string(nil), s.def.Columns...)
	values := s.def.Values(rec)
	columns = append(columns, "version")
	values = append(values, 1)
	if s.def.TouchColumn != "" {
		columns = append(columns, s.def.TouchColumn)
		values = append(values, requestcontext.Now(ctx))
	}

	insert := s.sb.Insert(s.def.SQLTable)
	if id == 0 {
		insert = insert.Columns(columns...).Values(values...).Suffix("RETURNING *")
	} else {
		insert = insert.
			Columns(append([]string{s.def.IDColumn}, columns...)...).
			Values(append([]any{id}, values...)...).
			Suffix(s.upsertSuffix())
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build save %s: %w", s.def.SQLTable, err)
	}
	var out T
	if err := pgxscan.Get(ctx, s.db, &out, query, args...); err != nil {
		return nil, mapError(err, s.def.SQLTable, id)
	}
	return &out, nil
}

func (s *PostgresStore[T]) upsertSuffix() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ON CONFLICT (%s) DO UPDATE SET ", s.def.IDColumn)
	for _, c := range s.def.Columns {
		fmt.Fprintf(&b, "%s = EXCLUDED.%s, ", c, c)
	}
	if s.def.TouchColumn != "" {
		fmt.Fprintf(&b, "%s = EXCLUDED.%s, ", s.def.TouchColumn, s.def.TouchColumn)
	}
	fmt.Fprintf(&b, "version = %s.version + 1 RETURNING *", s.def.SQLTable)
	return b.String()
}

func (s *PostgresStore[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	query, args, err := s.sb.Select("*").
		From(s.def.SQLTable).
		Where(squirrel.Eq{s.def.IDColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find %s: %w", s.def.SQLTable, err)
	}
	var out T
	if err := pgxscan.Get(ctx, s.db, &out, query, args...); err != nil {
		return nil, mapError(err, s.def.SQLTable, id)
	}
	return &out, nil
}

// FindAll returns every record ordered by id.
func (s *PostgresStore[T]) FindAll(ctx context.Context) ([]*T, error) {
	query, args, err := s.sb.Select("*").
		From(s.def.SQLTable).
		OrderBy(s.def.IDColumn).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list %s: %w", s.def.SQLTable, err)
	}
	var out []*T
	if err := pgxscan.Select(ctx, s.db, &out, query, args...); err != nil {
		return nil, mapError(err, s.def.SQLTable, 0)
	}
	return out, nil
}

func (s *PostgresStore[T]) DeleteByID(ctx context.Context, id int64) error {
	query, args, err := s.sb.Delete(s.def.SQLTable).
		Where(squirrel.Eq{s.def.IDColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", s.def.SQLTable, err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// dependent rows still reference this one
			return fmt.Errorf("%s %d: %s: %w", s.def.SQLTable, id, pgErr.ConstraintName, sentinel.ErrConflict)
		}
		return mapError(err, s.def.SQLTable, id)
	}
	return nil
}

func (s *PostgresStore[T]) ExistsByID(ctx context.Context, id int64) (bool, error) {
	query, args, err := s.sb.Select("1").
		From(s.def.SQLTable).
		Where(squirrel.Eq{s.def.IDColumn: id}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists %s: %w", s.def.SQLTable, err)
	}
	var ok bool
	if err := s.db.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, mapError(err, s.def.SQLTable, id)
	}
	return ok, nil
}

func (s *PostgresStore[T]) Count(ctx context.Context) (int64, error) {
	query, args, err := s.sb.Select("COUNT(*)").From(s.def.SQLTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count %s: %w", s.def.SQLTable, err)
	}
	var n int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err, s.def.SQLTable, 0)
	}
	return n, nil
}

// mapError converts pgx errors to sentinel errors. Context errors pass
// through unchanged.
func mapError(err error, table string, id int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %d: %w", table, id, err)
	}
	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return fmt.Errorf("%s %d: %w", table, id, sentinel.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %d: %s: %w", table, id, pgErr.ConstraintName, sentinel.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %d: %s: %w", table, id, pgErr.ConstraintName, sentinel.ErrNotFound)
		case "23514", "23502": // check_violation, not_null_violation
			return fmt.Errorf("%s %d: %s: %w", table, id, pgErr.Message, sentinel.ErrInvalidState)
		}
		if strings.HasPrefix(pgErr.Code, "08") {
			return fmt.Errorf("%s %d: %w: %w", table, id, sentinel.ErrUnavailable, err)
		}
	}
	return fmt.Errorf("%s %d: %w", table, id, err)
}
