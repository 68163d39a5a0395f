//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"datatrail/internal/platform/migrations"
)

// PostgresContainer wraps a migrated PostgreSQL instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

var (
	pgOnce sync.Once
	pgC    *PostgresContainer
	pgErr  error
)

// GetPostgresContainer returns the shared PostgreSQL container with every
// embedded migration applied.
func GetPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	pgOnce.Do(func() {
		pgC, pgErr = startPostgres(context.Background())
	})
	if pgErr != nil {
		t.Fatalf("failed to start postgres container: %v", pgErr)
	}
	return pgC
}

func startPostgres(ctx context.Context) (*PostgresContainer, error) {
	container, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("datatrail"),
		tcpostgres.WithUsername("datatrail"),
		tcpostgres.WithPassword("datatrail"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, err
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	m, err := migrations.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := m.Up(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}, nil
}

// Truncate empties the named tables. The audit table refuses DELETE, but
// TRUNCATE does not fire row triggers.
func (p *PostgresContainer) Truncate(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
