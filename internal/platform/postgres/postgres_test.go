package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatrail/internal/platform/config"
)

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgxmock.PgxPoolIface)(nil)
)

func TestNewPool_RejectsMalformedDSN(t *testing.T) {
	_, err := NewPool(context.Background(), config.DatabaseConfig{DSN: "postgres://trail@localhost:notaport/trail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database DSN")
}

func TestQuerier_MockRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE usuario`).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	var q Querier = mock
	tag, err := q.Exec(context.Background(), "UPDATE usuario SET nombre = 'Ana'")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tag.RowsAffected())
	assert.NoError(t, mock.ExpectationsWereMet())
}
