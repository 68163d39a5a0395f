package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatrail/internal/records/models"
	"datatrail/pkg/platform/sentinel"
)

var vehiculoColumns = []string{
	"id_vehiculo", "id_usuario", "tipo_vehiculo", "marca", "placa", "anio", "propietario", "version",
}

func newVehiculoStore(t *testing.T) (*PostgresStore[models.Vehiculo], pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewPostgresStore(mock, models.VehiculoDefinition), mock
}

func vehiculoRow(id int64, placa string, version int) *pgxmock.Rows {
	return pgxmock.NewRows(vehiculoColumns).
		AddRow(id, int64(7), "Automovil", "Mazda", placa, 2020, "Ana Torres", version)
}

func TestPostgresStore_SaveInserts(t *testing.T) {
	s, mock := newVehiculoStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"INSERT INTO vehiculo (id_usuario,tipo_vehiculo,marca,placa,anio,propietario,version) VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING *",
	)).
		WithArgs(int64(7), "Automovil", "Mazda", "ABC123", 2020, "Ana Torres", 1).
		WillReturnRows(vehiculoRow(12, "ABC123", 1))

	saved, err := s.Save(context.Background(), &models.Vehiculo{
		IDUsuario: 7, TipoVehiculo: "Automovil", Marca: "Mazda", Placa: "ABC123", Anio: 2020, Propietario: "Ana Torres",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), saved.ID)
	assert.Equal(t, 1, saved.Version)
}

func TestPostgresStore_SaveUpsertsOnID(t *testing.T) {
	s, mock := newVehiculoStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"ON CONFLICT (id_vehiculo) DO UPDATE SET id_usuario = EXCLUDED.id_usuario, ",
	) + ".*" + regexp.QuoteMeta("version = vehiculo.version + 1 RETURNING *")).
		WithArgs(int64(12), int64(7), "Automovil", "Mazda", "XYZ987", 2020, "Ana Torres", 1).
		WillReturnRows(vehiculoRow(12, "XYZ987", 4))

	saved, err := s.Save(context.Background(), &models.Vehiculo{
		ID: 12, IDUsuario: 7, TipoVehiculo: "Automovil", Marca: "Mazda", Placa: "XYZ987", Anio: 2020, Propietario: "Ana Torres", Version: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "XYZ987", saved.Placa)
	assert.Equal(t, 4, saved.Version)
}

func TestPostgresStore_SaveMapsConstraintErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{name: "unique", code: "23505", want: sentinel.ErrConflict},
		{name: "foreign key", code: "23503", want: sentinel.ErrNotFound},
		{name: "check", code: "23514", want: sentinel.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newVehiculoStore(t)
			mock.ExpectQuery("INSERT INTO vehiculo").
				WillReturnError(&pgconn.PgError{Code: tt.code, ConstraintName: "vehiculo_id_usuario_fkey"})

			_, err := s.Save(context.Background(), &models.Vehiculo{IDUsuario: 7})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPostgresStore_FindByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s, mock := newVehiculoStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM vehiculo WHERE id_vehiculo = $1")).
			WithArgs(int64(12)).
			WillReturnRows(vehiculoRow(12, "ABC123", 2))

		got, err := s.FindByID(context.Background(), 12)
		require.NoError(t, err)
		assert.Equal(t, "ABC123", got.Placa)
		assert.Equal(t, int64(7), got.IDUsuario)
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newVehiculoStore(t)
		mock.ExpectQuery("SELECT").
			WithArgs(int64(99)).
			WillReturnError(pgx.ErrNoRows)

		_, err := s.FindByID(context.Background(), 99)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgresStore_FindAll(t *testing.T) {
	s, mock := newVehiculoStore(t)
	rows := pgxmock.NewRows(vehiculoColumns).
		AddRow(int64(1), int64(7), "Moto", "Yamaha", "AAA11A", 2019, "Ana", 1).
		AddRow(int64(2), int64(7), "Automovil", "Kia", "BBB222", 2022, "Ana", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM vehiculo ORDER BY id_vehiculo")).
		WillReturnRows(rows)

	all, err := s.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "BBB222", all[1].Placa)
}

func TestPostgresStore_DeleteExistsCount(t *testing.T) {
	s, mock := newVehiculoStore(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM vehiculo WHERE id_vehiculo = $1")).
		WithArgs(int64(12)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM vehiculo WHERE id_vehiculo = $1 )")).
		WithArgs(int64(12)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM vehiculo")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))

	require.NoError(t, s.DeleteByID(ctx, 12))
	ok, err := s.ExistsByID(ctx, 12)
	require.NoError(t, err)
	assert.False(t, ok)
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil, "usuario", 1))

	err := mapError(context.DeadlineExceeded, "usuario", 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, sentinel.ErrNotFound)

	err = mapError(&pgconn.PgError{Code: "08006"}, "usuario", 1)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)

	plain := errors.New("syntax error")
	assert.ErrorIs(t, mapError(plain, "usuario", 1), plain)
}

func TestPostgresStore_UsuarioTouchesUpdateTime(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	s := NewPostgresStore(mock, models.UsuarioDefinition)

	mock.ExpectQuery(regexp.QuoteMeta("fecha_actualizacion = EXCLUDED.fecha_actualizacion, version = usuario.version + 1")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "usuario_correo_key"})

	_, err = s.Save(context.Background(), &models.Usuario{ID: 3, Nombre: "Ana", Cedula: 10, Correo: "ana@x.com"})
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	assert.Contains(t, err.Error(), "usuario_correo_key")
	assert.NoError(t, mock.ExpectationsWereMet())
}
