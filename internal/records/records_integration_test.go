//go:build integration

package records_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"datatrail/internal/records"
	"datatrail/internal/records/models"
	dErrors "datatrail/pkg/domain-errors"
	audit "datatrail/pkg/platform/audit"
	auditpg "datatrail/pkg/platform/audit/store/postgres"
	"datatrail/pkg/requestcontext"
	"datatrail/pkg/testutil/containers"
)

type PostgresRecordsSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	pool   *pgxpool.Pool
	trail  *auditpg.Store
	module *records.Module
	ctx    context.Context
}

func TestPostgresRecordsSuite(t *testing.T) {
	suite.Run(t, new(PostgresRecordsSuite))
}

func (s *PostgresRecordsSuite) SetupSuite() {
	s.pg = containers.GetPostgresContainer(s.T())
	pool, err := pgxpool.New(context.Background(), s.pg.DSN)
	s.Require().NoError(err)
	s.pool = pool
	s.trail = auditpg.New(s.pg.DB)
	s.module = records.New(records.PostgresStores(pool), records.Deps{
		Recorder: audit.NewWriter(s.trail),
	})
}

func (s *PostgresRecordsSuite) TearDownSuite() {
	s.pool.Close()
}

func (s *PostgresRecordsSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "relacion_conf", "persona_a_cargo", "contacto_emergencia", "estudio_academico",
		"vivienda", "vehiculo", "usuario", "audit_entries"))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
}

func (s *PostgresRecordsSuite) trailFor(table string, id int64) []audit.Entry {
	entries, err := audit.Collect(s.trail.Query(context.Background(), audit.Filter{TableName: table, RecordID: &id}))
	s.Require().NoError(err)
	return entries
}

func (s *PostgresRecordsSuite) newUsuario(cedula int64, correo string) *models.Usuario {
	u, err := s.module.Usuarios.Create(s.ctx, &models.Usuario{Nombre: "Ana Torres", Cedula: cedula, Correo: correo})
	s.Require().NoError(err)
	return u
}

func (s *PostgresRecordsSuite) TestUsuarioLifecycleLeavesTrail() {
	u := s.newUsuario(1020304050, "ana@example.com")
	s.NotZero(u.ID)
	s.Equal(1, u.Version)
	s.Require().NotNil(u.FechaActualizacion)

	cargo := "Analista"
	u.Cargo = &cargo
	u.Correo = "ana.torres@example.com"
	updated, err := s.module.Usuarios.Update(s.ctx, u.ID, u)
	s.Require().NoError(err)
	s.Equal(2, updated.Version)

	s.Require().NoError(s.module.Usuarios.Delete(s.ctx, u.ID))
	_, err = s.module.Usuarios.Get(s.ctx, u.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	entries := s.trailFor("USUARIO", u.ID)
	s.Require().Len(entries, 4)
	kinds := map[audit.Kind]int{}
	fields := map[string]bool{}
	for _, e := range entries {
		kinds[e.Kind]++
		if e.FieldName != nil {
			fields[*e.FieldName] = true
		}
	}
	s.Equal(map[audit.Kind]int{audit.KindCreate: 1, audit.KindUpdate: 2, audit.KindDelete: 1}, kinds)
	s.Equal(map[string]bool{"cargo": true, "correo": true}, fields)
}

func (s *PostgresRecordsSuite) TestUniqueAndReferenceViolations() {
	owner := s.newUsuario(1020304050, "ana@example.com")

	_, err := s.module.Usuarios.Create(s.ctx, &models.Usuario{Nombre: "Otra", Cedula: 1020304050, Correo: "otra@example.com"})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "duplicate documento: %v", err)

	_, err = s.module.Vehiculos.Create(s.ctx, &models.Vehiculo{
		IDUsuario: owner.ID + 1000, TipoVehiculo: "Automovil", Marca: "Mazda", Placa: "abc 123", Propietario: "Ana", Anio: 2020,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "unknown owner: %v", err)

	v, err := s.module.Vehiculos.Create(s.ctx, &models.Vehiculo{
		IDUsuario: owner.ID, TipoVehiculo: "Automovil", Marca: "Mazda", Placa: "abc 123", Propietario: "Ana", Anio: 2020,
	})
	s.Require().NoError(err)
	s.Equal("ABC123", v.Placa)

	err = s.module.Usuarios.Delete(s.ctx, owner.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "owner with vehicles: %v", err)
	s.Len(s.trailFor("USUARIO", owner.ID), 1, "refused delete is not audited")
}

func (s *PostgresRecordsSuite) TestListAndCount() {
	owner := s.newUsuario(1020304050, "ana@example.com")
	direccion := "Calle 10 # 5-20"
	for range 3 {
		_, err := s.module.Viviendas.Create(s.ctx, &models.Vivienda{IDUsuario: owner.ID, Direccion: &direccion})
		s.Require().NoError(err)
	}

	all, err := s.module.Viviendas.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
	s.Less(all[0].ID, all[2].ID)

	n, err := s.module.Viviendas.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), n)
}

func (s *PostgresRecordsSuite) TestDependentRecordsLeaveTrail() {
	owner := s.newUsuario(1020304050, "ana@example.com")
	programa := "Ingenieria de Sistemas"
	semestre := 8

	estudio, err := s.module.Estudios.Create(s.ctx, &models.EstudioAcademico{
		IDUsuario: owner.ID, NivelAcademico: "Profesional", Institucion: "Universidad de Antioquia", Programa: &programa, Semestre: &semestre,
	})
	s.Require().NoError(err)
	graduacion := "2024"
	estudio.Graduacion = &graduacion
	estudio.Semestre = nil
	_, err = s.module.Estudios.Update(s.ctx, estudio.ID, estudio)
	s.Require().NoError(err)

	contacto, err := s.module.Contactos.Create(s.ctx, &models.ContactoEmergencia{
		IDUsuario: owner.ID, NombreCompleto: "Marta Torres", NumeroCelular: "300 123 4567",
	})
	s.Require().NoError(err)
	s.Equal("3001234567", contacto.NumeroCelular)

	nacimiento := time.Date(2015, 3, 9, 0, 0, 0, 0, time.UTC)
	persona, err := s.module.Personas.Create(s.ctx, &models.PersonaACargo{
		IDUsuario: owner.ID, Nombre: "Sofia Torres", Parentesco: "Hija", FechaNacimiento: &nacimiento,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.module.Personas.Delete(s.ctx, persona.ID))

	relacion, err := s.module.Relaciones.Create(s.ctx, &models.RelacionConf{
		IDUsuario: owner.ID, NombreCompleto: "Luis Torres", TipoParteAsoc: "Proveedor",
	})
	s.Require().NoError(err)
	relacion.TieneCL = true
	_, err = s.module.Relaciones.Update(s.ctx, relacion.ID, relacion)
	s.Require().NoError(err)

	fields := func(table string, id int64) map[string][2]*string {
		out := map[string][2]*string{}
		for _, e := range s.trailFor(table, id) {
			if e.FieldName != nil {
				out[*e.FieldName] = [2]*string{e.OldValue, e.NewValue}
			}
		}
		return out
	}

	estudioChanges := fields("ESTUDIO_ACADEMICO", estudio.ID)
	s.Len(estudioChanges, 2)
	s.Equal("8", *estudioChanges["semestre"][0])
	s.Nil(estudioChanges["semestre"][1])
	s.Nil(estudioChanges["graduacion"][0])
	s.Equal("2024", *estudioChanges["graduacion"][1])

	s.Len(s.trailFor("CONTACTO_EMERGENCIA", contacto.ID), 1)

	personaTrail := s.trailFor("PERSONA_A_CARGO", persona.ID)
	s.Require().Len(personaTrail, 2)
	s.Equal(audit.KindCreate, personaTrail[0].Kind, "same instant, insertion order")
	s.Equal(audit.KindDelete, personaTrail[1].Kind)

	relacionChanges := fields("RELACION_CONF", relacion.ID)
	s.Equal("false", *relacionChanges["tiene_cl"][0])
	s.Equal("true", *relacionChanges["tiene_cl"][1])

	err = s.module.Usuarios.Delete(s.ctx, owner.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "owner with dependents: %v", err)
}

func (s *PostgresRecordsSuite) TestOwnerReassignmentIsNotAFieldChange() {
	first := s.newUsuario(1020304050, "ana@example.com")
	second := s.newUsuario(1020304051, "luis@example.com")

	c, err := s.module.Contactos.Create(s.ctx, &models.ContactoEmergencia{
		IDUsuario: first.ID, NombreCompleto: "Marta Torres", NumeroCelular: "3001234567",
	})
	s.Require().NoError(err)

	c.IDUsuario = second.ID
	moved, err := s.module.Contactos.Update(s.ctx, c.ID, c)
	s.Require().NoError(err)
	s.Equal(second.ID, moved.IDUsuario)

	entries := s.trailFor("CONTACTO_EMERGENCIA", c.ID)
	s.Require().Len(entries, 2)
	s.Equal(audit.KindUpdate, entries[1].Kind)
	s.Nil(entries[1].FieldName)
}
