// Package records wires the personal-data record types to their stores, the
// audit trail and the HTTP API.
package records

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"datatrail/internal/platform/postgres"
	"datatrail/internal/records/handler"
	"datatrail/internal/records/models"
	"datatrail/internal/records/service"
	"datatrail/internal/records/store"
	audit "datatrail/pkg/platform/audit"
	"datatrail/pkg/platform/audited"
	strutil "datatrail/pkg/platform/strings"
)

// Deps are shared by every record type.
type Deps struct {
	Recorder audited.Recorder
	Actors   audit.ActorSource
	Metrics  service.MutationCounter
	Logger   *slog.Logger
	Tracer   trace.Tracer
	// IgnoredFields extend models.IgnoredFields for update diffs.
	IgnoredFields []string
}

// Stores holds the plain store of each record type.
type Stores struct {
	Usuarios   audited.Store[models.Usuario, int64]
	Vehiculos  audited.Store[models.Vehiculo, int64]
	Viviendas  audited.Store[models.Vivienda, int64]
	Estudios   audited.Store[models.EstudioAcademico, int64]
	Contactos  audited.Store[models.ContactoEmergencia, int64]
	Personas   audited.Store[models.PersonaACargo, int64]
	Relaciones audited.Store[models.RelacionConf, int64]
}

func MemoryStores() Stores {
	return Stores{
		Usuarios:   store.NewMemoryStore(models.UsuarioDefinition),
		Vehiculos:  store.NewMemoryStore(models.VehiculoDefinition),
		Viviendas:  store.NewMemoryStore(models.ViviendaDefinition),
		Estudios:   store.NewMemoryStore(models.EstudioAcademicoDefinition),
		Contactos:  store.NewMemoryStore(models.ContactoEmergenciaDefinition),
		Personas:   store.NewMemoryStore(models.PersonaACargoDefinition),
		Relaciones: store.NewMemoryStore(models.RelacionConfDefinition),
	}
}

func PostgresStores(db postgres.Querier) Stores {
	return Stores{
		Usuarios:   store.NewPostgresStore(db, models.UsuarioDefinition),
		Vehiculos:  store.NewPostgresStore(db, models.VehiculoDefinition),
		Viviendas:  store.NewPostgresStore(db, models.ViviendaDefinition),
		Estudios:   store.NewPostgresStore(db, models.EstudioAcademicoDefinition),
		Contactos:  store.NewPostgresStore(db, models.ContactoEmergenciaDefinition),
		Personas:   store.NewPostgresStore(db, models.PersonaACargoDefinition),
		Relaciones: store.NewPostgresStore(db, models.RelacionConfDefinition),
	}
}

// Module holds the services of all record types.
type Module struct {
	Usuarios   *service.Service[models.Usuario]
	Vehiculos  *service.Service[models.Vehiculo]
	Viviendas  *service.Service[models.Vivienda]
	Estudios   *service.Service[models.EstudioAcademico]
	Contactos  *service.Service[models.ContactoEmergencia]
	Personas   *service.Service[models.PersonaACargo]
	Relaciones *service.Service[models.RelacionConf]
	logger     *slog.Logger
}

func New(stores Stores, deps Deps) *Module {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Module{
		Usuarios:   NewService(models.UsuarioDefinition, stores.Usuarios, deps),
		Vehiculos:  NewService(models.VehiculoDefinition, stores.Vehiculos, deps),
		Viviendas:  NewService(models.ViviendaDefinition, stores.Viviendas, deps),
		Estudios:   NewService(models.EstudioAcademicoDefinition, stores.Estudios, deps),
		Contactos:  NewService(models.ContactoEmergenciaDefinition, stores.Contactos, deps),
		Personas:   NewService(models.PersonaACargoDefinition, stores.Personas, deps),
		Relaciones: NewService(models.RelacionConfDefinition, stores.Relaciones, deps),
		logger:     deps.Logger,
	}
}

// NewService builds the audited service of one record type over st.
func NewService[T any](def *models.Definition[T], st audited.Store[T, int64], deps Deps) *service.Service[T] {
	ignored := strutil.MergeNames(models.IgnoredFields, deps.IgnoredFields)
	opts := []audited.Option{
		audited.WithDiffer(audit.NewDiffer(
			audit.WithIgnoredFields(ignored...),
			audit.WithDifferLogger(deps.Logger),
		)),
		audited.WithLogger(deps.Logger),
	}
	if deps.Actors != nil {
		opts = append(opts, audited.WithActors(deps.Actors))
	}
	if deps.Tracer != nil {
		opts = append(opts, audited.WithTracer(deps.Tracer))
	}

	repo := audited.New(st, def.Table, audited.Descriptor[T, int64]{
		Schema:   def.Schema,
		Identity: def.Identity,
		AssignID: def.SetID,
	}, deps.Recorder, opts...)

	svcOpts := []service.Option{service.WithLogger(deps.Logger)}
	if deps.Metrics != nil {
		svcOpts = append(svcOpts, service.WithMetrics(deps.Metrics))
	}
	return service.New(def, repo, svcOpts...)
}

// Register mounts each collection under its path, e.g. /usuarios.
func (m *Module) Register(r chi.Router) {
	mount(r, models.UsuarioDefinition, m.Usuarios, m.logger)
	mount(r, models.VehiculoDefinition, m.Vehiculos, m.logger)
	mount(r, models.ViviendaDefinition, m.Viviendas, m.logger)
	mount(r, models.EstudioAcademicoDefinition, m.Estudios, m.logger)
	mount(r, models.ContactoEmergenciaDefinition, m.Contactos, m.logger)
	mount(r, models.PersonaACargoDefinition, m.Personas, m.logger)
	mount(r, models.RelacionConfDefinition, m.Relaciones, m.logger)
}

func mount[T any](r chi.Router, def *models.Definition[T], svc *service.Service[T], logger *slog.Logger) {
	r.Route("/"+def.Path, handler.New(svc, logger).Register)
}
