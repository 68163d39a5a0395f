// Package audited wraps a plain CRUD store for one record type so that every
// create, update and delete leaves entries in the audit trail.
//
// The wrapper is generic: one Repository[T, ID] per record type, built from the
// plain store, the table name and the record's field schema. Audit writes are
// best effort. Callers only ever see errors from the primary mutation.
package audited

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	audit "datatrail/pkg/platform/audit"
	"datatrail/pkg/platform/sentinel"
	"datatrail/pkg/requestcontext"
)

const tracerName = "datatrail/pkg/platform/audited"

// Store is the plain repository for one record type. FindByID returns
// sentinel.ErrNotFound when the record does not exist.
type Store[T any, ID comparable] interface {
	Save(ctx context.Context, rec *T) (*T, error)
	FindByID(ctx context.Context, id ID) (*T, error)
	FindAll(ctx context.Context) ([]*T, error)
	DeleteByID(ctx context.Context, id ID) error
	ExistsByID(ctx context.Context, id ID) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// Recorder persists audit entries with best-effort semantics.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry) audit.Outcome
}

// Descriptor tells the wrapper how to read a record type.
type Descriptor[T any, ID comparable] struct {
	// Schema lists the fields compared on update. Required.
	Schema *audit.Schema[T]
	// Identity resolves the record id written to entries. Defaults to probing
	// Schema for conventional id fields.
	Identity *audit.IdentityResolver[T]
	// AssignID stamps the path id onto an incoming record before an update.
	AssignID func(rec *T, id ID)
}

// Repository is the audited wrapper around a Store.
type Repository[T any, ID comparable] struct {
	store    Store[T, ID]
	table    string
	desc     Descriptor[T, ID]
	recorder Recorder
	differ   *audit.Differ
	actors   audit.ActorSource
	logger   *slog.Logger
	tracer   trace.Tracer
}

type settings struct {
	differ *audit.Differ
	actors audit.ActorSource
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Repository.
type Option func(*settings)

// WithDiffer sets the field differ. Defaults to audit.NewDiffer().
func WithDiffer(d *audit.Differ) Option {
	return func(s *settings) {
		s.differ = d
	}
}

// WithActors sets the actor source shared by all entries of one mutation.
func WithActors(actors audit.ActorSource) Option {
	return func(s *settings) {
		s.actors = actors
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithTracer sets the tracer. Defaults to the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = tracer
	}
}

// New creates an audited repository for table.
func New[T any, ID comparable](store Store[T, ID], table string, desc Descriptor[T, ID], recorder Recorder, opts ...Option) *Repository[T, ID] {
	if desc.Schema == nil {
		panic(fmt.Sprintf("audited: repository for %s requires a schema", table))
	}
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.differ == nil {
		s.differ = audit.NewDiffer(audit.WithDifferLogger(s.logger))
	}
	if s.actors == nil {
		s.actors = audit.NewActorResolver(audit.WithActorLogger(s.logger))
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if desc.Identity == nil {
		desc.Identity = audit.NewIdentityResolver(desc.Schema)
	}
	return &Repository[T, ID]{
		store:    store,
		table:    table,
		desc:     desc,
		recorder: recorder,
		differ:   s.differ,
		actors:   s.actors,
		logger:   s.logger,
		tracer:   s.tracer,
	}
}

// Table returns the table name written to entries.
func (r *Repository[T, ID]) Table() string {
	return r.table
}

// Create saves rec and records one CREATE entry for the saved result.
func (r *Repository[T, ID]) Create(ctx context.Context, rec *T) (*T, error) {
	ctx, span := r.start(ctx, "Create")
	defer span.End()

	saved, err := r.store.Save(ctx, rec)
	if err != nil {
		return nil, fail(span, err)
	}
	r.emit(ctx, span, func(actor audit.Actor, at time.Time) []audit.Entry {
		return []audit.Entry{audit.NewCreateEntry(r.table, r.desc.Identity.Resolve(saved), actor, at)}
	})
	return saved, nil
}

// Update replaces the record stored under id with rec. When a record exists,
// the saved result is compared field by field against the snapshot loaded
// before the save and one UPDATE entry is recorded per changed field, or a
// single field-less entry when nothing changed. When no record exists, rec is
// saved as is and nothing is recorded.
func (r *Repository[T, ID]) Update(ctx context.Context, id ID, rec *T) (*T, error) {
	ctx, span := r.start(ctx, "Update")
	defer span.End()

	if r.desc.AssignID != nil {
		r.desc.AssignID(rec, id)
	}

	existing, err := r.store.FindByID(ctx, id)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fail(span, err)
	}
	if existing == nil {
		r.logger.DebugContext(ctx, "update of missing record saved without audit",
			"table", r.table,
			"request_id", requestcontext.RequestID(ctx),
		)
		saved, err := r.store.Save(ctx, rec)
		if err != nil {
			return nil, fail(span, err)
		}
		return saved, nil
	}
	before := *existing

	saved, err := r.store.Save(ctx, rec)
	if err != nil {
		return nil, fail(span, err)
	}
	r.emit(ctx, span, func(actor audit.Actor, at time.Time) []audit.Entry {
		changes := audit.Diff(ctx, r.differ, r.desc.Schema, &before, saved)
		span.SetAttributes(attribute.Int("audit.changed_fields", len(changes)))
		return audit.NewUpdateEntries(r.table, r.desc.Identity.Resolve(saved), actor, at, changes)
	})
	return saved, nil
}

// Delete removes the record stored under id and records one DELETE entry.
// Deleting a missing record is a no-op. The lookup and the delete are two
// store calls with no lock between them, so a concurrent delete landing in
// between still yields a DELETE entry from this call.
func (r *Repository[T, ID]) Delete(ctx context.Context, id ID) error {
	ctx, span := r.start(ctx, "Delete")
	defer span.End()

	existing, err := r.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) || (err == nil && existing == nil) {
		return nil
	}
	if err != nil {
		return fail(span, err)
	}

	if err := r.store.DeleteByID(ctx, id); err != nil {
		return fail(span, err)
	}
	r.emit(ctx, span, func(actor audit.Actor, at time.Time) []audit.Entry {
		return []audit.Entry{audit.NewDeleteEntry(r.table, r.desc.Identity.Resolve(existing), actor, at)}
	})
	return nil
}

// FindByID delegates to the plain store.
func (r *Repository[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	return r.store.FindByID(ctx, id)
}

// FindAll delegates to the plain store.
func (r *Repository[T, ID]) FindAll(ctx context.Context) ([]*T, error) {
	return r.store.FindAll(ctx)
}

// Exists delegates to the plain store.
func (r *Repository[T, ID]) Exists(ctx context.Context, id ID) (bool, error) {
	return r.store.ExistsByID(ctx, id)
}

// Count delegates to the plain store.
func (r *Repository[T, ID]) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx)
}

func (r *Repository[T, ID]) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "audited."+op, trace.WithAttributes(
		attribute.String("audit.table", r.table),
	))
}

// emit builds the entries for one mutation and records them. Every entry
// shares one timestamp and actor. Nothing here can fail the caller.
func (r *Repository[T, ID]) emit(ctx context.Context, span trace.Span, build func(audit.Actor, time.Time) []audit.Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			span.AddEvent("audit.panic")
			r.logger.ErrorContext(ctx, "audit entry construction panicked",
				"table", r.table,
				"panic", rec,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}()

	at := requestcontext.Now(ctx)
	actor := r.actors.CurrentActor(ctx)
	var failed int
	for _, e := range build(actor, at) {
		if out := r.recorder.Record(ctx, e); !out.OK() {
			failed++
		}
	}
	if failed > 0 {
		span.SetAttributes(attribute.Int("audit.failed_entries", failed))
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
