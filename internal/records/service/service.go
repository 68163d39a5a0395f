// Package service applies validation and error translation around the audited
// record repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"datatrail/internal/records/models"
	dErrors "datatrail/pkg/domain-errors"
	"datatrail/pkg/platform/sentinel"
	"datatrail/pkg/requestcontext"
)

// Repository is the audited repository for one record type.
type Repository[T any] interface {
	Create(ctx context.Context, rec *T) (*T, error)
	Update(ctx context.Context, id int64, rec *T) (*T, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*T, error)
	FindAll(ctx context.Context) ([]*T, error)
	Count(ctx context.Context) (int64, error)
}

type MutationCounter interface {
	IncRecordsMutated(table, operation string)
}

type options struct {
	metrics MutationCounter
	logger  *slog.Logger
}

type Option func(*options)

func WithMetrics(m MutationCounter) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Service serves one record type.
type Service[T any] struct {
	def     *models.Definition[T]
	repo    Repository[T]
	metrics MutationCounter
	logger  *slog.Logger
}

func New[T any](def *models.Definition[T], repo Repository[T], opts ...Option) *Service[T] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Service[T]{def: def, repo: repo, metrics: o.metrics, logger: o.logger}
}

// Table returns the audit table name of the record type.
func (s *Service[T]) Table() string {
	return s.def.Table
}

// Create stores a new record. Any id on rec is discarded.
func (s *Service[T]) Create(ctx context.Context, rec *T) (*T, error) {
	if err := s.prepare(rec); err != nil {
		return nil, err
	}
	s.def.SetID(rec, 0)
	saved, err := s.repo.Create(ctx, rec)
	if err != nil {
		return nil, s.translate(ctx, err, "create", 0)
	}
	s.count("create")
	return saved, nil
}

// Update replaces the record stored under id with rec.
func (s *Service[T]) Update(ctx context.Context, id int64, rec *T) (*T, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	if err := s.prepare(rec); err != nil {
		return nil, err
	}
	saved, err := s.repo.Update(ctx, id, rec)
	if err != nil {
		return nil, s.translate(ctx, err, "update", id)
	}
	s.count("update")
	return saved, nil
}

// Delete removes the record stored under id. Deleting a missing record
// succeeds.
func (s *Service[T]) Delete(ctx context.Context, id int64) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translate(ctx, err, "delete", id)
	}
	s.count("delete")
	return nil
}

func (s *Service[T]) Get(ctx context.Context, id int64) (*T, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, err, "get", id)
	}
	return rec, nil
}

func (s *Service[T]) List(ctx context.Context) ([]*T, error) {
	recs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, s.translate(ctx, err, "list", 0)
	}
	return recs, nil
}

func (s *Service[T]) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, s.translate(ctx, err, "count", 0)
	}
	return n, nil
}

func (s *Service[T]) prepare(rec *T) error {
	if rec == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if s.def.Normalize != nil {
		s.def.Normalize(rec)
	}
	if s.def.Validate == nil {
		return nil
	}
	if err := s.def.Validate(rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, validationMessage(err))
	}
	return nil
}

func (s *Service[T]) count(op string) {
	if s.metrics != nil {
		s.metrics.IncRecordsMutated(s.def.Table, op)
	}
}

func (s *Service[T]) translate(ctx context.Context, err error, op string, id int64) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	name := strings.ToLower(s.def.Table)
	switch {
	case errors.Is(err, sentinel.ErrNotFound) && op != "get":
		// a missing referenced record, e.g. an unknown id_usuario
		return dErrors.Wrap(err, dErrors.CodeValidation, name+" references a record that does not exist")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("%s %d not found", name, id))
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, name+" conflicts with an existing record")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeValidation, name+" violates a table constraint")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+" "+name+" timed out")
	}
	s.logger.ErrorContext(ctx, "record operation failed",
		"table", s.def.Table,
		"operation", op,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+op+" "+name)
}

func validID(id int64) error {
	if id <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "id must be a positive integer")
	}
	return nil
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), models.ErrInvalid.Error()+": ")
	return strings.ReplaceAll(msg, "\n", "; ")
}
