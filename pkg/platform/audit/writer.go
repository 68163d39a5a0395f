package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"datatrail/pkg/requestcontext"
)

// ActorSource resolves the actor for the current operation.
type ActorSource interface {
	CurrentActor(ctx context.Context) Actor
}

// Mirror receives entries after they have been stored, for downstream
// consumers such as report tooling.
type Mirror interface {
	Publish(ctx context.Context, entry Entry) error
}

// Outcome is the result of a best-effort write. Callers may inspect it, but a
// failed Outcome has already been logged and must not fail the business
// operation that triggered it.
type Outcome struct {
	Entry Entry
	Err   error
}

// OK reports whether the entry was stored.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Writer persists audit entries with best-effort semantics: one Append per
// Record call, failures logged and returned as an Outcome, never propagated.
type Writer struct {
	store   Store
	actors  ActorSource
	logger  *slog.Logger
	metrics *Metrics
	mirrors []Mirror
}

// WriterOption configures the Writer.
type WriterOption func(*Writer)

// WithLogger sets a logger for failure reporting.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) WriterOption {
	return func(w *Writer) {
		w.metrics = m
	}
}

// WithActors sets the source used when an entry has no actor.
func WithActors(actors ActorSource) WriterOption {
	return func(w *Writer) {
		w.actors = actors
	}
}

// WithMirror adds a sink that receives every stored entry.
func WithMirror(m Mirror) WriterOption {
	return func(w *Writer) {
		w.mirrors = append(w.mirrors, m)
	}
}

// NewWriter creates a Writer over store.
func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.actors == nil {
		w.actors = NewActorResolver(WithActorLogger(w.logger))
	}
	return w
}

// Record completes entry from the request context and stores it.
//
// Missing fields are filled as follows: Timestamp from the request-scoped
// clock, actor from the ActorSource, Description from the kind, IP address
// and user agent from the client metadata when a request is active.
func (w *Writer) Record(ctx context.Context, entry Entry) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Entry: entry, Err: fmt.Errorf("audit write panicked: %v", r)}
			w.fail(ctx, entry, out.Err)
		}
	}()

	w.complete(ctx, &entry)
	if err := validateEntry(entry); err != nil {
		w.fail(ctx, entry, err)
		return Outcome{Entry: entry, Err: err}
	}

	start := time.Now()
	if err := w.store.Append(ctx, &entry); err != nil {
		err = fmt.Errorf("append audit entry: %w", err)
		w.fail(ctx, entry, err)
		return Outcome{Entry: entry, Err: err}
	}
	if w.metrics != nil {
		w.metrics.ObservePersistDuration(time.Since(start).Seconds())
		w.metrics.IncWritten(entry.TableName, entry.Kind)
	}

	for _, m := range w.mirrors {
		if err := m.Publish(ctx, entry); err != nil {
			if w.metrics != nil {
				w.metrics.IncMirrorFailures()
			}
			w.logger.WarnContext(ctx, "audit mirror publish failed",
				"table", entry.TableName,
				"record_id", recordIDAttr(entry.RecordID),
				"kind", entry.Kind,
				"error", err,
			)
		}
	}
	return Outcome{Entry: entry}
}

func (w *Writer) complete(ctx context.Context, e *Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = requestcontext.Now(ctx)
	}
	if e.ActorName == "" {
		a := w.actors.CurrentActor(ctx)
		e.ActorName = a.Name
		if e.ActorID == nil {
			e.ActorID = a.ID
		}
	}
	if e.Description == "" {
		e.Description = Describe(e.Kind, e.TableName, e.FieldName)
	}
	if e.IPAddress == nil {
		if ip := requestcontext.ClientIP(ctx); ip != "" {
			e.IPAddress = &ip
		}
	}
	if e.UserAgent == nil {
		if ua := requestcontext.UserAgent(ctx); ua != "" {
			e.UserAgent = &ua
		}
	}
}

func (w *Writer) fail(ctx context.Context, e Entry, err error) {
	if w.metrics != nil {
		w.metrics.IncPersistFailures(e.TableName, e.Kind)
	}
	w.logger.ErrorContext(ctx, "audit entry not persisted",
		"table", e.TableName,
		"record_id", recordIDAttr(e.RecordID),
		"kind", e.Kind,
		"field", fieldAttr(e.FieldName),
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

func validateEntry(e Entry) error {
	var errs []error
	if e.TableName == "" {
		errs = append(errs, errors.New("table name is required"))
	}
	if !e.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("unknown kind %q", e.Kind))
	}
	if e.Kind != KindUpdate && e.FieldName != nil {
		errs = append(errs, fmt.Errorf("%s entries carry no field name", e.Kind))
	}
	return errors.Join(errs...)
}

func recordIDAttr(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func fieldAttr(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}
