// Package app assembles the server from configuration: stores, audit trail,
// token revocation, the Kafka mirror and the HTTP router.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"

	audithandler "datatrail/internal/audit/handler"
	authhandler "datatrail/internal/auth/handler"
	"datatrail/internal/auth/revocation"
	jwttoken "datatrail/internal/jwt_token"
	"datatrail/internal/platform/config"
	"datatrail/internal/platform/kafka"
	"datatrail/internal/platform/metrics"
	"datatrail/internal/platform/migrations"
	"datatrail/internal/platform/postgres"
	redisclient "datatrail/internal/platform/redis"
	"datatrail/internal/records"
	httptransport "datatrail/internal/transport/http"
	audit "datatrail/pkg/platform/audit"
	"datatrail/pkg/platform/audit/store/memory"
	auditpg "datatrail/pkg/platform/audit/store/postgres"
	"datatrail/pkg/platform/audit/stream"
)

const tracerName = "datatrail"

// App is a fully wired server. Close releases every connection it opened.
type App struct {
	Router   http.Handler
	Registry *prometheus.Registry

	logger  *slog.Logger
	closers []func() error
}

// New connects to every configured backend and builds the router. Backends
// left unconfigured fall back to in-memory implementations. On error every
// connection opened so far is closed and no App is returned.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{Registry: prometheus.NewRegistry(), logger: logger}
	defer func() {
		if err != nil {
			if cerr := a.Close(); cerr != nil {
				logger.WarnContext(ctx, "close after failed startup", "error", cerr)
			}
		}
	}()

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.New(a.Registry)
	checks := map[string]httptransport.HealthCheck{}

	trail, stores, err := a.openStores(ctx, cfg, checks)
	if err != nil {
		return nil, err
	}

	trl, err := a.openRevocation(ctx, cfg, checks)
	if err != nil {
		return nil, err
	}

	actors := audit.NewActorResolver(audit.WithActorLogger(logger))
	writerOpts := []audit.WriterOption{
		audit.WithLogger(logger),
		audit.WithMetrics(audit.NewMetrics(a.Registry)),
		audit.WithActors(actors),
	}
	client, err := a.openKafka(ctx, cfg, checks)
	if err != nil {
		return nil, err
	}
	if client != nil {
		writerOpts = append(writerOpts, audit.WithMirror(stream.New(client, cfg.Kafka.Topic)))
	}
	writer := audit.NewWriter(trail, writerOpts...)

	mod := records.New(stores, records.Deps{
		Recorder:      writer,
		Actors:        actors,
		Metrics:       httpMetrics,
		Logger:        logger,
		Tracer:        otel.Tracer(tracerName),
		IgnoredFields: cfg.Audit.IgnoredFields,
	})
	query := audit.NewQuery(trail,
		audit.WithQueryLogger(logger),
		audit.WithRecentLimit(cfg.Audit.RecentLimit),
	)
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)

	a.Router = httptransport.NewRouter(httptransport.Deps{
		Logger:      logger,
		Latency:     httpMetrics,
		Gatherer:    a.Registry,
		MetricsPath: cfg.Server.MetricsPath,
		Validator:   jwttoken.NewJWTServiceAdapter(tokens),
		Revocation:  trl,
		Auth:        authhandler.New(tokens, trl, logger),
		Records:     mod,
		Audit:       audithandler.New(query, cfg.Audit.MaxPageSize, logger),
		Checks:      checks,
	})
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config, checks map[string]httptransport.HealthCheck) (audit.Store, records.Stores, error) {
	if !cfg.Database.Enabled() {
		a.logger.WarnContext(ctx, "no database configured, records and audit trail are kept in memory")
		return memory.NewInMemoryStore(), records.MemoryStores(), nil
	}

	db, err := postgres.OpenDB(ctx, cfg.Database)
	if err != nil {
		return nil, records.Stores{}, err
	}
	a.closers = append(a.closers, db.Close)
	checks["postgres"] = db.PingContext

	if cfg.Database.MigrateOnStart {
		if err := migrate(ctx, db, a.logger); err != nil {
			return nil, records.Stores{}, err
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, records.Stores{}, err
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	return auditpg.New(db), records.PostgresStores(pool), nil
}

func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	m, err := migrations.New(db, logger)
	if err != nil {
		return err
	}
	return m.Up(ctx)
}

func (a *App) openRevocation(ctx context.Context, cfg *config.Config, checks map[string]httptransport.HealthCheck) (revocation.List, error) {
	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		a.logger.WarnContext(ctx, "no redis configured, revoked tokens are kept in memory")
		return revocation.NewInMemoryTRL(nil), nil
	}
	a.closers = append(a.closers, rc.Close)
	checks["redis"] = rc.Health
	return revocation.NewRedisTRL(rc.Client, revocation.WithRegisterer(a.Registry)), nil
}

func (a *App) openKafka(ctx context.Context, cfg *config.Config, checks map[string]httptransport.HealthCheck) (*kgo.Client, error) {
	client, err := kafka.NewClient(cfg.Kafka)
	if err != nil || client == nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		client.Close()
		return nil
	})
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka, a.logger); err != nil {
		return nil, fmt.Errorf("audit mirror: %w", err)
	}
	checks["kafka"] = func(ctx context.Context) error {
		return kafka.Health(ctx, client)
	}
	return client, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
