// Package httptransport assembles the HTTP surface: middleware chain, public
// probes, metrics and the authenticated API.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"datatrail/pkg/platform/httputil"
	authmw "datatrail/pkg/platform/middleware/auth"
	"datatrail/pkg/platform/middleware/metadata"
	request "datatrail/pkg/platform/middleware/request"
	"datatrail/pkg/platform/middleware/requesttime"
)

// Registrar registers routes on an already-mounted subrouter.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the pieces the router is assembled from. Nil registrars are
// skipped.
type Deps struct {
	Logger      *slog.Logger
	Latency     request.LatencyObserver
	Gatherer    prometheus.Gatherer
	MetricsPath string

	Validator  authmw.JWTValidator
	Revocation authmw.TokenRevocationChecker

	Auth    Registrar
	Records Registrar
	Audit   Registrar

	Checks map[string]HealthCheck
}

// NewRouter wires every endpoint.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	if d.Latency != nil {
		r.Use(request.Latency(d.Latency))
	}
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(d.Checks, d.Logger))
	if d.Gatherer != nil {
		r.Handle(d.MetricsPath, promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(authmw.RequireAuth(d.Validator, d.Revocation, d.Logger))
		for _, reg := range []Registrar{d.Auth, d.Records} {
			if reg != nil {
				reg.Register(api)
			}
		}
		if d.Audit != nil {
			api.Route("/audit", d.Audit.Register)
		}
	})
	return r
}

func readiness(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
				report[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, report)
	}
}
