package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithandler "datatrail/internal/audit/handler"
	"datatrail/internal/auth/handler"
	"datatrail/internal/auth/revocation"
	jwttoken "datatrail/internal/jwt_token"
	"datatrail/internal/platform/metrics"
	"datatrail/internal/records"
	audit "datatrail/pkg/platform/audit"
	"datatrail/pkg/platform/audit/store/memory"
	"datatrail/pkg/testutil"
)

const secret = "router-test-signing-key-with-32-bytes!!"

type fixture struct {
	router http.Handler
	tokens *jwttoken.JWTService
}

func newFixture(t *testing.T, checks map[string]HealthCheck) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tokens := jwttoken.NewJWTService(secret, "datatrail-test")
	trl := revocation.NewInMemoryTRL(nil)
	trail := memory.NewInMemoryStore()

	mod := records.New(records.MemoryStores(), records.Deps{
		Recorder: audit.NewWriter(trail, audit.WithLogger(logger)),
		Metrics:  m,
		Logger:   logger,
	})
	router := NewRouter(Deps{
		Logger:      logger,
		Latency:     m,
		Gatherer:    reg,
		MetricsPath: "/metrics",
		Validator:   jwttoken.NewJWTServiceAdapter(tokens),
		Revocation:  trl,
		Auth:        handler.New(tokens, trl, logger),
		Records:     mod,
		Audit:       audithandler.New(audit.NewQuery(trail), 100, logger),
		Checks:      checks,
	})
	return fixture{router: router, tokens: tokens}
}

func (f fixture) token(t *testing.T) string {
	t.Helper()
	token, _, err := f.tokens.GenerateAccessToken(jwttoken.Subject{UserID: 42, Nombres: "Ana", Apellidos: "Torres"}, time.Hour)
	require.NoError(t, err)
	return token
}

func authed(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Forwarded-For", "10.1.2.3")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0")
	return req
}

func TestAPIRequiresToken(t *testing.T) {
	f := newFixture(t, nil)

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/usuarios"))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/audit"))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestMutationIsCreditedToCaller(t *testing.T) {
	f := newFixture(t, nil)
	token := f.token(t)

	testutil.Given(t, "an authenticated caller", func(t *testing.T) {
		testutil.When(t, "they create a usuario", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/api/usuarios",
				map[string]any{"nombre": "Luis Perez", "cedula": 99, "correo": "luis@x.com"})
			rr := testutil.DoRequest(f.router, authed(req, token))
			testutil.AssertStatus(t, rr, http.StatusCreated)
			assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

			testutil.Then(t, "the trail names them and their client", func(t *testing.T) {
				rr := testutil.DoRequest(f.router, authed(testutil.NewRequest(t, http.MethodGet, "/api/audit/tables/USUARIO"), token))
				testutil.AssertStatus(t, rr, http.StatusOK)
				entries := testutil.DecodeArray[map[string]any](t, rr)
				require.Len(t, entries, 1)
				assert.Equal(t, "Ana Torres", entries[0]["actor_name"])
				assert.Equal(t, float64(42), entries[0]["actor_id"])
				assert.Equal(t, "10.1.2.3", entries[0]["ip_address"])
				client, ok := entries[0]["client"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "Firefox", client["browser"])
			})
		})
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t, nil)
	token := f.token(t)

	rr := testutil.DoRequest(f.router, authed(testutil.NewRequest(t, http.MethodPost, "/api/auth/logout"), token))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.DoRequest(f.router, authed(testutil.NewRequest(t, http.MethodGet, "/api/vehiculos"), token))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestProbesAndMetrics(t *testing.T) {
	f := newFixture(t, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	})

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/readyz"))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	testutil.AssertJSONContains(t, rr, "redis", "unavailable")

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), "datatrail_http_request_duration_seconds")
}
