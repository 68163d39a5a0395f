package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatrail/internal/auth/revocation"
	jwttoken "datatrail/internal/jwt_token"
	"datatrail/pkg/testutil"
)

type failingRevoker struct{}

func (failingRevoker) RevokeToken(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func newRouter(revoker Revoker) (*chi.Mux, *jwttoken.JWTService) {
	tokens := jwttoken.NewJWTService("test-signing-key-with-at-least-32-bytes", "datatrail-test")
	h := New(tokens, revoker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, tokens
}

func TestLogout(t *testing.T) {
	trl := revocation.NewInMemoryTRL(nil)
	router, tokens := newRouter(trl)
	token, claims, err := tokens.GenerateAccessToken(jwttoken.Subject{UserID: 42, Nombres: "Ana"}, time.Hour)
	require.NoError(t, err)

	testutil.Given(t, "an authenticated caller", func(t *testing.T) {
		req := testutil.WithBearer(testutil.NewRequest(t, http.MethodPost, "/auth/logout"), token)

		testutil.When(t, "they log out", func(t *testing.T) {
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "the token id is revoked", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusNoContent)
				revoked, err := trl.IsTokenRevoked(context.Background(), claims.ID)
				require.NoError(t, err)
				assert.True(t, revoked)
			})
		})
	})
}

func TestLogout_InvalidToken(t *testing.T) {
	router, _ := newRouter(revocation.NewInMemoryTRL(nil))
	req := testutil.WithBearer(testutil.NewRequest(t, http.MethodPost, "/auth/logout"), "garbage")

	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestLogout_RevocationFailure(t *testing.T) {
	router, tokens := newRouter(failingRevoker{})
	token, _, err := tokens.GenerateAccessToken(jwttoken.Subject{UserID: 42}, time.Hour)
	require.NoError(t, err)
	req := testutil.WithBearer(testutil.NewRequest(t, http.MethodPost, "/auth/logout"), token)

	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
}
