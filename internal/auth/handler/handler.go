package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	jwttoken "datatrail/internal/jwt_token"
	dErrors "datatrail/pkg/domain-errors"
	"datatrail/pkg/platform/httputil"
	request "datatrail/pkg/platform/middleware/request"
	"datatrail/pkg/requestcontext"
)

// TokenValidator re-reads the caller's token to learn its expiry.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// Revoker records a logged-out token id.
type Revoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Handler serves the session endpoints.
type Handler struct {
	logger  *slog.Logger
	tokens  TokenValidator
	revoker Revoker
}

// New creates a new auth Handler.
func New(tokens TokenValidator, revoker Revoker, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		tokens:  tokens,
		revoker: revoker,
	}
}

// Register registers the auth routes. r is expected to run RequireAuth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
}

// handleLogout revokes the caller's token until it would have expired.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	claims, err := h.tokens.ValidateToken(requestcontext.BearerToken(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "logout with unusable token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.revoker.RevokeToken(ctx, claims.ID, ttl); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token"))
		return
	}

	h.logger.InfoContext(ctx, "token revoked",
		"request_id", requestID,
		"user_id", claims.UserID,
	)
	w.WriteHeader(http.StatusNoContent)
}
