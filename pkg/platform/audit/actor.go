package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"datatrail/pkg/requestcontext"
)

// Claim names read from the caller's bearer token.
const (
	ClaimGivenNames     = "nombres"
	ClaimGivenName      = "nombre"
	ClaimSurnames       = "apellidos"
	ClaimIdentification = "identificacion"
	ClaimUserID         = "user_id"
)

// ActorResolver works out who is performing the current operation from the
// request context. Token claims are read without signature verification;
// authentication happens upstream.
type ActorResolver struct {
	parser *jwt.Parser
	logger *slog.Logger
}

// ActorOption configures an ActorResolver.
type ActorOption func(*ActorResolver)

// WithActorLogger sets the logger for debug output on fallbacks.
func WithActorLogger(logger *slog.Logger) ActorOption {
	return func(r *ActorResolver) {
		r.logger = logger
	}
}

// NewActorResolver creates an ActorResolver.
func NewActorResolver(opts ...ActorOption) *ActorResolver {
	r := &ActorResolver{
		parser: jwt.NewParser(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CurrentActor resolves the actor in order: bearer token claims, then the
// client address, then SYSTEM when no request is active. It never panics.
func (r *ActorResolver) CurrentActor(ctx context.Context) (actor Actor) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WarnContext(ctx, "actor resolution panicked", "panic", rec)
			actor = SystemActor()
		}
	}()

	if !requestcontext.InRequest(ctx) {
		return SystemActor()
	}
	if token := requestcontext.BearerToken(ctx); token != "" {
		if a, ok := r.fromToken(token); ok {
			return a
		}
		r.logger.DebugContext(ctx, "bearer token carried no usable actor claims",
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	ip := requestcontext.ClientIP(ctx)
	if ip == "" {
		ip = "unknown"
	}
	a := Actor{Name: "user from " + ip}
	if id, ok := requestcontext.UserID(ctx); ok {
		a.ID = &id
	}
	return a
}

func (r *ActorResolver) fromToken(token string) (Actor, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := r.parser.ParseUnverified(token, claims); err != nil {
		return Actor{}, false
	}

	var a Actor
	a.ID = numericClaim(claims, ClaimIdentification)
	if a.ID == nil {
		a.ID = numericClaim(claims, ClaimUserID)
	}

	given := stringClaim(claims, ClaimGivenNames)
	if given == "" {
		given = stringClaim(claims, ClaimGivenName)
	}
	a.Name = strings.TrimSpace(given + " " + stringClaim(claims, ClaimSurnames))
	if a.Name == "" {
		if ident := stringClaim(claims, ClaimIdentification); ident != "" {
			a.Name = "user " + ident
		}
	}
	if a.Name == "" {
		return Actor{}, false
	}
	return a, true
}

func stringClaim(claims jwt.MapClaims, name string) string {
	switch v := claims[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

func numericClaim(claims jwt.MapClaims, name string) *int64 {
	s := stringClaim(claims, name)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
