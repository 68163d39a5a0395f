package testutil

import (
	"context"
	"net/http"
	"time"

	"datatrail/pkg/requestcontext"
)

// WithUserID adds an authenticated user id to the request context, the way
// the auth middleware does for verified tokens.
func WithUserID(req *http.Request, userID int64) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithClient marks the request as coming from ip with the given user agent.
func WithClient(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}

// WithBearer stores a raw bearer token in the request context.
func WithBearer(req *http.Request, token string) *http.Request {
	return req.WithContext(requestcontext.WithBearerToken(req.Context(), token))
}

// RequestContext builds a request-scoped context at a fixed instant, for
// service tests that do not run the HTTP middleware chain.
func RequestContext(at time.Time, ip, userAgent string) context.Context {
	ctx := requestcontext.WithClientMetadata(context.Background(), ip, userAgent)
	ctx = requestcontext.WithRequestID(ctx, "test-request")
	return requestcontext.WithTime(ctx, at)
}
