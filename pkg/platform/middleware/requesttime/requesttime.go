// Package requesttime pins one "now" per HTTP request, so every audit entry
// written by a mutation carries the same instant.
package requesttime

import (
	"net/http"
	"time"

	"datatrail/pkg/requestcontext"
)

// Middleware stores the UTC wall-clock time at request start.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock is Middleware with an injectable clock.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
