package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"datatrail/pkg/requestcontext"
)

func TestWithClock(t *testing.T) {
	bogota := time.FixedZone("COT", -5*3600)
	fixed := time.Date(2026, 4, 2, 10, 0, 0, 0, bogota)

	var first, second time.Time
	h := WithClock(func() time.Time { return fixed })(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		second = requestcontext.Now(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, fixed.Equal(first))
	assert.Equal(t, time.UTC, first.Location())
	assert.Equal(t, first, second, "one instant per request")
}
