package handler

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "datatrail/pkg/platform/audit"
	"datatrail/pkg/platform/audit/store/memory"
	"datatrail/pkg/testutil"
)

const firefox = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0"

var base = time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)

func seed(t *testing.T) *memory.InMemoryStore {
	t.Helper()
	store := memory.NewInMemoryStore()
	ana, luis := int64(1), int64(2)
	ua := firefox
	rec := func(n int64) *int64 { return &n }
	entries := []audit.Entry{
		audit.NewCreateEntry("USUARIO", rec(10), audit.Actor{Name: "Ana", ID: &ana}, base),
		audit.NewCreateEntry("VEHICULO", rec(20), audit.Actor{Name: "Luis", ID: &luis}, base.Add(time.Hour)),
		audit.NewDeleteEntry("VEHICULO", rec(20), audit.Actor{Name: "Ana", ID: &ana}, base.Add(48*time.Hour)),
	}
	entries[0].UserAgent = &ua
	for i := range entries {
		require.NoError(t, store.Append(context.Background(), &entries[i]))
	}
	return store
}

func newRouter(q Querier, maxPage int) http.Handler {
	r := chi.NewRouter()
	r.Route("/audit", New(q, maxPage, slog.New(slog.NewTextHandler(io.Discard, nil))).Register)
	return r
}

func get(t *testing.T, h http.Handler, path string) []entryView {
	t.Helper()
	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, path))
	testutil.AssertStatus(t, rr, http.StatusOK)
	return testutil.DecodeArray[entryView](t, rr)
}

func ids(views []entryView) []int64 {
	out := make([]int64, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestListFilters(t *testing.T) {
	h := newRouter(audit.NewQuery(seed(t)), 1000)

	tests := []struct {
		path string
		want []int64
	}{
		{"/audit", []int64{3, 2, 1}},
		{"/audit?actor_id=1", []int64{3, 1}},
		{"/audit/actors/2", []int64{2}},
		{"/audit/tables/vehiculo", []int64{3, 2}},
		{"/audit/kinds/delete", []int64{3}},
		{"/audit/tables/VEHICULO/records/20", []int64{3, 2}},
		{"/audit?table=USUARIO&record_id=10", []int64{1}},
		{"/audit?from=2026-02-10T08:30:00Z", []int64{3, 2}},
		{"/audit?to=2026-02-10", []int64{2, 1}},
		{"/audit?limit=1", []int64{3}},
		{"/audit/tables/VIVIENDA", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(get(t, h, tt.path)))
		})
	}
}

func TestListCapsPageSize(t *testing.T) {
	h := newRouter(audit.NewQuery(seed(t)), 2)

	assert.Len(t, get(t, h, "/audit"), 2)
	assert.Len(t, get(t, h, "/audit?limit=500"), 2)
}

func TestRecentAndCount(t *testing.T) {
	h := newRouter(audit.NewQuery(seed(t), audit.WithRecentLimit(2)), 1000)

	assert.Equal(t, []int64{3, 2}, ids(get(t, h, "/audit/recent")))

	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/audit/count?table=VEHICULO&limit=1"))
	testutil.AssertJSONContains(t, rr, "count", float64(2))
}

func TestEntriesCarryClientSummary(t *testing.T) {
	h := newRouter(audit.NewQuery(seed(t)), 1000)

	views := get(t, h, "/audit/tables/USUARIO")
	require.Len(t, views, 1)
	require.NotNil(t, views[0].Client)
	assert.Equal(t, "Firefox", views[0].Client.Browser)
	assert.False(t, views[0].Client.Mobile)
	assert.Equal(t, "Creation of record in table USUARIO", views[0].Description)

	views = get(t, h, "/audit/kinds/DELETE")
	require.Len(t, views, 1)
	assert.Nil(t, views[0].Client)
}

func TestRejectedFilters(t *testing.T) {
	h := newRouter(audit.NewQuery(seed(t)), 1000)

	for _, path := range []string{
		"/audit?record_id=10",
		"/audit?kind=UPSERT",
		"/audit?actor_id=ana",
		"/audit?from=yesterday",
		"/audit?limit=-1",
		"/audit?from=2026-03-01&to=2026-02-01",
		"/audit/count?record_id=1",
	} {
		t.Run(path, func(t *testing.T) {
			rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, path))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
		})
	}
}

type brokenReader struct {
	after int
}

func (b brokenReader) Query(context.Context, audit.Filter) iter.Seq2[audit.Entry, error] {
	return func(yield func(audit.Entry, error) bool) {
		for i := range b.after {
			if !yield(audit.Entry{ID: int64(i + 1), Kind: audit.KindCreate}, nil) {
				return
			}
		}
		yield(audit.Entry{}, errors.New("connection reset"))
	}
}

func (brokenReader) Count(context.Context, audit.Filter) (int, error) {
	return 0, errors.New("connection reset")
}

func TestReadFailures(t *testing.T) {
	testutil.Given(t, "a store that fails immediately", func(t *testing.T) {
		h := newRouter(audit.NewQuery(brokenReader{}), 1000)

		testutil.Then(t, "the caller gets an internal error", func(t *testing.T) {
			rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/audit"))
			testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")

			rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/audit/count"))
			testutil.AssertStatus(t, rr, http.StatusInternalServerError)
		})
	})

	testutil.Given(t, "a store that fails mid-stream", func(t *testing.T) {
		h := newRouter(audit.NewQuery(brokenReader{after: 2}), 1000)

		testutil.Then(t, "the array is closed after the entries already sent", func(t *testing.T) {
			rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/audit"))
			testutil.AssertStatus(t, rr, http.StatusOK)
			assert.True(t, strings.HasSuffix(strings.TrimSpace(rr.Body.String()), "]"))
			assert.Equal(t, []int64{1, 2}, ids(testutil.DecodeArray[entryView](t, rr)))
		})
	})
}
