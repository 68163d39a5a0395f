// Package handler serves the audit trail read API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "datatrail/pkg/domain-errors"
	audit "datatrail/pkg/platform/audit"
	"datatrail/pkg/platform/httputil"
	request "datatrail/pkg/platform/middleware/request"
)

const flushEvery = 100

// Querier is the read side of the audit trail.
type Querier interface {
	Entries(ctx context.Context, filter audit.Filter) (iter.Seq2[audit.Entry, error], error)
	Count(ctx context.Context, filter audit.Filter) (int, error)
	Recent(ctx context.Context) (iter.Seq2[audit.Entry, error], error)
}

// Handler serves audit reports.
type Handler struct {
	query       Querier
	maxPageSize int
	logger      *slog.Logger
}

// New creates a Handler. Listing requests return at most maxPageSize entries.
func New(query Querier, maxPageSize int, logger *slog.Logger) *Handler {
	return &Handler{query: query, maxPageSize: maxPageSize, logger: logger}
}

// Register registers the audit routes on r, which is expected to be mounted
// at /audit.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/recent", h.handleRecent)
	r.Get("/count", h.handleCount)
	r.Get("/actors/{actorID}", h.handleList)
	r.Get("/tables/{table}", h.handleList)
	r.Get("/kinds/{kind}", h.handleList)
	r.Get("/tables/{table}/records/{recordID}", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if filter.Limit == 0 || filter.Limit > h.maxPageSize {
		filter.Limit = h.maxPageSize
	}
	seq, err := h.query.Entries(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.stream(w, r, seq)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	seq, err := h.query.Recent(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.stream(w, r, seq)
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter.Limit = 0
	n, err := h.query.Count(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}

// stream writes seq as a JSON array without buffering it. The first entry is
// pulled before the status is written so an immediate failure still gets an
// error response; later failures end the array early and are logged.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, seq iter.Seq2[audit.Entry, error]) {
	ctx := r.Context()
	next, stop := iter.Pull2(seq)
	defer stop()

	first, err, ok := next()
	if ok && err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	clients := newClientCache()

	_, _ = w.Write([]byte("["))
	for n := 0; ok; n++ {
		if n > 0 {
			_, _ = w.Write([]byte(","))
		}
		if err := enc.Encode(viewOf(first, clients)); err != nil {
			h.logger.WarnContext(ctx, "audit stream write failed",
				"request_id", request.GetRequestID(ctx),
				"error", err,
			)
			return
		}
		if (n+1)%flushEvery == 0 {
			_ = rc.Flush()
		}

		first, err, ok = next()
		if ok && err != nil {
			h.logger.ErrorContext(ctx, "audit stream interrupted",
				"request_id", request.GetRequestID(ctx),
				"written", n+1,
				"error", err,
			)
			break
		}
	}
	_, _ = w.Write([]byte("]"))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, audit.ErrInvalidFilter) {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error()))
		return
	}
	h.logger.ErrorContext(r.Context(), "audit query failed",
		"request_id", request.GetRequestID(r.Context()),
		"error", err,
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail"))
}

// filterFrom reads the filter from the query string, then lets path
// parameters override it.
func (h *Handler) filterFrom(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	params := map[string]string{
		"actor_id":  q.Get("actor_id"),
		"table":     q.Get("table"),
		"record_id": q.Get("record_id"),
		"kind":      q.Get("kind"),
	}
	for key, name := range map[string]string{
		"actor_id":  "actorID",
		"table":     "table",
		"record_id": "recordID",
		"kind":      "kind",
	} {
		if v := chi.URLParam(r, name); v != "" {
			params[key], _ = url.PathUnescape(v)
		}
	}

	var f audit.Filter
	var err error
	if f.ActorID, err = optionalID(params["actor_id"], "actor_id"); err != nil {
		return f, err
	}
	if f.RecordID, err = optionalID(params["record_id"], "record_id"); err != nil {
		return f, err
	}
	f.TableName = strings.ToUpper(strings.TrimSpace(params["table"]))
	if k := params["kind"]; k != "" {
		if f.Kind, err = audit.ParseKind(k); err != nil {
			return f, dErrors.Wrap(err, dErrors.CodeInvalidInput, "unknown kind "+strconv.Quote(k))
		}
	}
	if f.From, err = optionalTime(q.Get("from"), "from", false); err != nil {
		return f, err
	}
	if f.To, err = optionalTime(q.Get("to"), "to", true); err != nil {
		return f, err
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}

func optionalID(v, name string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, name+" must be an integer")
	}
	return &id, nil
}

// optionalTime accepts RFC 3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day.
func optionalTime(v, name string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	d, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, name+" must be an RFC 3339 timestamp or a date")
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d, nil
}
