// Package handler exposes one record type as a JSON collection.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "datatrail/pkg/domain-errors"
	"datatrail/pkg/platform/httputil"
	request "datatrail/pkg/platform/middleware/request"
)

const maxBodyBytes = 1 << 20

// Service is the record service for one type.
type Service[T any] interface {
	Table() string
	Create(ctx context.Context, rec *T) (*T, error)
	Update(ctx context.Context, id int64, rec *T) (*T, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context) ([]*T, error)
	Count(ctx context.Context) (int64, error)
}

// Handler serves the collection routes for one record type.
type Handler[T any] struct {
	svc    Service[T]
	logger *slog.Logger
}

func New[T any](svc Service[T], logger *slog.Logger) *Handler[T] {
	return &Handler[T]{svc: svc, logger: logger}
}

// Register registers the collection routes on r, which is expected to be
// mounted at the collection path.
func (h *Handler[T]) Register(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/count", h.handleCount)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

func (h *Handler[T]) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}
	if recs == nil {
		recs = []*T{}
	}
	httputil.WriteJSON(w, http.StatusOK, recs)
}

func (h *Handler[T]) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		h.fail(w, r, "count", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.decode(w, r)
	if !ok {
		return
	}
	saved, err := h.svc.Create(r.Context(), rec)
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, saved)
}

func (h *Handler[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, ok := h.decode(w, r)
	if !ok {
		return
	}
	saved, err := h.svc.Update(r.Context(), id, rec)
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler[T]) decode(w http.ResponseWriter, r *http.Request) (*T, bool) {
	var rec T
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		h.logger.WarnContext(r.Context(), "invalid record body",
			"table", h.svc.Table(),
			"request_id", request.GetRequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &rec, true
}

func (h *Handler[T]) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.InfoContext(r.Context(), "record request rejected",
			"table", h.svc.Table(),
			"operation", op,
			"request_id", request.GetRequestID(r.Context()),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}
