package http

import (
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/service"
)

type Handler struct {
	svc     service.CommentService
	log     zerolog.Logger
	reg     *prometheus.Registry
	metrics *metrics
}

type Option func(*Handler)

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithRegistry serves reg on /metrics and registers the request metrics in
// it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(h *Handler) { h.reg = reg }
}

func New(svc service.CommentService, opts ...Option) *Handler {
	h := &Handler{svc: svc, log: zlog.Logger}
	for _, opt := range opts {
		opt(h)
	}
	if h.reg == nil {
		h.reg = prometheus.NewRegistry()
	}
	h.metrics = newMetrics(h.reg)
	h.log = h.log.With().Str("component", "comment-http").Logger()
	return h
}

func (h *Handler) GetComments(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	q := r.URL.Query()

	key := model.PageKey{BookID: q.Get("book_id"), Page: 1, PageSize: 10}
	if v := q.Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, stdhttp.StatusBadRequest, "invalid page")
			return
		}
		key.Page = parsed
	}
	if v := q.Get("page_size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, stdhttp.StatusBadRequest, "invalid page_size")
			return
		}
		key.PageSize = parsed
	}

	res, err := h.svc.List(r.Context(), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, res)
}

func (h *Handler) HasNewComments(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req model.ProbeRequest
	if !decode(w, r, &req) {
		return
	}
	hit, err := h.svc.HasNew(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, model.ProbeResponse{HasNew: hit})
}

func (h *Handler) AddComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req model.AddRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := h.svc.Add(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusCreated, model.Result{Success: true})
}

func (h *Handler) EditComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req model.EditRequest
	if !decode(w, r, &req) {
		return
	}
	h.result(w, r, h.svc.Edit(r.Context(), req))
}

func (h *Handler) DeleteComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req model.DeleteRequest
	if !decode(w, r, &req) {
		return
	}
	h.result(w, r, h.svc.Delete(r.Context(), req))
}

func (h *Handler) VoteComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req model.VoteRequest
	if !decode(w, r, &req) {
		return
	}
	h.result(w, r, h.svc.Vote(r.Context(), req))
}

func (h *Handler) BanUser(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req model.BanRequest
	if !decode(w, r, &req) {
		return
	}
	h.result(w, r, h.svc.Ban(r.Context(), req))
}

func (h *Handler) ServerHealth(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if err := h.svc.Health(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("health check failed")
		writeJSON(w, stdhttp.StatusServiceUnavailable, model.HealthResponse{Success: false})
		return
	}
	writeJSON(w, stdhttp.StatusOK, model.HealthResponse{Success: true})
}

func (h *Handler) result(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, model.Result{Success: true})
}

func (h *Handler) fail(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, stdhttp.StatusBadRequest, "invalid input")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, stdhttp.StatusNotFound, "comment not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, stdhttp.StatusForbidden, "not allowed")
	case errors.Is(err, service.ErrBanned):
		writeError(w, stdhttp.StatusForbidden, "you are banned from commenting")
	case errors.Is(err, service.ErrDeleted):
		writeError(w, stdhttp.StatusConflict, "comment was deleted")
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, stdhttp.StatusInternalServerError, "internal error")
	}
}

func decode(w stdhttp.ResponseWriter, r *stdhttp.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, stdhttp.StatusBadRequest, "bad json")
		return false
	}
	return true
}

func writeError(w stdhttp.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.Result{Success: false, Message: msg})
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
