package http

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *Handler) Routes() stdhttp.Handler {
	mux := stdhttp.NewServeMux()

	mux.HandleFunc("GET /api/get-comments", h.GetComments)
	mux.HandleFunc("POST /api/has-new-comments", h.HasNewComments)
	mux.HandleFunc("POST /api/add-comment", h.AddComment)
	mux.HandleFunc("POST /api/edit-comment", h.EditComment)
	mux.HandleFunc("POST /api/delete-comment", h.DeleteComment)
	mux.HandleFunc("POST /api/vote-comment", h.VoteComment)
	mux.HandleFunc("POST /api/admin/ban-user", h.BanUser)
	mux.HandleFunc("GET /api/server-health", h.ServerHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.reg, promhttp.HandlerOpts{}))

	return chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		h.accessLog,
		middleware.Recoverer,
	).Handler(mux)
}

// accessLog logs and counts every request once the mux has matched it.
func (h *Handler) accessLog(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}
		elapsed := time.Since(start)
		h.metrics.observe(route, status, elapsed)

		h.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}
