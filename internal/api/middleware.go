package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/terra-clan/impact-portal/internal/identity"
)

// loadSession attaches the viewer session to every request. Viewers without
// a cookie get a fresh anonymous session that handlers save when they change it.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Load(r)
		if err != nil {
			slog.Error("failed to load session", "error", err, "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusInternalServerError, "session_error", "failed to load session")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
	})
}

// requireSession rejects viewers that are not signed in
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).Authenticated() {
			respondError(w, http.StatusUnauthorized, "unauthorized", identity.ErrNoSession.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// metricsMiddleware records requests by their route pattern so path
// parameters do not explode label cardinality
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}
