package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shelf-cms/shelf/config"
)

type sessionKey struct{}

// loadSession attaches the verified session to the request context.
// Requests without a valid session pass through with no session; the
// access guard decides what that means.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mgr := s.engine.Sessions(); mgr != nil {
			if data, err := mgr.Read(r); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), sessionKey{}, data))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAccess evaluates the access predicate. Browsers are sent to
// the sign-in page; API clients get a 401.
func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := config.RequestContext{Session: currentSession(r)}
		if !s.engine.IsAccessAllowed(rc) {
			if wantsHTML(r) && s.engine.Sessions() != nil {
				http.Redirect(w, r, "/signin", http.StatusFound)
				return
			}
			writeError(w, http.StatusUnauthorized, "access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// wantsHTML reports whether the client prefers an HTML response.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// statusWriter captures the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// logRequests logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// instrument records Prometheus metrics per request, labeled by route
// pattern rather than raw path to bound cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		s.metrics.RequestsInFlight.Inc()
		next.ServeHTTP(sw, r)
		s.metrics.RequestsInFlight.Dec()

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		status := strconv.Itoa(sw.status)

		s.metrics.RequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
		s.metrics.RequestDuration.WithLabelValues(r.Method, pattern, status).
			Observe(time.Since(start).Seconds())
	})
}
