package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// HTTPMiddleware records request counters and latency per chi route pattern
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := Global()
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrapped.status)
		path := routePattern(r)

		m.APIRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.APIRequestDurationSeconds.WithLabelValues(r.Method, path).Observe(duration)

		if wrapped.status >= 400 {
			m.APIErrorsTotal.WithLabelValues(categorizeStatus(wrapped.status)).Inc()
		}
	})
}

// routePattern uses the chi route pattern to keep label cardinality down.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

func categorizeStatus(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status == 429:
		return "rate_limited"
	case status == 401 || status == 403:
		return "auth_error"
	case status == 404:
		return "not_found"
	case status == 400:
		return "bad_request"
	case status >= 400:
		return "client_error"
	default:
		return "unknown"
	}
}
