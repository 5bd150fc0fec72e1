package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics and a
// debug line per request under route.
func MetricsMiddleware(next http.HandlerFunc, route string) http.HandlerFunc {
	log := logger.Get().Named("http")
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		metrics.RecordHTTPRequest(route, r.Method, wrapped.statusCode, elapsed)
		if wrapped.statusCode >= http.StatusBadRequest {
			metrics.RecordHTTPError(route, errorClass(wrapped.statusCode))
		}
		log.Debug(r.Context(), "request served",
			logger.String("route", route),
			logger.String("method", r.Method),
			logger.Int("status", wrapped.statusCode),
			logger.Int("bytes", wrapped.written),
			logger.Duration("elapsed", elapsed))
	}
}

// errorClass buckets an error status for the per-route error counter.
func errorClass(statusCode int) string {
	switch {
	case statusCode == http.StatusServiceUnavailable:
		return "unavailable"
	case statusCode >= http.StatusInternalServerError:
		return "server_error"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case statusCode == http.StatusNotFound:
		return "not_found"
	case statusCode == http.StatusConflict:
		return "conflict"
	case statusCode >= http.StatusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// responseWriter captures the status code and body size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
