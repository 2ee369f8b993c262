package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/dupscan/pkg/logger"
	"github.com/okian/dupscan/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class for one
// named endpoint. Endpoint names stay fixed so tenant and donor ids never
// become label values.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		durationMs := float64(time.Since(start).Milliseconds())
		code := strconv.Itoa(status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, durationMs)

		if class, ok := errorClass(status); ok {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, class)
			metrics.RecordErrorByType(class, severityOf(status))
			metrics.RecordErrorLatency("http", class, durationMs)
		}
	}
}

// RequestLogger logs one line per request with its status and latency. The
// request id set by middleware.RequestID is attached by the logger itself.
func RequestLogger(l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", status),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("elapsed", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				l.Error(r.Context(), "request failed", fields...)
				return
			}
			l.Debug(r.Context(), "request served", fields...)
		})
	}
}

// errorClass names the failure class of an error status, matching the codes
// written by writeServiceError.
func errorClass(status int) (string, bool) {
	switch {
	case status < http.StatusBadRequest:
		return "", false
	case status == http.StatusNotFound:
		return "not_found", true
	case status == http.StatusTooManyRequests:
		return "backpressure", true
	case status >= http.StatusInternalServerError:
		return "internal", true
	default:
		return "invalid_input", true
	}
}

func severityOf(status int) string {
	if status >= http.StatusInternalServerError {
		return "high"
	}
	return "medium"
}
