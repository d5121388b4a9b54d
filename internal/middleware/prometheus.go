package middleware

import (
	"net/http"
	"time"

	"github.com/crucial707/dermalens/internal/metrics"
)

// Prometheus records request duration and count for each request.
// Metrics scrapes and health checks are not recorded.
func Prometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrap, r)

		switch r.URL.Path {
		case "/metrics", "/health", "/ready":
			return
		}
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		metrics.RecordRequest(r.Method, path, wrap.status, time.Since(start).Seconds())
	})
}
