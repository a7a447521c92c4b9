package control

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// instrument wraps next with Prometheus request counters/duration and
// permissive CORS headers, matching the control plane's open-listener
// posture (the overlay has no auth layer of its own).
func instrument(next http.Handler, metrics *Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if metrics == nil {
			return
		}
		duration := time.Since(start).Seconds()
		path := sanitizePath(r.URL.Path)
		status := strconv.Itoa(rec.status)
		metrics.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		metrics.RequestDurationSeconds.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// sanitizePath collapses dynamic path segments to keep metric label
// cardinality bounded.
func sanitizePath(path string) string {
	if strings.HasPrefix(path, "/scout/penalty") {
		return "/scout/penalty"
	}
	return path
}
