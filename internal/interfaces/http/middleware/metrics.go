package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts, durations and the number of in-flight
// requests. The route pattern is taken from chi after routing so that
// /api/v1/solvents/{solventID} stays a single label value.
func Metrics(metrics *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			active := metrics.HTTPActiveRequests.WithLabelValues(r.Method)
			active.Inc()
			defer active.Dec()

			ww := newWrappedResponseWriter(w)
			start := time.Now()
			next.ServeHTTP(ww, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			prometheus.RecordHTTPRequest(metrics, r.Method, path, ww.statusCode, time.Since(start))
		})
	}
}
