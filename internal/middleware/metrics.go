package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Labels: method, route (chi pattern), status
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plantcare",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "plantcare",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "route"})

	requestsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "plantcare",
		Subsystem: "http",
		Name:      "requests_in_progress",
		Help:      "HTTP requests currently being served",
	})

	// Labels: outcome (ok, invalid_image, schema_violation, quota_exceeded, service_unavailable, error)
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plantcare",
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Completed analysis runs by outcome",
	}, []string{"outcome"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "plantcare",
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Analysis run latency including the streamed inference call",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"outcome"})
)

// ObserveAnalysis records one analysis run.
func ObserveAnalysis(outcome string, d time.Duration) {
	analysesTotal.WithLabelValues(outcome).Inc()
	analysisDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestsInProgress.Inc()
		defer requestsInProgress.Dec()

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// MetricsHandler exposes the default registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
