package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the service exports.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Sphere fitting
	FitTotal    CounterVec
	FitDuration HistogramVec

	// SMILES prediction
	PredictionsTotal   CounterVec
	PredictionDuration HistogramVec

	// Solvent database
	SolventImportsTotal CounterVec
	SolventCount        GaugeVec
	CacheHitsTotal      CounterVec
	CacheMissesTotal    CounterVec

	// Events
	EventsPublishedTotal CounterVec

	// Infrastructure
	DBPoolSize        GaugeVec
	DBPoolActive      GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	// Fits run a full differential-evolution search, so the buckets reach
	// well past the HTTP ones.
	DefaultFitDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.FitTotal = collector.RegisterCounter("fit_total", "Sphere fits run", "mode", "loss", "converged")
	m.FitDuration = collector.RegisterHistogram("fit_duration_seconds", "Sphere fit duration", DefaultFitDurationBuckets, "mode", "loss")

	m.PredictionsTotal = collector.RegisterCounter("predictions_total", "SMILES predictions", "status")
	m.PredictionDuration = collector.RegisterHistogram("prediction_duration_seconds", "SMILES prediction duration", DefaultHTTPDurationBuckets)

	m.SolventImportsTotal = collector.RegisterCounter("solvent_imports_total", "Solvent CSV import rows", "result")
	m.SolventCount = collector.RegisterGauge("solvent_count", "Solvents in the database", "source")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Domain events published", "event_type", "status")

	m.DBPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording helpers
// ─────────────────────────────────────────────────────────────────────────────

func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordPrediction(m *AppMetrics, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.PredictionsTotal.WithLabelValues(status).Inc()
	m.PredictionDuration.WithLabelValues().Observe(duration.Seconds())
}

func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordEventPublished(m *AppMetrics, eventType string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// ─────────────────────────────────────────────────────────────────────────────
// FitObserver
// ─────────────────────────────────────────────────────────────────────────────

// FitObserver adapts AppMetrics to the fitting service's metrics hook.
type FitObserver struct {
	metrics *AppMetrics
}

func NewFitObserver(metrics *AppMetrics) *FitObserver {
	return &FitObserver{metrics: metrics}
}

// ObserveFit records one completed sphere fit.
func (o *FitObserver) ObserveFit(mode, loss string, elapsed time.Duration, converged bool) {
	o.metrics.FitTotal.WithLabelValues(mode, loss, strconv.FormatBool(converged)).Inc()
	o.metrics.FitDuration.WithLabelValues(mode, loss).Observe(elapsed.Seconds())
}
