package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace: "test",
		Subsystem: "unit",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollectorRequiresNamespace(t *testing.T) {
	t.Parallel()

	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	require.Error(t, err)
}

func TestCounterAppearsInScrape(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)
	counter := c.RegisterCounter("things_total", "Things counted", "kind")
	counter.WithLabelValues("solvent").Inc()
	counter.WithLabelValues("solvent").Add(2)

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_things_total{kind="solvent"} 3`)
}

func TestDuplicateRegistrationReturnsSameMetric(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)
	first := c.RegisterCounter("dups_total", "Duplicate registration", "kind")
	second := c.RegisterCounter("dups_total", "Duplicate registration", "kind")

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_dups_total{kind="a"} 2`)
}

func TestHistogramObservations(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)
	hist := c.RegisterHistogram("latency_seconds", "Latency", []float64{0.1, 1, 10})
	hist.WithLabelValues().Observe(0.05)
	hist.WithLabelValues().Observe(5)

	out := scrape(t, c)
	assert.Contains(t, out, "test_unit_latency_seconds_count 2")
}

func TestGaugeSetAndDec(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)
	gauge := c.RegisterGauge("active", "Active things", "kind")
	gauge.WithLabelValues("fit").Set(4)
	gauge.WithLabelValues("fit").Dec()

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_active{kind="fit"} 3`)
}

func TestFitObserverRecordsOutcome(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)
	metrics := NewAppMetrics(c)
	observer := NewFitObserver(metrics)

	observer.ObserveFit("sphere", "cross_entropy", 250*time.Millisecond, true)
	observer.ObserveFit("radius_only", "cross_entropy", 10*time.Millisecond, false)

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_fit_total{converged="true",loss="cross_entropy",mode="sphere"} 1`)
	assert.Contains(t, out, `test_unit_fit_total{converged="false",loss="cross_entropy",mode="radius_only"} 1`)
	assert.Contains(t, out, `test_unit_fit_duration_seconds_count{loss="cross_entropy",mode="sphere"} 1`)
}

func TestTimerObservesIntoHistogram(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)
	hist := c.RegisterHistogram("timed_seconds", "Timed section", nil)
	timer := NewTimer(hist.WithLabelValues())
	timer.ObserveDuration()

	out := scrape(t, c)
	assert.Contains(t, out, "test_unit_timed_seconds_count 1")
}
