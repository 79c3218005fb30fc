package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"atstailor/internal/cache"
	"atstailor/internal/config"
	"atstailor/internal/inject"
	"atstailor/internal/tailor"
)

func newTestManager(t *testing.T) (*ObservabilityManager, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	om, err := NewManagerWithReader(GetObservabilityConfig(nil, "test"), reader)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })
	return om, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T", m.Name, m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordTailorRun(t *testing.T) {
	om, reader := newTestManager(t)
	res := &tailor.Result{
		MatchScore:    80,
		OriginalScore: 30,
		InjectionReport: tailor.Report{
			Insertions: make([]inject.Insertion, 4),
			Warnings:   []tailor.Warning{tailor.WarningNoExperienceSection},
		},
	}

	om.Metrics().RecordTailorRun(context.Background(), "cli", res, 20*time.Millisecond)
	om.Metrics().RecordTailorFailure(context.Background(), "http", "INVALID_INPUT")

	got := collect(t, reader)
	assert.EqualValues(t, 1, sumOf(t, got["atstailor_tailor_runs_total"]))
	assert.EqualValues(t, 4, sumOf(t, got["atstailor_keyword_insertions_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["atstailor_tailor_warnings_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["atstailor_tailor_failures_total"]))

	hist, ok := got["atstailor_match_score_gain"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.EqualValues(t, 50, hist.DataPoints[0].Sum)
}

func TestRecordRequest(t *testing.T) {
	om, reader := newTestManager(t)
	m := om.Metrics()
	m.RecordRequest(context.Background(), "/tailor", http.StatusOK, time.Millisecond)
	m.RecordRequest(context.Background(), "/tailor", http.StatusBadRequest, time.Millisecond)
	m.RecordRateLimitHit(context.Background(), "ip")
	m.RecordQueueJob(context.Background(), "completed")

	got := collect(t, reader)
	assert.EqualValues(t, 2, sumOf(t, got["atstailor_http_requests_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["atstailor_http_errors_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["atstailor_rate_limit_hits_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["atstailor_queue_jobs_total"]))
}

func TestObserveCache(t *testing.T) {
	om, reader := newTestManager(t)
	require.NoError(t, om.Metrics().ObserveCache(func() cache.Stats {
		return cache.Stats{Hits: 7, L2Hits: 2, Misses: 3, Errors: 1, Entries: 5}
	}))

	got := collect(t, reader)
	assert.EqualValues(t, 7, sumOf(t, got["atstailor_cache_hits_total"]))
	assert.EqualValues(t, 3, sumOf(t, got["atstailor_cache_misses_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["atstailor_cache_errors_total"]))
}

func TestDisabledManagerIsNoOp(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)

	m := om.Metrics()
	require.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.RecordTailorRun(context.Background(), "cli", &tailor.Result{}, time.Second)
		m.RecordRequest(context.Background(), "/health", 200, time.Second)
		_ = m.ObserveCache(nil)
	})

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordRateLimitHit(context.Background(), "ip") })

	handler := om.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestGetObservabilityConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.ServiceName = "atstailor"
	cfg.Observability.Enabled = true
	cfg.Observability.SampleRate = 0.5
	cfg.Observability.Tracing.SampleRate = 0.25
	cfg.Observability.Prometheus.Enabled = true
	cfg.Observability.Prometheus.Port = "9191"

	got := GetObservabilityConfig(cfg, "1.2.3")
	assert.Equal(t, "1.2.3", got.ServiceVersion)
	assert.Equal(t, 0.25, got.SampleRate)
	assert.Equal(t, 15*time.Second, got.CollectionInterval)
	assert.Equal(t, "9191", got.Prometheus.Port)

	fallback := GetObservabilityConfig(nil, "dev")
	assert.False(t, fallback.Enabled)
	assert.Equal(t, "atstailor", fallback.ServiceName)
}

func TestPrometheusExporterServesMetrics(t *testing.T) {
	reader, mux, err := SetupPrometheusExporter(PrometheusConfig{Enabled: true, Endpoint: "/metrics"})
	require.NoError(t, err)
	require.NotNil(t, mux)

	om, err := NewManagerWithReader(GetObservabilityConfig(nil, "test"), reader)
	require.NoError(t, err)
	defer om.Shutdown(context.Background())
	om.Metrics().RecordQueueJob(context.Background(), "failed")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "atstailor_queue_jobs_total")

	disabledReader, disabledMux, err := SetupPrometheusExporter(PrometheusConfig{})
	require.NoError(t, err)
	assert.Nil(t, disabledReader)
	assert.Nil(t, disabledMux)
}
