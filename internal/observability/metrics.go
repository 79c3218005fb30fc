package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"atstailor/internal/cache"
	"atstailor/internal/tailor"
)

// Metrics holds every application instrument. The zero value records nothing.
type Metrics struct {
	// HTTP
	Requests        metric.Int64Counter
	RequestErrors   metric.Int64Counter
	RequestDuration metric.Float64Histogram
	RateLimitHits   metric.Int64Counter

	// Tailoring
	TailorRuns     metric.Int64Counter
	TailorFailures metric.Int64Counter
	Insertions     metric.Int64Counter
	Warnings       metric.Int64Counter
	MatchScore     metric.Int64Histogram
	ScoreGain      metric.Int64Histogram
	TailorDuration metric.Float64Histogram

	// Queue
	QueueJobs metric.Int64Counter

	meter metric.Meter
}

// NewMetrics creates the application instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.Requests, "atstailor_http_requests_total", "Total number of HTTP requests"},
		{&m.RequestErrors, "atstailor_http_errors_total", "Total number of HTTP requests that failed"},
		{&m.RateLimitHits, "atstailor_rate_limit_hits_total", "Total number of rate limit hits"},
		{&m.TailorRuns, "atstailor_tailor_runs_total", "Total number of completed tailoring runs"},
		{&m.TailorFailures, "atstailor_tailor_failures_total", "Total number of failed tailoring runs"},
		{&m.Insertions, "atstailor_keyword_insertions_total", "Total number of keyword insertions"},
		{&m.Warnings, "atstailor_tailor_warnings_total", "Total number of tailoring warnings"},
		{&m.QueueJobs, "atstailor_queue_jobs_total", "Total number of queued jobs handled"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	m.RequestDuration, err = meter.Float64Histogram(
		"atstailor_http_request_duration_seconds",
		metric.WithDescription("Time spent serving HTTP requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration metric: %w", err)
	}

	m.TailorDuration, err = meter.Float64Histogram(
		"atstailor_tailor_duration_seconds",
		metric.WithDescription("Time spent tailoring one résumé"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tailor duration metric: %w", err)
	}

	scoreBuckets := metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100)
	m.MatchScore, err = meter.Int64Histogram(
		"atstailor_match_score",
		metric.WithDescription("ATS match score after tailoring"),
		metric.WithUnit("%"),
		scoreBuckets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create match score metric: %w", err)
	}

	m.ScoreGain, err = meter.Int64Histogram(
		"atstailor_match_score_gain",
		metric.WithDescription("Match score points gained by tailoring"),
		metric.WithUnit("%"),
		scoreBuckets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create score gain metric: %w", err)
	}

	return m, nil
}

// RecordRequest records one served HTTP request
func (m *Metrics) RecordRequest(ctx context.Context, route string, status int, duration time.Duration) {
	if m == nil || m.Requests == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.Requests.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, duration.Seconds(), attrs)
	if status >= 400 {
		m.RequestErrors.Add(ctx, 1, attrs)
	}
}

// RecordRateLimitHit records a rejected request. by is "ip" or "api_key".
func (m *Metrics) RecordRateLimitHit(ctx context.Context, by string) {
	if m == nil || m.RateLimitHits == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("by", by)))
}

// RecordTailorRun records a successful tailoring run from source
func (m *Metrics) RecordTailorRun(ctx context.Context, source string, res *tailor.Result, duration time.Duration) {
	if m == nil || m.TailorRuns == nil || res == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	report := res.InjectionReport

	m.TailorRuns.Add(ctx, 1, attrs)
	m.TailorDuration.Record(ctx, duration.Seconds(), attrs)
	m.MatchScore.Record(ctx, int64(res.MatchScore), attrs)
	m.ScoreGain.Record(ctx, int64(max(res.MatchScore-res.OriginalScore, 0)), attrs)
	if n := len(report.Insertions); n > 0 {
		m.Insertions.Add(ctx, int64(n), attrs)
	}
	for _, w := range report.Warnings {
		m.Warnings.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("warning", string(w)),
		))
	}
}

// RecordTailorFailure records a run that returned an error with the given code
func (m *Metrics) RecordTailorFailure(ctx context.Context, source, code string) {
	if m == nil || m.TailorFailures == nil {
		return
	}
	m.TailorFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("code", code),
	))
}

// RecordQueueJob records the final status of a queued job
func (m *Metrics) RecordQueueJob(ctx context.Context, status string) {
	if m == nil || m.QueueJobs == nil {
		return
	}
	m.QueueJobs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// ObserveCache exports keyword cache statistics as observable counters
func (m *Metrics) ObserveCache(stats func() cache.Stats) error {
	if m == nil || m.meter == nil || stats == nil {
		return nil
	}

	hits, err := m.meter.Int64ObservableCounter("atstailor_cache_hits_total",
		metric.WithDescription("Keyword cache hits, L1 and L2"))
	if err != nil {
		return fmt.Errorf("failed to create cache hits metric: %w", err)
	}
	misses, err := m.meter.Int64ObservableCounter("atstailor_cache_misses_total",
		metric.WithDescription("Keyword cache misses"))
	if err != nil {
		return fmt.Errorf("failed to create cache misses metric: %w", err)
	}
	cacheErrors, err := m.meter.Int64ObservableCounter("atstailor_cache_errors_total",
		metric.WithDescription("Remote keyword cache errors"))
	if err != nil {
		return fmt.Errorf("failed to create cache errors metric: %w", err)
	}
	entries, err := m.meter.Int64ObservableGauge("atstailor_cache_entries",
		metric.WithDescription("Entries in the in-process keyword cache"))
	if err != nil {
		return fmt.Errorf("failed to create cache entries metric: %w", err)
	}

	_, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(hits, s.Hits-s.L2Hits, metric.WithAttributes(attribute.String("tier", "l1")))
		o.ObserveInt64(hits, s.L2Hits, metric.WithAttributes(attribute.String("tier", "l2")))
		o.ObserveInt64(misses, s.Misses)
		o.ObserveInt64(cacheErrors, s.Errors)
		o.ObserveInt64(entries, int64(s.Entries))
		return nil
	}, hits, misses, cacheErrors, entries)
	if err != nil {
		return fmt.Errorf("failed to register cache callback: %w", err)
	}
	return nil
}
