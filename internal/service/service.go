// Package service runs tailoring operations for every surface (CLI, HTTP,
// queue worker) and records their outcome in history and metrics.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"atstailor/internal/errors"
	"atstailor/internal/history"
	"atstailor/internal/keywords"
	"atstailor/internal/observability"
	"atstailor/internal/tailor"
	"atstailor/internal/types"
)

var tracer = otel.Tracer("atstailor/service")

// Service handles tailoring operations
type Service struct {
	engine   *tailor.Engine
	defaults tailor.Options
	history  *history.Store
	metrics  *observability.Metrics
	logger   *errors.Logger
}

// NewService creates a service. defaults fill every option a caller leaves zero.
func NewService(engine *tailor.Engine, defaults tailor.Options, logger *errors.Logger) *Service {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Service{
		engine:   engine,
		defaults: defaults.WithDefaults(),
		metrics:  &observability.Metrics{},
		logger:   logger,
	}
}

// WithHistory records every successful run in store
func (s *Service) WithHistory(store *history.Store) *Service {
	s.history = store
	return s
}

// WithMetrics reports runs to m
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	if m != nil {
		s.metrics = m
	}
	return s
}

// History returns the run store, nil when history is disabled
func (s *Service) History() *history.Store {
	return s.history
}

// Defaults returns the options used for zero fields
func (s *Service) Defaults() tailor.Options {
	return s.defaults
}

// Tailor tailors resumeText for jobText. job labels the job description in the output.
func (s *Service) Tailor(ctx context.Context, source history.Source, job, resumeText, jobText string, opts *tailor.Options) (types.TailorOutput, error) {
	ctx, span := tracer.Start(ctx, "service.Tailor")
	defer span.End()
	span.SetAttributes(
		attribute.String("tailor.source", string(source)),
		attribute.Int("tailor.resume_length", len(resumeText)),
		attribute.Int("tailor.job_length", len(jobText)),
	)

	start := time.Now()
	res, err := s.engine.Tailor(ctx, resumeText, jobText, s.merge(opts))
	if err != nil {
		code := errors.CodeOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		s.metrics.RecordTailorFailure(ctx, string(source), code)
		return types.TailorOutput{}, err
	}
	duration := time.Since(start)
	s.metrics.RecordTailorRun(ctx, string(source), res, duration)

	span.SetAttributes(
		attribute.Int("tailor.original_score", res.OriginalScore),
		attribute.Int("tailor.match_score", res.MatchScore),
		attribute.Int("tailor.insertions", len(res.InjectionReport.Insertions)),
	)
	s.logger.Debug("Tailored resume",
		"source", source,
		"job", job,
		"original_score", res.OriginalScore,
		"match_score", res.MatchScore,
		"insertions", len(res.InjectionReport.Insertions),
		"duration", duration)

	out := types.TailorOutput{Job: job, Result: res}
	if s.history != nil {
		run, err := s.history.Record(ctx, history.NewRun(source, jobText, res))
		if err != nil {
			// the tailored result is still returned
			s.logger.LogError(err, "Failed to record run", "source", source)
		} else {
			out.RunID = run.ID
		}
	}
	return out, nil
}

// Extract returns the keyword set of jobText. limit 0 uses the default.
func (s *Service) Extract(ctx context.Context, jobText string, limit int) (keywords.Set, error) {
	if limit == 0 {
		limit = s.defaults.MaxKeywords
	}
	return s.engine.Extract(ctx, jobText, limit)
}

// Score scores resumeText against the keywords of jobText. limit 0 uses the default.
func (s *Service) Score(ctx context.Context, resumeText, jobText string, limit int) (types.ScoreOutput, error) {
	if limit == 0 {
		limit = s.defaults.MaxKeywords
	}
	score, set, err := s.engine.Score(ctx, resumeText, jobText, limit)
	if err != nil {
		return types.ScoreOutput{}, err
	}
	return types.ScoreOutput{Score: score, Keywords: set}, nil
}

// merge fills zero fields of opts from the service defaults
func (s *Service) merge(opts *tailor.Options) tailor.Options {
	if opts == nil {
		return s.defaults
	}
	o := *opts
	d := s.defaults
	if o.MaxKeywords == 0 {
		o.MaxKeywords = d.MaxKeywords
	}
	if o.MaxBulletsPerRole == 0 {
		o.MaxBulletsPerRole = d.MaxBulletsPerRole
	}
	if o.Targets == nil {
		o.Targets = d.Targets
	}
	if o.TargetScore == 0 {
		o.TargetScore = d.TargetScore
	}
	if o.MaxPasses == 0 {
		o.MaxPasses = d.MaxPasses
	}
	if !o.AppendSkills {
		o.AppendSkills = d.AppendSkills
	}
	if !o.AppendSummary {
		o.AppendSummary = d.AppendSummary
	}
	if o.Seed == 0 {
		o.Seed = d.Seed
	}
	if o.BulletMarker == "" {
		o.BulletMarker = d.BulletMarker
	}
	return o
}
