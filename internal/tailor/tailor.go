// Package tailor is the single entry point of the tailoring pipeline:
// extract keywords, distribute them into the résumé, reassemble and score.
package tailor

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"atstailor/internal/errors"
	"atstailor/internal/inject"
	"atstailor/internal/keywords"
	"atstailor/internal/resume"
	"atstailor/internal/scoring"
)

var tracer = otel.Tracer("atstailor/tailor")

// Warning flags a degraded but successful run.
type Warning string

const (
	WarningNoExperienceSection Warning = "NoExperienceSection"
	WarningNoKeywordsExtracted Warning = "NoKeywordsExtracted"
	// WarningNoExperienceBullets means the experience section has no bullet
	// lines, so only the summary and skills sections can be edited.
	WarningNoExperienceBullets Warning = "NoExperienceBullets"
)

// Extractor produces the keyword set of a job description.
type Extractor interface {
	Extract(ctx context.Context, text string, limit int) (keywords.Set, error)
	Dictionary() *keywords.Dictionary
}

type staticExtractor struct {
	ex *keywords.Extractor
}

// NewStaticExtractor adapts a keywords.Extractor to the Extractor interface.
func NewStaticExtractor(ex *keywords.Extractor) Extractor {
	return staticExtractor{ex: ex}
}

func (s staticExtractor) Extract(_ context.Context, text string, limit int) (keywords.Set, error) {
	return s.ex.Extract(text, limit), nil
}

func (s staticExtractor) Dictionary() *keywords.Dictionary {
	return s.ex.Dictionary()
}

// Report explains what a run changed.
type Report struct {
	Tallies    []inject.Tally     `json:"tallies"`
	Insertions []inject.Insertion `json:"insertions"`
	Passes     int                `json:"passes"`
	Warnings   []Warning          `json:"warnings"`
	Matched    []string           `json:"matched"`
	Missing    []string           `json:"missing"`
	Coverage   *scoring.Coverage  `json:"coverage,omitempty"`
}

// HasWarning reports whether w was raised.
func (r Report) HasWarning(w Warning) bool {
	for _, got := range r.Warnings {
		if got == w {
			return true
		}
	}
	return false
}

// Result is the outcome of Tailor.
type Result struct {
	TailoredResumeText string       `json:"tailoredResumeText"`
	KeywordSet         keywords.Set `json:"keywordSet"`
	MatchScore         int          `json:"matchScore"`
	OriginalScore      int          `json:"originalScore"`
	InjectionReport    Report       `json:"injectionReport"`
}

// Changed reports whether the tailored text differs from the input.
func (r *Result) Changed() bool {
	return len(r.InjectionReport.Insertions) > 0
}

// Engine runs the pipeline with a pluggable keyword extractor.
type Engine struct {
	extractor Extractor
	logger    *errors.Logger
}

// NewEngine creates an engine. A nil logger discards log output.
func NewEngine(ex Extractor, logger *errors.Logger) *Engine {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Engine{extractor: ex, logger: logger}
}

var defaultEngine = sync.OnceValue(func() *Engine {
	return NewEngine(NewStaticExtractor(keywords.NewExtractor(nil, keywords.DefaultOptions())), nil)
})

// Tailor runs the pipeline with the built-in dictionary.
func Tailor(resumeText, jobText string, opts Options) (*Result, error) {
	return defaultEngine().Tailor(context.Background(), resumeText, jobText, opts)
}

// Extract returns the keyword set of a job description.
func (e *Engine) Extract(ctx context.Context, jobText string, limit int) (keywords.Set, error) {
	if strings.TrimSpace(jobText) == "" {
		return keywords.EmptySet(), errors.NewValidationError(errors.ErrCodeInvalidInput, "job description text is empty", nil)
	}
	set, err := e.extractor.Extract(ctx, jobText, limit)
	if err != nil {
		return keywords.EmptySet(), errors.NewInternalError(errors.ErrCodeExtractionFailed, "keyword extraction failed", err)
	}
	return set, nil
}

// Score extracts keywords from jobText and scores resumeText against them.
func (e *Engine) Score(ctx context.Context, resumeText, jobText string, limit int) (scoring.Result, keywords.Set, error) {
	if err := checkInput(resumeText, jobText); err != nil {
		return scoring.Result{}, keywords.EmptySet(), err
	}
	set, err := e.Extract(ctx, jobText, limit)
	if err != nil {
		return scoring.Result{}, set, err
	}
	return scoring.Score(resumeText, set), set, nil
}

func checkInput(resumeText, jobText string) error {
	if strings.TrimSpace(resumeText) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "resume text is empty", nil)
	}
	if strings.TrimSpace(jobText) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "job description text is empty", nil)
	}
	return nil
}

// Tailor rewrites resumeText for jobText. Missing keywords or a missing
// experience section are reported as warnings and leave the text unchanged;
// only empty input is an error.
func (e *Engine) Tailor(ctx context.Context, resumeText, jobText string, opts Options) (*Result, error) {
	ctx, span := tracer.Start(ctx, "tailor.Tailor")
	defer span.End()
	start := time.Now()

	if err := checkInput(resumeText, jobText); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "invalid tailoring options", err)
	}

	set, err := e.Extract(ctx, jobText, opts.MaxKeywords)
	if err != nil {
		return nil, err
	}

	res := &Result{
		TailoredResumeText: resumeText,
		KeywordSet:         set,
		InjectionReport: Report{
			Tallies:    []inject.Tally{},
			Insertions: []inject.Insertion{},
			Warnings:   []Warning{},
			Matched:    []string{},
			Missing:    []string{},
		},
	}
	span.SetAttributes(attribute.Int("tailor.keywords", set.Len()))

	if set.IsEmpty() {
		res.InjectionReport.Warnings = append(res.InjectionReport.Warnings, WarningNoKeywordsExtracted)
		e.logger.Warn("No keywords extracted from job description", "job_length", len(jobText))
		return res, nil
	}

	original := scoring.Score(resumeText, set)
	res.OriginalScore = original.Percent
	res.MatchScore = original.Percent
	res.InjectionReport.Matched = original.Matched
	res.InjectionReport.Missing = original.Missing

	parsed := resume.Parse(resumeText)
	if !parsed.HasExperience() {
		res.InjectionReport.Warnings = append(res.InjectionReport.Warnings, WarningNoExperienceSection)
		e.logger.Warn("Resume has no experience section", "sections", len(parsed.Sections))
		return res, nil
	}

	if !hasBullets(parsed.Roles()) {
		res.InjectionReport.Warnings = append(res.InjectionReport.Warnings, WarningNoExperienceBullets)
		e.logger.Warn("Experience section has no bullets to edit", "roles", len(parsed.Roles()))
	}

	dist := inject.New(e.extractor.Dictionary(), opts.distributor())
	var report *inject.Result
	text := resumeText
	current := parsed
	for res.InjectionReport.Passes < opts.MaxPasses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pass := dist.Distribute(current, set)
		res.InjectionReport.Passes++
		if report == nil {
			report = pass
		} else {
			report.Absorb(pass)
		}
		if !pass.Changed() {
			break
		}
		text = current.ReassembleWith(opts.reassembly())
		if scoring.Score(text, set).Percent >= opts.TargetScore && allMet(report) {
			break
		}
		current = resume.Parse(text)
	}

	if len(report.Insertions) == 0 {
		text = resumeText
	}
	final := scoring.Score(text, set)
	coverage := scoring.BuildCoverage(resumeText, text, set, *opts.Targets)

	res.TailoredResumeText = text
	res.MatchScore = final.Percent
	res.InjectionReport.Tallies = report.Tallies
	res.InjectionReport.Insertions = report.Insertions
	res.InjectionReport.Matched = final.Matched
	res.InjectionReport.Missing = final.Missing
	res.InjectionReport.Coverage = &coverage

	span.SetAttributes(
		attribute.Int("tailor.insertions", len(report.Insertions)),
		attribute.Int("tailor.score", final.Percent),
	)
	e.logger.Debug("Tailoring completed",
		"keywords", set.Len(),
		"insertions", len(report.Insertions),
		"passes", res.InjectionReport.Passes,
		"original_score", res.OriginalScore,
		"match_score", res.MatchScore,
		"duration", time.Since(start))
	return res, nil
}

func hasBullets(roles []*resume.Role) bool {
	for _, r := range roles {
		if len(r.Bullets()) > 0 {
			return true
		}
	}
	return false
}

func allMet(r *inject.Result) bool {
	for _, t := range r.Tallies {
		if !t.MetTarget() {
			return false
		}
	}
	return true
}
