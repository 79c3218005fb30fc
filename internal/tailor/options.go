package tailor

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"atstailor/internal/inject"
	"atstailor/internal/keywords"
	"atstailor/internal/resume"
)

var validate = validator.New()

// Options are the recognized tailoring options. Zero values take defaults.
type Options struct {
	MaxKeywords       int               `json:"maxKeywords,omitempty" yaml:"maxKeywords" validate:"gte=0,lte=200"`
	MaxBulletsPerRole int               `json:"maxBulletsPerRole,omitempty" yaml:"maxBulletsPerRole" validate:"gte=0,lte=50"`
	Targets           *keywords.Targets `json:"targets,omitempty" yaml:"targets"`
	// TargetScore stops further passes once the match score reaches it and
	// every keyword meets its minimum.
	TargetScore   int    `json:"targetScore,omitempty" yaml:"targetScore" validate:"gte=0,lte=100"`
	MaxPasses     int    `json:"maxPasses,omitempty" yaml:"maxPasses" validate:"gte=0,lte=10"`
	AppendSkills  bool   `json:"appendSkills,omitempty" yaml:"appendSkills"`
	AppendSummary bool   `json:"appendSummary,omitempty" yaml:"appendSummary"`
	Seed          uint64 `json:"seed,omitempty" yaml:"seed"`
	// BulletMarker rewrites every bullet marker when set.
	BulletMarker string `json:"bulletMarker,omitempty" yaml:"bulletMarker" validate:"omitempty,max=4"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	targets := keywords.DefaultTargets()
	return Options{
		MaxKeywords:       35,
		MaxBulletsPerRole: 6,
		Targets:           &targets,
		TargetScore:       90,
		MaxPasses:         3,
	}
}

// WithDefaults fills every zero field from DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.MaxKeywords == 0 {
		o.MaxKeywords = def.MaxKeywords
	}
	if o.MaxBulletsPerRole == 0 {
		o.MaxBulletsPerRole = def.MaxBulletsPerRole
	}
	if o.Targets == nil {
		o.Targets = def.Targets
	}
	if o.TargetScore == 0 {
		o.TargetScore = def.TargetScore
	}
	if o.MaxPasses == 0 {
		o.MaxPasses = def.MaxPasses
	}
	return o
}

// Validate checks option bounds and tier ranges.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return err
	}
	if o.Targets != nil {
		if err := o.Targets.Validate(); err != nil {
			return fmt.Errorf("targets: %w", err)
		}
	}
	return nil
}

func (o Options) distributor() inject.Options {
	opts := inject.DefaultOptions()
	opts.MaxBulletsPerRole = o.MaxBulletsPerRole
	opts.Targets = *o.Targets
	opts.Seed = o.Seed
	opts.AppendSkills = o.AppendSkills
	opts.AppendSummary = o.AppendSummary
	return opts
}

func (o Options) reassembly() resume.ReassembleOptions {
	return resume.ReassembleOptions{BulletMarker: o.BulletMarker}
}
