package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"atstailor/internal/errors"
	"atstailor/internal/tailor"
)

// optionFlags are the per-run overrides of the configured tailoring defaults
type optionFlags struct {
	file              string
	maxKeywords       int
	maxBulletsPerRole int
	targetScore       int
	maxPasses         int
	appendSkills      bool
	appendSummary     bool
	seed              uint64
	bulletMarker      string
}

func (f *optionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.file, "options", "", "YAML file with tailoring options")
	flags.IntVar(&f.maxKeywords, "max-keywords", 0, "Maximum number of keywords to extract")
	flags.IntVar(&f.maxBulletsPerRole, "max-bullets", 0, "Maximum bullets edited per role")
	flags.IntVar(&f.targetScore, "target-score", 0, "Stop once the match score reaches this percentage")
	flags.IntVar(&f.maxPasses, "max-passes", 0, "Maximum distribution passes")
	flags.BoolVar(&f.appendSkills, "append-skills", false, "Append unplaced keywords to the skills section")
	flags.BoolVar(&f.appendSummary, "append-summary", false, "Name missing high-priority keywords in the summary")
	flags.Uint64Var(&f.seed, "seed", 0, "Seed for deterministic phrasing choices")
	flags.StringVar(&f.bulletMarker, "bullet-marker", "", "Bullet marker for new lines")
}

// options builds the run options. It returns nil when nothing was overridden.
func (f *optionFlags) options(cmd *cobra.Command) (*tailor.Options, error) {
	var opts tailor.Options
	set := false

	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read options file", err).
				WithContext("path", f.file)
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "failed to parse options file", err).
				WithContext("path", f.file)
		}
		set = true
	}

	flags := cmd.Flags()
	if flags.Changed("max-keywords") {
		opts.MaxKeywords, set = f.maxKeywords, true
	}
	if flags.Changed("max-bullets") {
		opts.MaxBulletsPerRole, set = f.maxBulletsPerRole, true
	}
	if flags.Changed("target-score") {
		opts.TargetScore, set = f.targetScore, true
	}
	if flags.Changed("max-passes") {
		opts.MaxPasses, set = f.maxPasses, true
	}
	if flags.Changed("append-skills") {
		opts.AppendSkills, set = f.appendSkills, true
	}
	if flags.Changed("append-summary") {
		opts.AppendSummary, set = f.appendSummary, true
	}
	if flags.Changed("seed") {
		opts.Seed, set = f.seed, true
	}
	if flags.Changed("bullet-marker") {
		opts.BulletMarker, set = f.bulletMarker, true
	}

	if !set {
		return nil, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid options: %v", err), err)
	}
	return &opts, nil
}
