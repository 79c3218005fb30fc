package cli

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"atstailor/internal/common"
	"atstailor/internal/errors"
	"atstailor/internal/history"
	"atstailor/internal/tailor"
	"atstailor/internal/types"

	"github.com/spf13/cobra"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor [resume] [job-description...]",
	Short: "Tailor a résumé for one or more job descriptions",
	Long: `Tailor your résumé for a job description. Keywords from the job description
are worked into the experience bullets and the match score is reported before
and after.

Arguments are local paths, s3:// URIs or "-" for stdin. Plain text, Markdown,
PDF, DOCX and HTML documents are accepted. Several job descriptions produce one
result per job.`,
	Args: cobra.MinimumNArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if tailorConfig.OutputFormat == "" {
			tailorConfig.OutputFormat = cfg.App.DefaultFormat
		}
		if len(args) > 2 && tailorConfig.OutputFormat == "resume" {
			return errors.NewValidationError(errors.ErrCodeInvalidFormat,
				"resume format takes a single job description", nil)
		}
		return common.ValidateCommandFormat(tailorConfig.OutputFormat, cfg.App.SupportedFormats, true)
	},
	RunE: runTailor,
}

var (
	tailorConfig  common.CommandConfig
	tailorOptions optionFlags
)

func init() {
	tailorCmd.Flags().StringVarP(&tailorConfig.OutputFile, "output", "o", "", "Output file path or s3:// URI (default: stdout)")
	tailorCmd.Flags().StringVar(&tailorConfig.OutputFormat, "format", "", "Output format: json, text, markdown or resume")
	tailorOptions.register(tailorCmd)

	_ = tailorCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats, true), cobra.ShellCompDirectiveNoFileComp
	})
}

// tailorInput is one résumé and the job descriptions to tailor it for
type tailorInput struct {
	Resume common.Document
	Jobs   []common.Document
}

func runTailor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	opts, err := tailorOptions.options(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.LogError(err, "Failed to release resources")
		}
	}()

	createInput := func(docs []common.Document) (tailorInput, error) {
		if len(docs) < 2 {
			return tailorInput{}, fmt.Errorf("expected a résumé and at least one job description, got %d documents", len(docs))
		}
		return tailorInput{Resume: docs[0], Jobs: docs[1:]}, nil
	}

	logDetails := func(input tailorInput, cfg common.CommandConfig) {
		logger.Info("Starting resume tailoring",
			"resume", input.Resume.Source,
			"resume_chars", len(input.Resume.Text),
			"jobs", len(input.Jobs),
			"output_format", cfg.OutputFormat)
	}

	operation := func(ctx context.Context, input tailorInput) (any, error) {
		if len(input.Jobs) == 1 {
			job := input.Jobs[0]
			return a.service.Tailor(ctx, history.SourceCLI, job.Source, input.Resume.Text, job.Text, opts)
		}
		return tailorBatch(ctx, a, input, opts, cfg.App.BatchConcurrency)
	}

	if err := common.RunCommand(ctx, a.runner, tailorConfig, args, createInput, operation, logDetails); err != nil {
		return fmt.Errorf("failed to tailor resume: %w", err)
	}
	logger.Info("Resume tailoring completed successfully")
	return nil
}

// tailorBatch tailors one résumé for every job, at most concurrency at a time.
// Results keep the order of the jobs.
func tailorBatch(ctx context.Context, a *app, input tailorInput, opts *tailor.Options, concurrency int) (types.BatchOutput, error) {
	out := types.BatchOutput{
		Resume: input.Resume.Source,
		Runs:   make([]types.TailorOutput, len(input.Jobs)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, job := range input.Jobs {
		g.Go(func() error {
			run, err := a.service.Tailor(ctx, history.SourceCLI, job.Source, input.Resume.Text, job.Text, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Source, err)
			}
			out.Runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.BatchOutput{}, err
	}
	return out, nil
}
