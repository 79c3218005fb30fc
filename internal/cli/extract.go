package cli

import (
	"context"
	"fmt"

	"atstailor/internal/common"
	"atstailor/internal/types"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [job-description]",
	Short: "Extract the tiered keyword set of a job description",
	Long: `Extract the keywords an applicant tracking system is likely to match from a
job description, grouped into tiers: tech terms, multi-word phrases and
frequent important words.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if extractConfig.OutputFormat == "" {
			extractConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateCommandFormat(extractConfig.OutputFormat, cfg.App.SupportedFormats, false)
	},
	RunE: runExtract,
}

var (
	extractConfig common.CommandConfig
	extractLimit  int
)

func init() {
	extractCmd.Flags().StringVarP(&extractConfig.OutputFile, "output", "o", "", "Output file path or s3:// URI (default: stdout)")
	extractCmd.Flags().StringVar(&extractConfig.OutputFormat, "format", "", "Output format: json, text or markdown")
	extractCmd.Flags().IntVar(&extractLimit, "max-keywords", 0, "Maximum number of keywords (default from config)")

	_ = extractCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats, false), cobra.ShellCompDirectiveNoFileComp
	})
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	createInput := func(docs []common.Document) (common.Document, error) {
		return docs[0], nil
	}

	logDetails := func(job common.Document, cfg common.CommandConfig) {
		logger.Info("Extracting keywords",
			"job", job.Source,
			"job_chars", len(job.Text),
			"output_format", cfg.OutputFormat)
	}

	operation := func(ctx context.Context, job common.Document) (types.ExtractOutput, error) {
		set, err := a.service.Extract(ctx, job.Text, extractLimit)
		if err != nil {
			return types.ExtractOutput{}, err
		}
		return types.ExtractOutput{Job: job.Source, Keywords: set}, nil
	}

	if err := common.RunCommand(ctx, a.runner, extractConfig, args, createInput, operation, logDetails); err != nil {
		return fmt.Errorf("failed to extract keywords: %w", err)
	}
	return nil
}
