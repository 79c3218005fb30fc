package cli

import (
	"context"
	"fmt"

	"atstailor/internal/common"
	"atstailor/internal/types"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [resume] [job-description]",
	Short: "Score a résumé against a job description without changing it",
	Args:  cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if scoreConfig.OutputFormat == "" {
			scoreConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateCommandFormat(scoreConfig.OutputFormat, cfg.App.SupportedFormats, false)
	},
	RunE: runScore,
}

var (
	scoreConfig common.CommandConfig
	scoreLimit  int
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreConfig.OutputFile, "output", "o", "", "Output file path or s3:// URI (default: stdout)")
	scoreCmd.Flags().StringVar(&scoreConfig.OutputFormat, "format", "", "Output format: json, text or markdown")
	scoreCmd.Flags().IntVar(&scoreLimit, "max-keywords", 0, "Maximum number of keywords (default from config)")
}

type scoreInput struct {
	Resume common.Document
	Job    common.Document
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	createInput := func(docs []common.Document) (scoreInput, error) {
		return scoreInput{Resume: docs[0], Job: docs[1]}, nil
	}

	operation := func(ctx context.Context, in scoreInput) (types.ScoreOutput, error) {
		return a.service.Score(ctx, in.Resume.Text, in.Job.Text, scoreLimit)
	}

	if err := common.RunCommand(ctx, a.runner, scoreConfig, args, createInput, operation, nil); err != nil {
		return fmt.Errorf("failed to score resume: %w", err)
	}
	return nil
}
