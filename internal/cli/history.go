package cli

import (
	"context"

	"atstailor/internal/common"
	"atstailor/internal/errors"
	"atstailor/internal/history"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded tailoring runs",
	Long: `Inspect the run history. Only scores, counts and a hash of the job
description are recorded; résumé and job text are never stored.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if !cfg.History.Enabled {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig, "run history is disabled (set history.enabled)", nil)
		}
		if historyConfig.OutputFormat == "" {
			historyConfig.OutputFormat = "text"
		}
		return common.ValidateOutputFormat(historyConfig.OutputFormat, []string{"json", "text"})
	},
}

var (
	historyConfig common.CommandConfig
	historyLimit  int
)

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, a *app) (any, error) {
			return a.history.List(ctx, historyLimit)
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, a *app) (any, error) {
			run, err := a.history.Get(ctx, args[0])
			if err != nil {
				return nil, err
			}
			if historyConfig.OutputFormat == "text" {
				return []history.Run{run}, nil
			}
			return run, nil
		})
	},
}

var historySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize all runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, a *app) (any, error) {
			return a.history.Summary(ctx)
		})
	},
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyConfig.OutputFormat, "format", "", "Output format: json or text")
	historyCmd.PersistentFlags().StringVarP(&historyConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historySummaryCmd)
}

// withHistory runs fn against the history store and writes its result
func withHistory(cmd *cobra.Command, fn func(context.Context, *app) (any, error)) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, getConfigFromContext(ctx), getLoggerFromContext(ctx), appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	data, err := fn(ctx, a)
	if err != nil {
		return err
	}

	return a.runner.Output.HandleOutput(ctx, data, historyConfig)
}
