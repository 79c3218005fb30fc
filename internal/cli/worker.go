package cli

import (
	"context"
	"fmt"
	"os"

	"atstailor/internal/errors"
	"atstailor/internal/worker"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process tailoring jobs from a message queue",
	Long: `Consume tailoring jobs from an AMQP queue. Each job names a résumé and a job
description by inline text or URI (local path or s3://). Status events are
published to the configured exchange with routing key job.<id>, and results
are written to the job's output URI when one is given.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

var workerCount int

func init() {
	workerCmd.Flags().IntVarP(&workerCount, "workers", "w", 0, "Concurrent jobs (default from config)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	if cfg.Queue.URL == "" {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "queue.url is required for the worker", nil)
	}
	if workerCount > 0 {
		cfg.Queue.Workers = workerCount
	}

	a, err := newApp(ctx, cfg, logger, appOptions{WatchDictionary: true, Observability: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.LogError(err, "Failed to release resources")
		}
	}()

	broker, err := worker.Dial(cfg.Queue)
	if err != nil {
		return err
	}
	defer func() {
		if err := broker.Close(); err != nil {
			logger.LogError(err, "Failed to close broker connection")
		}
	}()

	host, _ := os.Hostname()
	deliveries, err := broker.Deliveries(fmt.Sprintf("atstailor-%s-%d", host, os.Getpid()))
	if err != nil {
		return err
	}

	w := worker.New(cfg.Queue, a.service, a.runner.Loader, a.store, broker.Publisher(), logger).
		WithMetrics(a.om.Metrics())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	connErr := make(chan error, 1)
	go func() {
		if amqpErr, ok := <-broker.Closed(); ok && amqpErr != nil {
			connErr <- errors.NewQueueError(errors.ErrCodeQueueFailed, "broker connection lost", amqpErr)
			cancel()
		}
	}()

	logger.Info("Worker started", "queue", cfg.Queue.Queue, "exchange", cfg.Queue.Exchange, "workers", max(cfg.Queue.Workers, 1))
	if err := w.Run(ctx, deliveries); err != nil {
		return err
	}

	select {
	case err := <-connErr:
		return err
	default:
		logger.Info("Worker stopped")
		return nil
	}
}
