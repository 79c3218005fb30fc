// Package worker consumes tailoring jobs from an AMQP queue and publishes
// their progress to a topic exchange.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"atstailor/internal/common"
	"atstailor/internal/config"
	"atstailor/internal/errors"
	"atstailor/internal/history"
	"atstailor/internal/observability"
	"atstailor/internal/service"
	"atstailor/internal/storage"
	"atstailor/internal/types"
)

var validate = validator.New()

// Worker runs a pool of consumers over one delivery channel.
type Worker struct {
	cfg       config.QueueConfig
	svc       *service.Service
	loader    *common.DocumentLoader
	store     *storage.Store
	publisher Publisher
	metrics   *observability.Metrics
	logger    *errors.Logger
	now       func() time.Time
}

// New creates a worker. Documents named by URI are read with loader and
// tailored output is written with store.
func New(cfg config.QueueConfig, svc *service.Service, loader *common.DocumentLoader, store *storage.Store, publisher Publisher, logger *errors.Logger) *Worker {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Worker{
		cfg:       cfg,
		svc:       svc,
		loader:    loader,
		store:     store,
		publisher: publisher,
		metrics:   &observability.Metrics{},
		logger:    logger,
		now:       time.Now,
	}
}

// WithMetrics reports handled jobs to m
func (w *Worker) WithMetrics(m *observability.Metrics) *Worker {
	if m != nil {
		w.metrics = m
	}
	return w
}

// Run consumes deliveries with cfg.Workers goroutines until ctx is done or
// the channel closes. Jobs already started are finished before Run returns.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	n := max(w.cfg.Workers, 1)
	g, ctx := errgroup.WithContext(ctx)
	for i := range n {
		id := i + 1
		g.Go(func() error {
			w.logger.Info("Queue consumer started", "worker_id", id, "queue", w.cfg.Queue)
			defer w.logger.Debug("Queue consumer stopped", "worker_id", id)
			return w.consume(ctx, id, deliveries)
		})
	}
	return g.Wait()
}

func (w *Worker) consume(ctx context.Context, id int, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			// a started job is not cut short by shutdown
			w.handle(context.WithoutCancel(ctx), id, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, workerID int, d amqp.Delivery) {
	job, err := DecodeJob(d.Body)
	if err != nil {
		w.logger.LogError(err, "Rejecting malformed job", "worker_id", workerID, "delivery_tag", d.DeliveryTag)
		if job.ID != "" {
			w.publish(ctx, w.failed(job, err))
		}
		w.metrics.RecordQueueJob(ctx, string(types.StatusFailed))
		if err := d.Reject(false); err != nil {
			w.logger.LogError(err, "Failed to reject delivery", "delivery_tag", d.DeliveryTag)
		}
		return
	}

	w.logger.Info("Processing job", "worker_id", workerID, "job_id", job.ID, "redelivered", d.Redelivered)
	w.publish(ctx, types.TailorEvent{JobID: job.ID, Status: types.StatusProcessing, Timestamp: w.timestamp()})

	event := w.Process(ctx, job)
	w.publish(ctx, event)
	w.metrics.RecordQueueJob(ctx, string(event.Status))

	if err := d.Ack(false); err != nil {
		w.logger.LogError(err, "Failed to ack delivery", "job_id", job.ID)
	}
}

// Process runs one job and returns its final event. Failures are reported in
// the event, never returned.
func (w *Worker) Process(ctx context.Context, job types.TailorJob) types.TailorEvent {
	resumeText, err := w.text(ctx, job.ResumeText, job.ResumeURI)
	if err != nil {
		return w.failed(job, err)
	}
	jobText, err := w.text(ctx, job.JobText, job.JobURI)
	if err != nil {
		return w.failed(job, err)
	}

	label := job.JobURI
	if label == "" {
		label = job.ID
	}
	out, err := w.svc.Tailor(ctx, history.SourceWorker, label, resumeText, jobText, job.Options)
	if err != nil {
		return w.failed(job, err)
	}

	if job.OutputURI != "" {
		if err := w.store.Put(ctx, job.OutputURI, []byte(out.Result.TailoredResumeText), common.ContentType("resume")); err != nil {
			return w.failed(job, err)
		}
	}

	warnings := make([]string, 0, len(out.Result.InjectionReport.Warnings))
	for _, warn := range out.Result.InjectionReport.Warnings {
		warnings = append(warnings, string(warn))
	}
	score := out.Result.MatchScore
	w.logger.Info("Job completed", "job_id", job.ID, "match_score", score, "original_score", out.Result.OriginalScore)
	return types.TailorEvent{
		JobID:      job.ID,
		Status:     types.StatusCompleted,
		MatchScore: &score,
		Warnings:   warnings,
		OutputURI:  job.OutputURI,
		RunID:      out.RunID,
		Timestamp:  w.timestamp(),
	}
}

func (w *Worker) text(ctx context.Context, inline, uri string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	doc, err := w.loader.Load(ctx, uri)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

func (w *Worker) failed(job types.TailorJob, err error) types.TailorEvent {
	w.logger.LogError(err, "Job failed", "job_id", job.ID)
	return types.TailorEvent{
		JobID:     job.ID,
		Status:    types.StatusFailed,
		Error:     err.Error(),
		Code:      errors.CodeOf(err),
		Timestamp: w.timestamp(),
	}
}

func (w *Worker) publish(ctx context.Context, event types.TailorEvent) {
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.LogError(err, "Failed to publish job event", "job_id", event.JobID, "status", event.Status)
	}
}

func (w *Worker) timestamp() string {
	return w.now().UTC().Format(time.RFC3339)
}

// DecodeJob parses and validates a queued job. The returned job carries
// whatever fields decoded, so a failure can still be reported by ID.
func DecodeJob(body []byte) (types.TailorJob, error) {
	var job types.TailorJob
	if err := json.Unmarshal(body, &job); err != nil {
		return job, errors.NewValidationError(errors.ErrCodeInvalidRequest, "job is not valid JSON", err)
	}
	if err := validate.Struct(job); err != nil {
		return job, errors.NewValidationError(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid job: %v", err), err)
	}
	if job.Options != nil {
		if err := job.Options.Validate(); err != nil {
			return job, errors.NewValidationError(errors.ErrCodeInvalidInput, "invalid tailoring options", err)
		}
	}
	return job, nil
}
