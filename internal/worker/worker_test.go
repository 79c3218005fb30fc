package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atstailor/internal/common"
	"atstailor/internal/config"
	"atstailor/internal/errors"
	"atstailor/internal/history"
	"atstailor/internal/keywords"
	"atstailor/internal/service"
	"atstailor/internal/storage"
	"atstailor/internal/tailor"
	"atstailor/internal/types"
)

const jobText = "Senior Backend Engineer. You will build services in Python and Go on AWS with Kubernetes."

const resumeText = `Jane Doe

EXPERIENCE
Acme Corp | Senior Engineer | Jan 2021 - Present
- Built internal dashboards for sales reporting.
- Designed the event ingestion layer
`

type fakeAck struct {
	mu       sync.Mutex
	acked    []uint64
	rejected []uint64
	requeue  []bool
}

func (f *fakeAck) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAck) Nack(tag uint64, _ bool, requeue bool) error {
	return f.Reject(tag, requeue)
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, tag)
	f.requeue = append(f.requeue, requeue)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.TailorEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event types.TailorEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) byJob(id string) []types.TailorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []types.TailorEvent
	for _, e := range p.events {
		if e.JobID == id {
			out = append(out, e)
		}
	}
	return out
}

func newTestWorker(t *testing.T, workers int) (*Worker, *recordingPublisher, *history.Store) {
	t.Helper()
	runs, err := history.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	engine := tailor.NewEngine(tailor.NewStaticExtractor(keywords.NewExtractor(nil, keywords.DefaultOptions())), nil)
	svc := service.NewService(engine, tailor.DefaultOptions(), nil).WithHistory(runs)
	store := storage.New(config.StorageConfig{}, 0, nil)
	pub := &recordingPublisher{}
	w := New(config.QueueConfig{Queue: "tailor_requests", Workers: workers}, svc,
		common.NewDocumentLoader(store, 0, nil), store, pub, nil)
	return w, pub, runs
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, job any) amqp.Delivery {
	t.Helper()
	var body []byte
	switch v := job.(type) {
	case string:
		body = []byte(v)
	default:
		var err error
		body, err = json.Marshal(v)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body}
}

func TestRunProcessesJobs(t *testing.T) {
	dir := t.TempDir()
	resumePath := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(resumePath, []byte(resumeText), 0o600))
	outputPath := filepath.Join(dir, "out", "tailored.txt")

	w, pub, runs := newTestWorker(t, 2)
	ack := &fakeAck{}

	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- delivery(t, ack, 1, types.TailorJob{ID: "job-1", ResumeURI: resumePath, JobText: jobText, OutputURI: outputPath})
	deliveries <- delivery(t, ack, 2, types.TailorJob{ID: "job-2", ResumeText: resumeText, JobText: jobText})
	deliveries <- delivery(t, ack, 3, `{"id": "job-3"`)
	close(deliveries)

	require.NoError(t, w.Run(context.Background(), deliveries))

	assert.ElementsMatch(t, []uint64{1, 2}, ack.acked)
	assert.Equal(t, []uint64{3}, ack.rejected)
	assert.Equal(t, []bool{false}, ack.requeue)

	events := pub.byJob("job-1")
	require.Len(t, events, 2)
	assert.Equal(t, types.StatusProcessing, events[0].Status)
	assert.Equal(t, types.StatusCompleted, events[1].Status)
	require.NotNil(t, events[1].MatchScore)
	assert.Equal(t, outputPath, events[1].OutputURI)
	assert.NotEmpty(t, events[1].RunID)

	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "Jane Doe")

	listed, err := runs.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
	for _, r := range listed {
		assert.Equal(t, history.SourceWorker, r.Source)
	}
}

func TestProcessFailures(t *testing.T) {
	w, _, _ := newTestWorker(t, 1)

	tests := []struct {
		name string
		job  types.TailorJob
		code string
	}{
		{"missing resume file", types.TailorJob{ID: "a", ResumeURI: filepath.Join(t.TempDir(), "none.txt"), JobText: jobText}, errors.ErrCodeFileNotFound},
		{"blank resume", types.TailorJob{ID: "b", ResumeText: "  ", JobText: jobText}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := w.Process(context.Background(), tt.job)
			assert.Equal(t, types.StatusFailed, event.Status)
			assert.Equal(t, tt.code, event.Code)
			assert.Nil(t, event.MatchScore)
			assert.NotEmpty(t, event.Timestamp)
		})
	}
}

func TestHandleMalformedWithIDPublishesFailure(t *testing.T) {
	w, pub, _ := newTestWorker(t, 1)
	ack := &fakeAck{}

	w.handle(context.Background(), 1, delivery(t, ack, 9, map[string]string{"id": "job-x"}))

	assert.Equal(t, []uint64{9}, ack.rejected)
	events := pub.byJob("job-x")
	require.Len(t, events, 1)
	assert.Equal(t, types.StatusFailed, events[0].Status)
	assert.Equal(t, errors.ErrCodeInvalidRequest, events[0].Code)
}

func TestDecodeJob(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"inline texts", `{"id":"1","resumeText":"r","jobText":"j"}`, false},
		{"uris", `{"id":"1","resumeUri":"s3://b/r.pdf","jobUri":"s3://b/j.txt"}`, false},
		{"missing id", `{"resumeText":"r","jobText":"j"}`, true},
		{"missing job", `{"id":"1","resumeText":"r"}`, true},
		{"bad options", `{"id":"1","resumeText":"r","jobText":"j","options":{"maxPasses":99}}`, true},
		{"not json", `nope`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJob([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type fakeChannel struct {
	Channel
	mu        sync.Mutex
	failures  int
	published []amqp.Publishing
	keys      []string
}

func (f *fakeChannel) Publish(_, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return stderrors.New("channel closed")
	}
	f.published = append(f.published, msg)
	f.keys = append(f.keys, key)
	return nil
}

func TestPublisherRetriesAndRoutesByJob(t *testing.T) {
	ch := &fakeChannel{failures: 1}
	pub := NewPublisher(ch, "tailor_results", 2)

	require.NoError(t, pub.Publish(context.Background(), types.TailorEvent{JobID: "42", Status: types.StatusCompleted}))
	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{"job.42"}, ch.keys)
	assert.Equal(t, "application/json", ch.published[0].ContentType)

	var event types.TailorEvent
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &event))
	assert.Equal(t, types.StatusCompleted, event.Status)

	failing := NewPublisher(&fakeChannel{failures: 5}, "tailor_results", 0)
	err := failing.Publish(context.Background(), types.TailorEvent{JobID: "43"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeQueueFailed))
}
