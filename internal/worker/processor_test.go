package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"hoaxalyzer/internal/config"
	"hoaxalyzer/internal/models"
)

type memQueue struct {
	mu    sync.Mutex
	ready []string
	acked []string
}

func (q *memQueue) DequeueWithLease(context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) == 0 {
		return "", nil
	}
	id := q.ready[0]
	q.ready = q.ready[1:]
	return id, nil
}

func (q *memQueue) Ack(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, jobID)
	return nil
}

func (q *memQueue) ExtendLease(context.Context, string, time.Duration) error { return nil }

func (q *memQueue) RequeueExpired(context.Context, time.Time, int64) ([]string, error) {
	return nil, nil
}

func (q *memQueue) ReadyDepth(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.ready)), nil
}

func (q *memQueue) ackedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

type memJobs struct {
	jobs map[string]models.Job
}

func (m *memJobs) GetJob(_ context.Context, id string) (models.Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return models.Job{}, errors.New("not found")
	}
	return job, nil
}

type countingRunner struct {
	mu  sync.Mutex
	ran []string
	err error
}

func (r *countingRunner) Run(_ context.Context, job models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, job.ID)
	return r.err
}

func (r *countingRunner) ranIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

type blockingRunner struct {
	mu      sync.Mutex
	ran     []string
	started chan string
	release chan struct{}
}

func (r *blockingRunner) Run(_ context.Context, job models.Job) error {
	r.mu.Lock()
	r.ran = append(r.ran, job.ID)
	r.mu.Unlock()
	r.started <- job.ID
	<-r.release
	return nil
}

func (r *blockingRunner) ranIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

func testConfig() config.Config {
	return config.Config{
		WorkerPollInterval: 5 * time.Millisecond,
		WorkerConcurrency:  2,
		PipelineTimeout:    time.Second,
		VisibilityTimeout:  time.Second,
	}
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestProcessorRunsAndAcksJobs(t *testing.T) {
	q := &memQueue{ready: []string{"a", "b"}}
	jobs := &memJobs{jobs: map[string]models.Job{
		"a": {ID: "a", Kind: models.KindURL, Status: models.StatusPending},
		"b": {ID: "b", Kind: models.KindTopic, Status: models.StatusPending},
	}}
	runner := &countingRunner{}
	p := NewProcessor(testConfig(), q, jobs, runner, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, func() bool { return len(runner.ranIDs()) == 2 })
	waitFor(t, func() bool { return len(q.ackedIDs()) == 2 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestProcessorSkipsTerminalJobs(t *testing.T) {
	q := &memQueue{ready: []string{"done"}}
	jobs := &memJobs{jobs: map[string]models.Job{
		"done": {ID: "done", Kind: models.KindURL, Status: models.StatusCompleted},
	}}
	runner := &countingRunner{}
	p := NewProcessor(testConfig(), q, jobs, runner, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, func() bool { return len(q.ackedIDs()) == 1 })
	if len(runner.ranIDs()) != 0 {
		t.Errorf("terminal job was run: %v", runner.ranIDs())
	}

	cancel()
	<-done
}

func TestProcessorAcksUnknownJob(t *testing.T) {
	q := &memQueue{ready: []string{"ghost"}}
	jobs := &memJobs{jobs: map[string]models.Job{}}
	p := NewProcessor(testConfig(), q, jobs, &countingRunner{}, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, func() bool { return len(q.ackedIDs()) == 1 })
	cancel()
	<-done
}

func TestProcessorStopsWhileWaitingForSlot(t *testing.T) {
	q := &memQueue{ready: []string{"a", "b"}}
	jobs := &memJobs{jobs: map[string]models.Job{
		"a": {ID: "a", Kind: models.KindURL, Status: models.StatusPending},
		"b": {ID: "b", Kind: models.KindURL, Status: models.StatusPending},
	}}
	runner := &blockingRunner{started: make(chan string, 2), release: make(chan struct{})}
	cfg := testConfig()
	cfg.WorkerConcurrency = 1
	p := NewProcessor(cfg, q, jobs, runner, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	<-runner.started // "a" holds the only slot
	waitFor(t, func() bool {
		depth, _ := q.ReadyDepth(context.Background())
		return depth == 0 // "b" is dequeued and parked on the slot
	})

	cancel()
	// Give the loop a beat to observe cancellation before the slot frees up,
	// so stopping wins over launching the parked job.
	time.Sleep(50 * time.Millisecond)
	close(runner.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop")
	}
	if got := runner.ranIDs(); len(got) != 1 || got[0] != "a" {
		t.Errorf("ran = %v, want only the in-flight job", got)
	}
	if acked := q.ackedIDs(); len(acked) != 1 || acked[0] != "a" {
		t.Errorf("acked = %v, want only the finished job (the parked one keeps its lease)", acked)
	}
}

func TestProcessorAcksFailedRuns(t *testing.T) {
	q := &memQueue{ready: []string{"bad"}}
	jobs := &memJobs{jobs: map[string]models.Job{
		"bad": {ID: "bad", Kind: models.KindURL, Status: models.StatusPending},
	}}
	runner := &countingRunner{err: errors.New("acquire failed")}
	p := NewProcessor(testConfig(), q, jobs, runner, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, func() bool { return len(q.ackedIDs()) == 1 })
	if len(runner.ranIDs()) != 1 {
		t.Errorf("failed job should still have run once")
	}

	cancel()
	<-done
}
