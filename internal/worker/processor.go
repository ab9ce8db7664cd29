package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hoaxalyzer/internal/config"
	"hoaxalyzer/internal/models"
	"hoaxalyzer/internal/telemetry"
)

// Runner executes the analysis pipeline for one job.
type Runner interface {
	Run(ctx context.Context, job models.Job) error
}

// JobSource is the queue surface the processor consumes.
type JobSource interface {
	DequeueWithLease(ctx context.Context) (string, error)
	Ack(ctx context.Context, jobID string) error
	ExtendLease(ctx context.Context, jobID string, extension time.Duration) error
	RequeueExpired(ctx context.Context, now time.Time, limit int64) ([]string, error)
	ReadyDepth(ctx context.Context) (int64, error)
}

// JobReader loads job records for dequeued ids.
type JobReader interface {
	GetJob(ctx context.Context, id string) (models.Job, error)
}

// Processor drives the worker execution loop: it leases jobs off the queue
// and runs each pipeline on its own goroutine, bounded by a concurrency cap.
// Jobs are independent; they share nothing but the stores.
type Processor struct {
	cfg    config.Config
	queue  JobSource
	jobs   JobReader
	runner Runner
	log    *slog.Logger
}

// NewProcessor wires the processor.
func NewProcessor(cfg config.Config, q JobSource, jobs JobReader, runner Runner, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{cfg: cfg, queue: q, jobs: jobs, runner: runner, log: log}
}

// Run polls until context cancellation, then waits for in-flight pipelines to
// drain. A worker that dies mid-job loses its lease and the job re-runs from
// scratch elsewhere.
func (p *Processor) Run(ctx context.Context) error {
	concurrency := p.cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	slots := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		default:
		}

		if reclaimed, _ := p.queue.RequeueExpired(ctx, time.Now(), 100); len(reclaimed) > 0 {
			p.log.Warn("requeued expired leases", "count", len(reclaimed))
		}
		if depth, err := p.queue.ReadyDepth(ctx); err == nil {
			telemetry.QueueDepthGauge.Set(float64(depth))
		}

		jobID, err := p.queue.DequeueWithLease(ctx)
		if err != nil || jobID == "" {
			select {
			case <-ctx.Done():
				wg.Wait()
				return ctx.Err()
			case <-time.After(p.cfg.WorkerPollInterval):
			}
			continue
		}

		job, err := p.jobs.GetJob(ctx, jobID)
		if err != nil {
			p.log.Error("load dequeued job", "job_id", jobID, "err", err)
			_ = p.queue.Ack(ctx, jobID)
			continue
		}
		if job.Terminal() {
			_ = p.queue.Ack(ctx, jobID)
			continue
		}

		// Waiting on a slot must not outlive the poll context. The dequeued
		// job keeps its lease and comes back through RequeueExpired on
		// another worker.
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case slots <- struct{}{}:
		}
		wg.Add(1)
		go func(job models.Job) {
			defer wg.Done()
			defer func() { <-slots }()
			p.runOne(job)
		}(job)
	}
}

// runOne executes one pipeline with a wall-clock bound and a lease heartbeat.
// Pipeline errors terminate the job; there is no retry.
func (p *Processor) runOne(job models.Job) {
	// Detached from the poll context so a graceful shutdown drains running
	// pipelines instead of failing them.
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PipelineTimeout)
	defer cancel()

	stopHeartbeat := p.heartbeat(ctx, job.ID)
	defer stopHeartbeat()

	telemetry.InFlightGauge.Inc()
	defer telemetry.InFlightGauge.Dec()

	p.log.Info("pipeline started", "job_id", job.ID, "kind", job.Kind)
	if err := p.runner.Run(ctx, job); err != nil {
		telemetry.JobsFailed.Inc()
	} else {
		telemetry.JobsCompleted.Inc()
		p.log.Info("pipeline completed", "job_id", job.ID, "kind", job.Kind)
	}

	if err := p.queue.Ack(context.Background(), job.ID); err != nil {
		p.log.Error("ack job", "job_id", job.ID, "err", err)
	}
}

// heartbeat extends the queue lease at half the visibility interval while the
// pipeline runs, so slow collaborator calls do not trigger redelivery.
func (p *Processor) heartbeat(ctx context.Context, jobID string) func() {
	interval := p.cfg.VisibilityTimeout / 2
	if interval <= 0 {
		interval = 15 * time.Second
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.queue.ExtendLease(ctx, jobID, p.cfg.VisibilityTimeout); err != nil {
					p.log.Warn("extend lease", "job_id", jobID, "err", err)
				}
			}
		}
	}()
	return func() { close(done) }
}
