package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"hoaxalyzer/internal/models"
)

// ErrNotFound signals an unknown job_id to callers of the read paths.
var ErrNotFound = errors.New("job not found")

// Store wraps pgxpool for the analysis job and result tables.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateJob inserts a fresh pending job row. Job ids are generated per
// submission and never reused, so a plain insert is safe.
func (s *Store) CreateJob(ctx context.Context, id, kind, input string) (models.Job, error) {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analysis_jobs (job_id, query_type, query_input, status, progress, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
	`, id, kind, input, models.StatusPending, now)
	if err != nil {
		return models.Job{}, fmt.Errorf("insert job: %w", err)
	}
	return models.Job{
		ID:        id,
		Kind:      kind,
		Input:     input,
		Status:    models.StatusPending,
		Progress:  0,
		CreatedAt: now,
	}, nil
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (models.Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT job_id, query_type, query_input, status, progress, created_at, completed_at
		FROM analysis_jobs WHERE job_id = $1
	`, id)

	var job models.Job
	var completed pgtype.Timestamptz
	if err := row.Scan(&job.ID, &job.Kind, &job.Input, &job.Status, &job.Progress, &job.CreatedAt, &completed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Job{}, ErrNotFound
		}
		return models.Job{}, fmt.Errorf("scan job: %w", err)
	}
	if completed.Valid {
		t := completed.Time
		job.CompletedAt = &t
	}
	return job, nil
}

// MarkProcessing advances a job's progress. The GREATEST guard keeps progress
// monotonic even if an update is applied out of order, and terminal rows are
// never resurrected: a stale duplicate run, redelivered after a lease lapse,
// must not drag a completed job back to processing.
func (s *Store) MarkProcessing(ctx context.Context, id string, progress int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE analysis_jobs
		SET status = $2, progress = GREATEST(progress, $3)
		WHERE job_id = $1 AND status NOT IN ($4, $5)
	`, id, models.StatusProcessing, progress, models.StatusCompleted, models.StatusFailed)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return nil
}

// MarkCompleted transitions a job to completed with progress 100 and stamps
// completed_at exactly once.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE analysis_jobs
		SET status = $2, progress = 100, completed_at = COALESCE(completed_at, NOW())
		WHERE job_id = $1
	`, id, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// MarkFailed transitions a job to failed with progress 0. Failed jobs keep a
// NULL completed_at, matching the existing consumer expectations; revisit if
// stakeholders want a terminal timestamp on failure too. Completed jobs are
// left alone so a duplicate run tripping over the existing result row cannot
// fail a job that already has one.
func (s *Store) MarkFailed(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE analysis_jobs
		SET status = $2, progress = 0
		WHERE job_id = $1 AND status <> $3
	`, id, models.StatusFailed, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// SaveResult inserts the aggregated report for a job. One row per job_id,
// written once at the end of a successful pipeline run.
func (s *Store) SaveResult(ctx context.Context, id string, result models.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO analysis_results (job_id, results_data, created_at)
		VALUES ($1, $2, NOW())
	`, id, data)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// GetResult returns the raw stored report for a job. The payload round-trips
// as stored bytes so repeated reads stay byte-identical.
func (s *Store) GetResult(ctx context.Context, id string) (json.RawMessage, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT results_data FROM analysis_results WHERE job_id = $1
	`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}
	return json.RawMessage(data), nil
}
