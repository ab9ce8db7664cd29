package models

import (
	"time"
)

// Job status values persisted in Postgres.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job kinds. Fixed at submission, never change.
const (
	KindURL   = "url"
	KindTopic = "topic"
)

// Job is one submitted analysis request and its lifecycle state.
type Job struct {
	ID          string     `json:"job_id"`
	Kind        string     `json:"query_type"`
	Input       string     `json:"query_input"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job can no longer change state.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
