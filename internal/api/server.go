package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"hoaxalyzer/internal/models"
	"hoaxalyzer/internal/store"
	"hoaxalyzer/internal/telemetry"
)

// JobStore is the store surface the façade needs.
type JobStore interface {
	CreateJob(ctx context.Context, id, kind, input string) (models.Job, error)
	GetJob(ctx context.Context, id string) (models.Job, error)
	GetResult(ctx context.Context, id string) (json.RawMessage, error)
	MarkFailed(ctx context.Context, id string) error
}

// Queue hands jobs to the worker fleet.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
}

// Limiter guards the submission endpoints.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Server wires HTTP handlers for the analysis façade. Submission never blocks
// on pipeline work: it creates the job row, enqueues, and returns.
type Server struct {
	store   JobStore
	queue   Queue
	limiter Limiter
	log     *slog.Logger
}

// New constructs the API server. limiter may be nil to disable rate limiting.
func New(st JobStore, q Queue, limiter Limiter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: st, queue: q, limiter: limiter, log: log}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "Hoaxalyzer API",
		})
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Post("/analyze/url", s.handleAnalyzeURL)
	r.Post("/analyze/topic", s.handleAnalyzeTopic)
	r.Get("/results/{job_id}", s.handleGetResults)
	return r
}

type urlRequest struct {
	URL string `json:"url"`
}

type topicRequest struct {
	Keyword string `json:"keyword"`
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func (s *Server) handleAnalyzeURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !validURL(req.URL) {
		writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}
	s.submit(w, r, models.KindURL, req.URL)
}

func (s *Server) handleAnalyzeTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Keyword) == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	s.submit(w, r, models.KindTopic, strings.TrimSpace(req.Keyword))
}

// submit creates a pending job, enqueues it, and answers 202. Job ids are
// freshly generated per submission and never reused, so at most one pipeline
// run is ever active per id.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, kind, input string) {
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(r.Context(), "rl:"+clientKey(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "rate limit error")
			return
		}
		if !allowed {
			telemetry.RateLimitRejects.Inc()
			writeError(w, http.StatusTooManyRequests, "rate limited")
			return
		}
	}

	id := uuid.New().String()
	job, err := s.store.CreateJob(r.Context(), id, kind, input)
	if err != nil {
		s.log.Error("create job", "kind", kind, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	if err := s.queue.Enqueue(r.Context(), job.ID); err != nil {
		s.log.Error("enqueue job", "job_id", job.ID, "err", err)
		_ = s.store.MarkFailed(r.Context(), job.ID)
		writeError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}

	telemetry.JobsSubmitted.Inc()
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: job.ID, Status: models.StatusPending})
}

type resultsResponse struct {
	JobID    string          `json:"job_id"`
	Status   string          `json:"status"`
	Progress int             `json:"progress"`
	Results  json.RawMessage `json:"results,omitempty"`
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "job_id")

	job, err := s.store.GetJob(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.log.Error("get job", "job_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	resp := resultsResponse{JobID: job.ID, Status: job.Status, Progress: job.Progress}
	if job.Status == models.StatusCompleted {
		results, err := s.store.GetResult(r.Context(), id)
		if err != nil {
			s.log.Error("get result", "job_id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "failed to load results")
			return
		}
		resp.Results = results
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			"method", r.Method,
			"uri", r.URL.Path,
			"latency", time.Since(start),
		)
	})
}

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func clientKey(r *http.Request) string {
	if v := r.Header.Get("X-Client-ID"); v != "" {
		return v
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
