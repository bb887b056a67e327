package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bobarin/factshorts/internal/db"
	"github.com/bobarin/factshorts/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MaxDurationSeconds bounds duration_seconds on a request.
const MaxDurationSeconds = 180

// Generator runs or prepares generation jobs.
type Generator interface {
	Generate(ctx context.Context, req models.GenerateRequest) *models.Result
	NewJob(req models.GenerateRequest) models.Job
	Record(ctx context.Context, job models.Job)
}

// JobQueue accepts jobs for the background worker.
type JobQueue interface {
	Enqueue(ctx context.Context, job *models.Job) error
	GetQueueLength(ctx context.Context) (int64, error)
}

// ResultReader looks up cached envelopes; nil, nil means unknown.
type ResultReader interface {
	GetResult(ctx context.Context, jobID string) (*models.Result, error)
}

// JobReader looks up ledger rows; db.ErrJobNotFound means unknown.
type JobReader interface {
	GetJob(ctx context.Context, id string) (*models.JobRecord, error)
}

type Handler struct {
	gen     Generator
	queue   JobQueue     // nil = synchronous only
	results ResultReader // nil = no cache
	jobs    JobReader    // nil = no ledger
}

// NewHandler takes the optional collaborators as untyped nils when they are
// not configured.
func NewHandler(gen Generator, q JobQueue, results ResultReader, jobs JobReader) *Handler {
	return &Handler{
		gen:     gen,
		queue:   q,
		results: results,
		jobs:    jobs,
	}
}

// CreateVideo handles POST /v1/videos
func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate
	if req.DurationSeconds < 0 || req.DurationSeconds > MaxDurationSeconds {
		respondError(w, http.StatusBadRequest, "duration_seconds must be between 1 and 180")
		return
	}

	if req.Async {
		if h.queue == nil {
			respondError(w, http.StatusBadRequest, "Async generation is not configured")
			return
		}

		job := h.gen.NewJob(req)
		h.gen.Record(r.Context(), job)

		if err := h.queue.Enqueue(r.Context(), &job); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("[API] Failed to enqueue job")
			respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
			return
		}

		respondJSON(w, http.StatusAccepted, models.EnqueueResponse{
			JobID:  job.ID,
			Status: models.JobStatusQueued,
		})
		return
	}

	respondResult(w, h.gen.Generate(r.Context(), req))
}

// GetVideo handles GET /v1/videos/{id}
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	if h.results != nil {
		res, err := h.results.GetResult(r.Context(), id)
		if err != nil {
			log.Warn().Err(err).Str("job_id", id).Msg("[API] Result cache lookup failed")
		}
		if res != nil {
			respondResult(w, res)
			return
		}
	}

	if h.jobs != nil {
		job, err := h.jobs.GetJob(r.Context(), id)
		if err == nil {
			respondJSON(w, http.StatusOK, job)
			return
		}
		if !errors.Is(err, db.ErrJobNotFound) {
			log.Error().Err(err).Str("job_id", id).Msg("[API] Ledger lookup failed")
			respondError(w, http.StatusInternalServerError, "Failed to get job")
			return
		}
	}

	respondError(w, http.StatusNotFound, "Job not found")
}

// respondResult writes an envelope with its own status code, keeping
// non-ASCII text unescaped.
func respondResult(w http.ResponseWriter, res *models.Result) {
	body, err := res.Body()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to encode result")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(res.StatusCode)
	io.WriteString(w, body)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if h.queue != nil {
		if n, err := h.queue.GetQueueLength(r.Context()); err == nil {
			resp["queue_length"] = n
		} else {
			resp["queue"] = "unavailable"
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
