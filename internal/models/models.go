package models

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Enums
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// FactSet is the ordered list of short facts shown and spoken in one video.
// It is never mutated after selection.
type FactSet []string

// OverlayText is one fact per line.
func (f FactSet) OverlayText() string {
	return strings.Join(f, "\n")
}

// VoiceText is the sentence-joined narration handed to the speech synthesizer.
func (f FactSet) VoiceText() string {
	return strings.Join(f, ". ")
}

// Result is the envelope returned for every generation request, whether it
// succeeded or not. StatusCode is carried outside the JSON body.
type Result struct {
	StatusCode  int    `json:"-"`
	Success     bool   `json:"success"`
	JobID       string `json:"job_id"`
	Fact        string `json:"fact,omitempty"`
	S3Bucket    string `json:"s3_bucket,omitempty"`
	S3Key       string `json:"s3_key,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SuccessResult builds the envelope for a completed job.
func SuccessResult(jobID string, facts FactSet, bucket, key, url string, duration int) *Result {
	return &Result{
		StatusCode:  http.StatusOK,
		Success:     true,
		JobID:       jobID,
		Fact:        facts.OverlayText(),
		S3Bucket:    bucket,
		S3Key:       key,
		DownloadURL: url,
		Duration:    duration,
	}
}

// FailureResult builds the envelope for a failed job.
func FailureResult(jobID string, err error) *Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Result{
		StatusCode: http.StatusInternalServerError,
		Success:    false,
		JobID:      jobID,
		Error:      msg,
	}
}

// Body encodes the envelope as JSON without escaping non-ASCII or HTML
// characters, so Tamil fact text stays readable.
func (r *Result) Body() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// GenerateRequest is the input for one video generation.
// All fields are optional; zero values mean "use the configured default".
type GenerateRequest struct {
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Language        string `json:"language,omitempty"`
	Async           bool   `json:"async,omitempty"`
}

// Job is a queued generation request.
type Job struct {
	ID              string    `json:"id"`
	DurationSeconds int       `json:"duration_seconds"`
	Language        string    `json:"language,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// JobRecord is the ledger row for one generation.
type JobRecord struct {
	ID              string     `json:"id"`
	Status          JobStatus  `json:"status"`
	DurationSeconds int        `json:"duration_seconds"`
	Language        string     `json:"language,omitempty"`
	Facts           []string   `json:"facts,omitempty"`
	S3Key           *string    `json:"s3_key,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// EnqueueResponse is returned when a request is accepted for async processing.
type EnqueueResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}
