package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bobarin/factshorts/internal/models"
	"github.com/lib/pq"
)

// ErrJobNotFound is returned by GetJob for an unknown id.
var ErrJobNotFound = errors.New("job not found")

func (db *DB) CreateJob(ctx context.Context, job *models.JobRecord) error {
	query := `
		INSERT INTO jobs (id, status, duration_seconds, language)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		job.ID, job.Status, job.DurationSeconds, job.Language,
	).Scan(&job.CreatedAt)
}

func (db *DB) GetJob(ctx context.Context, id string) (*models.JobRecord, error) {
	query := `
		SELECT
			id, status, duration_seconds, language, facts,
			s3_key, error_message, started_at, finished_at, created_at
		FROM jobs
		WHERE id = $1
	`

	job := &models.JobRecord{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Status, &job.DurationSeconds, &job.Language, pq.Array(&job.Facts),
		&job.S3Key, &job.ErrorMessage, &job.StartedAt, &job.FinishedAt, &job.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

func (db *DB) MarkRunning(ctx context.Context, id string) error {
	query := `UPDATE jobs SET status = $1, started_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, models.JobStatusRunning, time.Now().UTC(), id)
	return err
}

func (db *DB) MarkSucceeded(ctx context.Context, id string, facts []string, s3Key string) error {
	query := `
		UPDATE jobs
		SET status = $1, facts = $2, s3_key = $3, finished_at = $4
		WHERE id = $5
	`
	_, err := db.ExecContext(ctx, query, models.JobStatusSucceeded, pq.Array(facts), s3Key, time.Now().UTC(), id)
	return err
}

func (db *DB) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, finished_at = $3
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.JobStatusFailed, errorMessage, time.Now().UTC(), id)
	return err
}
