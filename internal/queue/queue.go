// Package queue holds generation requests in a Redis list and caches the
// finished result envelopes so the API can answer status polls.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobarin/factshorts/internal/models"
	"github.com/go-redis/redis/v8"
)

const (
	QueueGenerateVideo = "queue:generate_video"
	resultKeyPrefix    = "result:"
	DefaultResultTTL   = 24 * time.Hour
)

// StoredResult is a cached envelope together with its status code, which
// the JSON body of models.Result leaves out.
type StoredResult struct {
	StatusCode int            `json:"status_code"`
	Result     *models.Result `json:"result"`
}

type Queue struct {
	client    *redis.Client
	resultTTL time.Duration
}

func New(redisURL string, resultTTL time.Duration) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, resultTTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, resultTTL time.Duration) *Queue {
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}
	return &Queue{client: client, resultTTL: resultTTL}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// Enqueue appends job to the generation queue, stamping CreatedAt.
func (q *Queue) Enqueue(ctx context.Context, job *models.Job) error {
	job.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, QueueGenerateVideo, data).Err()
}

// Dequeue blocks up to timeout for the next job. It returns nil, nil when
// nothing arrived in time.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*models.Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueGenerateVideo).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job models.Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *Queue) GetQueueLength(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueGenerateVideo).Result()
}

// SaveResult caches a finished envelope under its job id for the result TTL.
func (q *Queue) SaveResult(ctx context.Context, res *models.Result) error {
	data, err := json.Marshal(StoredResult{StatusCode: res.StatusCode, Result: res})
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return q.client.Set(ctx, resultKeyPrefix+res.JobID, data, q.resultTTL).Err()
}

// GetResult returns the cached envelope, or nil, nil when the job id is
// unknown or expired.
func (q *Queue) GetResult(ctx context.Context, jobID string) (*models.Result, error) {
	data, err := q.client.Get(ctx, resultKeyPrefix+jobID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}

	var stored StoredResult
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	if stored.Result == nil {
		return nil, fmt.Errorf("cached result for %s is empty", jobID)
	}
	stored.Result.StatusCode = stored.StatusCode
	return stored.Result, nil
}
