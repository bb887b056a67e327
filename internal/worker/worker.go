// Package worker runs generation jobs end to end: facts, narration,
// background, overlay and encode, upload and presign.
package worker

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/bobarin/factshorts/internal/facts"
	"github.com/bobarin/factshorts/internal/models"
	"github.com/bobarin/factshorts/internal/pipeline"
	"github.com/bobarin/factshorts/internal/services"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDuration = 30
	defaultLanguage = "ta"
	videoMIME       = "video/mp4"
	dequeueTimeout  = 5 * time.Second
)

// FactGenerator returns raw fact text in the given language.
type FactGenerator interface {
	GenerateFacts(ctx context.Context, language string) (string, error)
}

// Renderer turns one job's inputs into a video file.
type Renderer interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Output, error)
}

// Store is the object store the finished video goes to.
type Store interface {
	BucketName() string
	GenerateKey(now time.Time, jobID string) string
	UploadFile(ctx context.Context, key, localPath, contentType string, metadata map[string]string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Ledger records job state. Optional.
type Ledger interface {
	CreateJob(ctx context.Context, job *models.JobRecord) error
	MarkRunning(ctx context.Context, id string) error
	MarkSucceeded(ctx context.Context, id string, facts []string, s3Key string) error
	MarkFailed(ctx context.Context, id string, errorMessage string) error
}

// ResultCache keeps finished envelopes for status polls. Optional.
type ResultCache interface {
	SaveResult(ctx context.Context, res *models.Result) error
}

// JobSource hands out queued jobs; nil, nil means none arrived in time.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*models.Job, error)
}

// Options holds the per-deployment defaults a request may leave unset.
type Options struct {
	Language         string
	DurationSeconds  int
	FactAttempts     int
	TempDir          string
	PresignTTL       time.Duration
	BackgroundPrompt string
}

type Generator struct {
	facts  FactGenerator
	tts    services.TTSService
	images services.ImageSource
	render Renderer
	store  Store
	ledger Ledger
	cache  ResultCache
	opts   Options
	now    func() time.Time
}

func NewGenerator(
	factGen FactGenerator,
	tts services.TTSService,
	images services.ImageSource,
	render Renderer,
	store Store,
	opts Options,
) *Generator {
	if opts.Language == "" {
		opts.Language = defaultLanguage
	}
	if opts.DurationSeconds <= 0 {
		opts.DurationSeconds = defaultDuration
	}
	if opts.BackgroundPrompt == "" {
		opts.BackgroundPrompt = services.BackgroundPrompt
	}
	return &Generator{
		facts:  factGen,
		tts:    tts,
		images: images,
		render: render,
		store:  store,
		opts:   opts,
		now:    time.Now,
	}
}

// WithLedger records every job in l.
func (g *Generator) WithLedger(l Ledger) *Generator {
	g.ledger = l
	return g
}

// WithCache stores every finished envelope in c.
func (g *Generator) WithCache(c ResultCache) *Generator {
	g.cache = c
	return g
}

// NewJob builds a job for req, filling defaults.
func (g *Generator) NewJob(req models.GenerateRequest) models.Job {
	job := models.Job{
		ID:              pipeline.NewJobID(),
		DurationSeconds: req.DurationSeconds,
		Language:        req.Language,
		CreatedAt:       g.now().UTC(),
	}
	if job.DurationSeconds <= 0 {
		job.DurationSeconds = g.opts.DurationSeconds
	}
	if job.Language == "" {
		job.Language = g.opts.Language
	}
	return job
}

// Record adds a queued ledger row for job when a ledger is configured.
func (g *Generator) Record(ctx context.Context, job models.Job) {
	if g.ledger == nil {
		return
	}
	rec := &models.JobRecord{
		ID:              job.ID,
		Status:          models.JobStatusQueued,
		DurationSeconds: job.DurationSeconds,
		Language:        job.Language,
	}
	if err := g.ledger.CreateJob(ctx, rec); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("[Worker] Failed to record job")
	}
}

// Generate runs a new job for req synchronously.
func (g *Generator) Generate(ctx context.Context, req models.GenerateRequest) *models.Result {
	job := g.NewJob(req)
	g.Record(ctx, job)
	return g.GenerateJob(ctx, job)
}

// GenerateJob never fails: every error, and any panic, is turned into a
// failure envelope.
func (g *Generator) GenerateJob(ctx context.Context, job models.Job) (res *models.Result) {
	logger := log.With().Str("job_id", job.ID).Logger()
	start := g.now()

	var used models.FactSet
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("[Worker] Job panicked")
			res = models.FailureResult(job.ID, fmt.Errorf("internal error: %v", r))
		}
		g.finish(ctx, res, used)
		logger.Info().Bool("success", res.Success).Dur("elapsed", g.now().Sub(start)).Msg("[Worker] Job finished")
	}()

	if g.ledger != nil {
		if err := g.ledger.MarkRunning(ctx, job.ID); err != nil {
			logger.Warn().Err(err).Msg("[Worker] Failed to mark job running")
		}
	}

	logger.Info().Int("duration", job.DurationSeconds).Str("language", job.Language).Msg("[Worker] Job started")

	res, used, err := g.run(ctx, job)
	if err != nil {
		logger.Error().Err(err).Msg("[Worker] Job failed")
		return models.FailureResult(job.ID, err)
	}
	return res
}

func (g *Generator) run(ctx context.Context, job models.Job) (*models.Result, models.FactSet, error) {
	if job.DurationSeconds <= 0 {
		job.DurationSeconds = g.opts.DurationSeconds
	}
	if job.Language == "" {
		job.Language = g.opts.Language
	}
	logger := log.With().Str("job_id", job.ID).Logger()

	ws, err := pipeline.NewWorkspace(g.opts.TempDir, job.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("job %s: %w", job.ID, err)
	}
	defer ws.Close()

	// Facts
	src := facts.SourceFunc(func(ctx context.Context) (string, error) {
		return g.facts.GenerateFacts(ctx, job.Language)
	})
	factSet := facts.Collect(ctx, src, facts.Options{Attempts: g.opts.FactAttempts})
	logger.Info().Int("facts", len(factSet)).Msg("[Worker] Facts ready")

	// Narration
	speech, err := g.tts.Synthesize(ctx, factSet.VoiceText(), job.Language)
	if err != nil {
		return nil, factSet, fmt.Errorf("job %s: failed to synthesize speech: %w", job.ID, err)
	}
	if speech == nil || len(speech.AudioData) == 0 {
		return nil, factSet, fmt.Errorf("job %s: speech synthesis returned no audio", job.ID)
	}
	format := speech.Format
	if format == "" {
		format = "mp3"
	}
	audioPath := ws.Path("voice." + format)
	if err := os.WriteFile(audioPath, speech.AudioData, 0644); err != nil {
		return nil, factSet, fmt.Errorf("job %s: failed to write audio file: %w", job.ID, err)
	}
	logger.Info().Int("bytes", len(speech.AudioData)).Int("estimated_ms", speech.DurationMs).Msg("[Worker] Narration ready")

	// Background
	bg, err := g.images.GenerateImage(ctx, g.opts.BackgroundPrompt)
	if err != nil {
		return nil, factSet, fmt.Errorf("job %s: failed to generate background: %w", job.ID, err)
	}
	bgPath := ws.Path("background.png")
	if err := os.WriteFile(bgPath, bg, 0644); err != nil {
		return nil, factSet, fmt.Errorf("job %s: failed to write background file: %w", job.ID, err)
	}

	out, err := g.render.Run(ctx, pipeline.Input{
		Workspace:       ws,
		Facts:           factSet,
		AudioPath:       audioPath,
		BackgroundPath:  bgPath,
		DurationSeconds: job.DurationSeconds,
	})
	if err != nil {
		return nil, factSet, err
	}

	// Upload
	now := g.now().UTC()
	key := g.store.GenerateKey(now, job.ID)
	meta := map[string]string{
		"job-id":       job.ID,
		"generated-at": now.Format(time.RFC3339),
	}
	if err := g.store.UploadFile(ctx, key, out.VideoPath, videoMIME, meta); err != nil {
		return nil, out.FactsUsed, fmt.Errorf("job %s: failed to upload video: %w", job.ID, err)
	}

	url, err := g.store.PresignGet(ctx, key, g.opts.PresignTTL)
	if err != nil {
		return nil, out.FactsUsed, fmt.Errorf("job %s: failed to presign download: %w", job.ID, err)
	}

	return models.SuccessResult(job.ID, out.FactsUsed, g.store.BucketName(), key, url, job.DurationSeconds), out.FactsUsed, nil
}

// finish writes the outcome to the ledger and cache. Their failures are
// logged only; the envelope is already decided.
func (g *Generator) finish(ctx context.Context, res *models.Result, used models.FactSet) {
	ctx = context.WithoutCancel(ctx)
	logger := log.With().Str("job_id", res.JobID).Logger()

	if g.ledger != nil {
		var err error
		if res.Success {
			err = g.ledger.MarkSucceeded(ctx, res.JobID, used, res.S3Key)
		} else {
			err = g.ledger.MarkFailed(ctx, res.JobID, res.Error)
		}
		if err != nil {
			logger.Warn().Err(err).Msg("[Worker] Failed to update ledger")
		}
	}

	if g.cache != nil {
		if err := g.cache.SaveResult(ctx, res); err != nil {
			logger.Warn().Err(err).Msg("[Worker] Failed to cache result")
		}
	}
}

// Worker consumes queued jobs with a fixed number of goroutines.
type Worker struct {
	gen  *Generator
	jobs JobSource
}

func New(gen *Generator, jobs JobSource) *Worker {
	return &Worker{gen: gen, jobs: jobs}
}

// Start blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}
	log.Info().Int("concurrency", concurrency).Msg("[Worker] Started")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			w.processQueue(ctx)
			return nil
		})
	}

	err := g.Wait()
	log.Info().Msg("[Worker] Shutting down")
	return err
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.jobs.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("[Worker] Error dequeuing")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue // No job available
		}

		w.gen.GenerateJob(ctx, *job)
	}
}
