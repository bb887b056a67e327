// Package app wires configuration into the generator and its optional
// queue and ledger. Both entry points build through it.
package app

import (
	"context"
	"fmt"

	"github.com/bobarin/factshorts/internal/api"
	"github.com/bobarin/factshorts/internal/config"
	"github.com/bobarin/factshorts/internal/db"
	"github.com/bobarin/factshorts/internal/layout"
	"github.com/bobarin/factshorts/internal/media"
	"github.com/bobarin/factshorts/internal/pipeline"
	"github.com/bobarin/factshorts/internal/queue"
	"github.com/bobarin/factshorts/internal/services"
	"github.com/bobarin/factshorts/internal/storage"
	"github.com/bobarin/factshorts/internal/worker"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config    *config.Config
	Generator *worker.Generator
	Queue     *queue.Queue // nil without REDIS_URL
	DB        *db.DB       // nil without DATABASE_URL
}

func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	engine, err := layout.Open(layout.DefaultSpec(), cfg.FontPath, cfg.FontFallbackEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to load overlay font: %w", err)
	}

	stor, err := storage.New(ctx, storage.Config{
		Region:       cfg.AWSRegion,
		Bucket:       cfg.S3Bucket,
		Prefix:       cfg.S3Prefix,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info().Str("bucket", cfg.S3Bucket).Msg("[App] Initialized S3 storage")

	downloader := services.NewDownloader(cfg.DownloadTimeout)
	openaiSvc := services.NewOpenAIService(cfg.OpenAIKey, cfg.FactModel, downloader)

	tts, err := NewTTS(cfg, openaiSvc)
	if err != nil {
		return nil, err
	}
	images, err := NewImageSource(ctx, cfg, openaiSvc)
	if err != nil {
		return nil, err
	}

	pipe := pipeline.New(
		engine,
		media.NewComposer(nil, cfg.FFmpegPath, cfg.EncodeTimeout),
		media.NewProber(nil, 0),
	)

	a.Generator = worker.NewGenerator(openaiSvc, tts, images, pipe, stor, worker.Options{
		Language:        cfg.Language,
		DurationSeconds: cfg.VideoDurationSeconds,
		FactAttempts:    cfg.FactAttempts,
		TempDir:         cfg.TempDir,
		PresignTTL:      cfg.PresignTTL,
	})

	if cfg.DatabaseURL != "" {
		database, err := db.New(cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			a.Close()
			return nil, err
		}
		a.DB = database
		a.Generator.WithLedger(database)
		log.Info().Msg("[App] Connected to database")
	}

	if cfg.RedisURL != "" {
		q, err := queue.New(cfg.RedisURL, cfg.ResultTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Queue = q
		a.Generator.WithCache(q)
		log.Info().Msg("[App] Connected to Redis queue")
	}

	return a, nil
}

// NewTTS picks the speech provider named by TTS_PROVIDER.
func NewTTS(cfg *config.Config, openaiSvc *services.OpenAIService) (services.TTSService, error) {
	switch cfg.TTSProvider {
	case "", "translate":
		log.Info().Msg("[App] TTS provider: Google Translate")
		return services.NewTranslateTTSService(), nil
	case "elevenlabs":
		log.Info().Str("voice", cfg.ElevenLabsVoiceID).Msg("[App] TTS provider: ElevenLabs")
		return services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID), nil
	case "openai":
		log.Info().Msg("[App] TTS provider: OpenAI")
		return openaiSvc, nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", cfg.TTSProvider)
	}
}

// NewImageSource picks the background provider named by IMAGE_PROVIDER.
func NewImageSource(ctx context.Context, cfg *config.Config, openaiSvc *services.OpenAIService) (services.ImageSource, error) {
	switch cfg.ImageProvider {
	case "", "openai":
		log.Info().Msg("[App] Image provider: OpenAI")
		return openaiSvc, nil
	case "gemini":
		log.Info().Msg("[App] Image provider: Gemini")
		return services.NewGeminiService(ctx, cfg.GeminiKey, "")
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.ImageProvider)
	}
}

// Handler builds the API handler, passing untyped nils for whatever is
// not configured.
func (a *App) Handler() *api.Handler {
	var (
		q       api.JobQueue
		results api.ResultReader
		jobs    api.JobReader
	)
	if a.Queue != nil {
		q, results = a.Queue, a.Queue
	}
	if a.DB != nil {
		jobs = a.DB
	}
	return api.NewHandler(a.Generator, q, results, jobs)
}

func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
