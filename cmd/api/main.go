package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/factshorts/internal/api"
	"github.com/bobarin/factshorts/internal/app"
	"github.com/bobarin/factshorts/internal/config"
	"github.com/bobarin/factshorts/internal/logging"
	"github.com/bobarin/factshorts/internal/worker"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	log.Info().Msg("Starting factshorts API...")

	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	router := api.NewRouter(a.Handler(), api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Info().Msg("API key authentication enabled")
	} else {
		log.Warn().Msg("No BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCancel context.CancelFunc
	workerDone := make(chan struct{})
	if cfg.WorkerEnabled && a.Queue != nil {
		log.Info().Int("concurrency", cfg.MaxConcurrentJobs).Msg("Worker enabled, starting background processing...")

		w := worker.New(a.Generator, a.Queue)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go func() {
			defer close(workerDone)
			if err := w.Start(workerCtx, cfg.MaxConcurrentJobs); err != nil {
				log.Error().Err(err).Msg("Worker stopped")
			}
		}()
	} else {
		close(workerDone)
	}

	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	if workerCancel != nil {
		workerCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	select {
	case <-workerDone:
	case <-ctx.Done():
		log.Warn().Msg("Worker did not stop in time")
	}

	log.Info().Msg("Server exited")
}
