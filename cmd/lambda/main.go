package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/bobarin/factshorts/internal/app"
	"github.com/bobarin/factshorts/internal/config"
	"github.com/bobarin/factshorts/internal/logging"
	"github.com/bobarin/factshorts/internal/models"
	"github.com/rs/zerolog/log"
)

// Response is what the function returns to its invoker.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type generator interface {
	Generate(ctx context.Context, req models.GenerateRequest) *models.Result
}

type handler struct {
	gen generator
}

// Handle runs one generation. The event may carry duration_seconds and
// language; anything else is ignored.
func (h *handler) Handle(ctx context.Context, req models.GenerateRequest) (Response, error) {
	req.Async = false
	res := h.gen.Generate(ctx, req)

	body, err := res.Body()
	if err != nil {
		return Response{}, err
	}
	return Response{StatusCode: res.StatusCode, Body: body}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}

	h := &handler{gen: a.Generator}
	lambda.Start(h.Handle)
}
