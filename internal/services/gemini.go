package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ImageSource produces the background still for a video.
type ImageSource interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

const defaultImagenModel = "imagen-4.0-generate-001"

// ImageGenerator is the part of the genai Models API the Gemini source uses.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// GeminiService generates portrait backgrounds with Imagen through the
// Google Gen AI SDK.
type GeminiService struct {
	models ImageGenerator
	model  string
}

var _ ImageSource = (*GeminiService)(nil)

// NewGeminiService creates the genai client once; the same key works for
// Gemini and Imagen.
func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return NewGeminiServiceWithModels(client.Models, model), nil
}

func NewGeminiServiceWithModels(models ImageGenerator, model string) *GeminiService {
	if model == "" {
		model = defaultImagenModel
	}
	return &GeminiService{models: models, model: model}
}

// GenerateImage returns the first generated image as encoded bytes (PNG).
func (s *GeminiService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	log.Info().Str("model", s.model).Int("prompt_len", len(prompt)).Msg("[Gemini] Generating background image")

	resp, err := s.models.GenerateImages(ctx, s.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "9:16",
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return nil, fmt.Errorf("imagen request failed: %w", err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, fmt.Errorf("imagen returned no images")
	}

	img := resp.GeneratedImages[0]
	if img.RAIFilteredReason != "" {
		return nil, fmt.Errorf("image blocked by safety filters: %s", img.RAIFilteredReason)
	}
	if img.Image == nil || len(img.Image.ImageBytes) == 0 {
		return nil, fmt.Errorf("imagen returned an empty image")
	}

	log.Info().Int("bytes", len(img.Image.ImageBytes)).Msg("[Gemini] Background image generated")
	return img.Image.ImageBytes, nil
}
