package services

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultFactModel   = "gpt-4o-mini"
	factTemperature    = 0.9
	factMaxTokens      = 200
	openAISpeechVoice  = openai.VoiceAlloy
	openAIImageSize    = openai.CreateImageSize512x512
	maxLoggedRawLength = 500
)

// OpenAIService covers the three OpenAI calls a job can make: chat completion
// for facts, image generation for the background, and speech when selected.
type OpenAIService struct {
	client     *openai.Client
	factModel  string
	downloader *Downloader
}

// Compile-time interface checks
var (
	_ TTSService  = (*OpenAIService)(nil)
	_ ImageSource = (*OpenAIService)(nil)
)

func NewOpenAIService(apiKey, factModel string, downloader *Downloader) *OpenAIService {
	return NewOpenAIServiceWithConfig(openai.DefaultConfig(apiKey), factModel, downloader)
}

// NewOpenAIServiceWithConfig allows overriding the base URL and HTTP client.
func NewOpenAIServiceWithConfig(cfg openai.ClientConfig, factModel string, downloader *Downloader) *OpenAIService {
	if factModel == "" {
		factModel = defaultFactModel
	}
	if downloader == nil {
		downloader = NewDownloader(0)
	}
	return &OpenAIService{
		client:     openai.NewClientWithConfig(cfg),
		factModel:  factModel,
		downloader: downloader,
	}
}

// GenerateFacts returns the raw completion text; parsing and fallback are the
// caller's job.
func (s *OpenAIService) GenerateFacts(ctx context.Context, language string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.factModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: FactsPrompt(language),
			},
		},
		Temperature: factTemperature,
		MaxTokens:   factMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	raw := resp.Choices[0].Message.Content
	log.Debug().Str("model", s.factModel).Str("raw", truncateString(raw, maxLoggedRawLength)).
		Msg("[OpenAI facts] completion received")

	return raw, nil
}

// GenerateImage creates a background image and downloads it from the
// returned URL.
func (s *OpenAIService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := s.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		N:              1,
		Size:           openAIImageSize,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image request failed: %w", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, fmt.Errorf("openai returned no image url")
	}

	log.Info().Str("size", openAIImageSize).Msg("[OpenAI image] image generated, downloading")

	return s.downloader.Fetch(ctx, resp.Data[0].URL)
}

// Synthesize converts text to MP3 speech with OpenAI TTS. The model picks
// up the language from the text itself.
func (s *OpenAIService) Synthesize(ctx context.Context, text, language string) (*TTSResponse, error) {
	if text == "" {
		return nil, fmt.Errorf("no text to synthesize")
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openAISpeechVoice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech request failed: %w", err)
	}
	defer resp.Close()

	audioData, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read openai speech response: %w", err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("openai returned empty audio")
	}

	durationMs := estimateAudioDuration(text, 1.0)
	log.Info().Int("bytes", len(audioData)).Int("estimated_ms", durationMs).Str("language", language).
		Msg("[OpenAI TTS] Speech generated")

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: durationMs,
		Format:     "mp3",
	}, nil
}

// truncateString truncates a string to at most maxLen bytes on a rune
// boundary and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
