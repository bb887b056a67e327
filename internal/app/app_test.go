package app

import (
	"context"
	"testing"

	"github.com/bobarin/factshorts/internal/config"
	"github.com/bobarin/factshorts/internal/services"
)

func TestNewTTS(t *testing.T) {
	openaiSvc := services.NewOpenAIService("sk-test", "", nil)

	tests := []struct {
		provider string
		check    func(services.TTSService) bool
	}{
		{"translate", func(s services.TTSService) bool { _, ok := s.(*services.TranslateTTSService); return ok }},
		{"", func(s services.TTSService) bool { _, ok := s.(*services.TranslateTTSService); return ok }},
		{"elevenlabs", func(s services.TTSService) bool { _, ok := s.(*services.ElevenLabsService); return ok }},
		{"openai", func(s services.TTSService) bool { return s == services.TTSService(openaiSvc) }},
	}

	for _, tt := range tests {
		got, err := NewTTS(&config.Config{TTSProvider: tt.provider, ElevenLabsKey: "k"}, openaiSvc)
		if err != nil {
			t.Fatalf("%q: %v", tt.provider, err)
		}
		if !tt.check(got) {
			t.Errorf("%q: unexpected provider %T", tt.provider, got)
		}
	}

	if _, err := NewTTS(&config.Config{TTSProvider: "gtts"}, openaiSvc); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewImageSource(t *testing.T) {
	openaiSvc := services.NewOpenAIService("sk-test", "", nil)

	got, err := NewImageSource(context.Background(), &config.Config{ImageProvider: "openai"}, openaiSvc)
	if err != nil || got != services.ImageSource(openaiSvc) {
		t.Errorf("expected the OpenAI service, got %T (%v)", got, err)
	}

	if _, err := NewImageSource(context.Background(), &config.Config{ImageProvider: "midjourney"}, openaiSvc); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestHandlerWithoutQueueOrLedger(t *testing.T) {
	a := &App{}
	if a.Handler() == nil {
		t.Fatal("expected handler")
	}
	a.Close()
}
