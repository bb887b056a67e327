package services

import (
	"context"
	"strings"
)

// ---------------------------------------------------------------------------
// TTSService: common interface for text-to-speech providers
// Google Translate TTS, ElevenLabs and OpenAI implement this interface so the
// worker can use whichever is configured without knowing the provider.
// ---------------------------------------------------------------------------

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData  []byte
	DurationMs int    // estimate, providers do not report it
	Format     string // "mp3", "wav", etc.
}

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// Synthesize converts text to audio. language is an ISO 639-1 code; a
	// provider that infers the language from the text may ignore it.
	Synthesize(ctx context.Context, text, language string) (*TTSResponse, error)
}

// estimateAudioDuration estimates duration based on text length and speed.
// Average speaking rate is ~140 words per minute at normal speed.
func estimateAudioDuration(text string, speed float64) int {
	words := len(strings.Fields(text))
	if speed <= 0 {
		speed = 1.0
	}
	actualWPM := 140.0 * speed

	minutes := float64(words) / actualWPM
	return int(minutes * 60 * 1000)
}
