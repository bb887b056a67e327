package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Job ledger (optional, empty = no ledger)
	DatabaseURL string

	// Redis queue + result cache (optional, empty = synchronous API only)
	RedisURL  string
	ResultTTL time.Duration

	// S3
	AWSRegion      string
	S3Bucket       string
	S3Prefix       string
	S3UsePathStyle bool
	PresignTTL     time.Duration

	// OpenAI (facts, and images/speech when selected)
	OpenAIKey    string
	FactModel    string
	FactAttempts int

	// Gemini (images when IMAGE_PROVIDER=gemini)
	GeminiKey string

	// Providers
	ImageProvider string // "openai" or "gemini"
	TTSProvider   string // "translate", "elevenlabs" or "openai"

	// ElevenLabs
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// Content
	Language             string // ISO 639-1 code used for facts and speech
	VideoDurationSeconds int

	// Rendering
	FontPath            string
	FontFallbackEnabled bool // Use the embedded Go font when FontPath cannot be read
	FFmpegPath          string
	EncodeTimeout       time.Duration
	TempDir             string
	DownloadTimeout     time.Duration

	// Worker
	MaxConcurrentJobs int

	// Logging
	LogLevel  string
	LogFormat string // "json" or "console"
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:              getEnv("API_PORT", "8080"),
		WorkerEnabled:        getEnvBool("WORKER_ENABLED", false),
		BackendAPIKey:        getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		ResultTTL:            getEnvDuration("RESULT_TTL", 24*time.Hour),
		AWSRegion:            getEnv("AWS_REGION", ""),
		S3Bucket:             getEnv("S3_BUCKET", getEnv("BUCKET_NAME", "")),
		S3Prefix:             getEnv("S3_PREFIX", "videos"),
		S3UsePathStyle:       getEnvBool("S3_USE_PATH_STYLE", false),
		PresignTTL:           getEnvDuration("PRESIGN_TTL", time.Hour),
		OpenAIKey:            getEnv("OPENAI_API_KEY", ""),
		FactModel:            getEnv("FACT_MODEL", "gpt-4o-mini"),
		FactAttempts:         getEnvInt("FACT_ATTEMPTS", 3),
		GeminiKey:            getEnv("GEMINI_API_KEY", ""),
		ImageProvider:        strings.ToLower(getEnv("IMAGE_PROVIDER", "openai")),
		TTSProvider:          strings.ToLower(getEnv("TTS_PROVIDER", "translate")),
		ElevenLabsKey:        getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:    getEnv("ELEVENLABS_VOICE_ID", ""),
		Language:             getEnv("LANGUAGE", "ta"),
		VideoDurationSeconds: getEnvInt("VIDEO_DURATION_SECONDS", 30),
		FontPath:             getEnv("FONT_PATH", "/opt/fonts/NotoSansTamil-Bold.ttf"),
		FontFallbackEnabled:  getEnvBool("FONT_FALLBACK_ENABLED", false),
		FFmpegPath:           getEnv("FFMPEG_PATH", "ffmpeg"),
		EncodeTimeout:        getEnvDuration("ENCODE_TIMEOUT", 5*time.Minute),
		TempDir:              getEnv("TEMP_DIR", os.TempDir()),
		DownloadTimeout:      getEnvDuration("DOWNLOAD_TIMEOUT", 30*time.Second),
		MaxConcurrentJobs:    getEnvInt("MAX_CONCURRENT_JOBS", 2),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and provider selections.
func (c *Config) Validate() error {
	if c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required")
	}

	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	switch c.ImageProvider {
	case "openai":
	case "gemini":
		if c.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when IMAGE_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unknown IMAGE_PROVIDER %q (allowed: openai, gemini)", c.ImageProvider)
	}

	switch c.TTSProvider {
	case "translate", "openai":
	case "elevenlabs":
		if c.ElevenLabsKey == "" {
			return fmt.Errorf("ELEVENLABS_API_KEY is required when TTS_PROVIDER=elevenlabs")
		}
	default:
		return fmt.Errorf("unknown TTS_PROVIDER %q (allowed: translate, elevenlabs, openai)", c.TTSProvider)
	}

	if c.VideoDurationSeconds <= 0 {
		return fmt.Errorf("VIDEO_DURATION_SECONDS must be positive, got %d", c.VideoDurationSeconds)
	}

	if c.WorkerEnabled && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when WORKER_ENABLED=true")
	}

	if c.MaxConcurrentJobs < 1 {
		c.MaxConcurrentJobs = 1
	}
	if c.FactAttempts < 1 {
		c.FactAttempts = 1
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
