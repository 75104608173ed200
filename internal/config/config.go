package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the interview gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Deepgram STT API configuration
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en-US"`

	// Groq chat completions API configuration
	GroqAPIKey string `envconfig:"GROQ_API_KEY" required:"true"`
	GroqModel  string `envconfig:"GROQ_MODEL" default:"openai/gpt-oss-120b"`
	GroqAPIURL string `envconfig:"GROQ_API_URL" default:"https://api.groq.com/openai/v1/chat/completions"`

	// ElevenLabs TTS API configuration
	ElevenLabsAPIKey  string `envconfig:"ELEVENLABS_API_KEY" required:"true"`
	ElevenLabsVoiceID string `envconfig:"ELEVENLABS_VOICE_ID" default:"21m00Tcm4TlvDq8ikWAM"`
	ElevenLabsModelID string `envconfig:"ELEVENLABS_MODEL_ID" default:"eleven_monolingual_v1"`

	// Interview settings
	InterviewDurationMinutes int    `envconfig:"INTERVIEW_DURATION_MINUTES" default:"10"`
	SessionTTLMinutes        int    `envconfig:"SESSION_TTL_MINUTES" default:"30"` // Eviction of sessions never attached to a call
	UploadDir                string `envconfig:"UPLOAD_DIR" default:"uploads"`

	// Audio processing configuration
	SampleRate              int     `envconfig:"SAMPLE_RATE" default:"16000"`           // Hz, single channel 16-bit PCM
	FrameDurationMs         int     `envconfig:"FRAME_DURATION_MS" default:"30"`        // VAD frame duration (10, 20 or 30 ms)
	SilenceThresholdSeconds float64 `envconfig:"SILENCE_THRESHOLD_SECONDS" default:"1"` // Silence before end-of-utterance fires
	VADMode                 int     `envconfig:"VAD_MODE" default:"2"`                  // Classifier aggressiveness (0-3)
	EventQueueSize          int     `envconfig:"EVENT_QUEUE_SIZE" default:"100"`        // Per-session event queue depth

	// Resilience configuration
	StreamMaxAttempts          int `envconfig:"STREAM_MAX_ATTEMPTS" default:"5"`            // Recognition stream connect attempts
	StreamInitialBackoffMs     int `envconfig:"STREAM_INITIAL_BACKOFF" default:"1000"`      // Initial backoff in milliseconds
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables.
// A .env file is loaded first if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load a .env file.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}
	if cfg.ElevenLabsAPIKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
	}

	switch cfg.FrameDurationMs {
	case 10, 20, 30:
	default:
		return nil, fmt.Errorf("FRAME_DURATION_MS must be 10, 20 or 30, got %d", cfg.FrameDurationMs)
	}
	if cfg.VADMode < 0 || cfg.VADMode > 3 {
		return nil, fmt.Errorf("VAD_MODE must be between 0 and 3, got %d", cfg.VADMode)
	}

	return &cfg, nil
}

// InterviewDuration returns the configured interview duration.
func (c *Config) InterviewDuration() time.Duration {
	return time.Duration(c.InterviewDurationMinutes) * time.Minute
}

// SilenceThreshold returns the configured silence threshold.
func (c *Config) SilenceThreshold() time.Duration {
	return time.Duration(c.SilenceThresholdSeconds * float64(time.Second))
}

// SessionTTL returns the configured session time-to-live.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}
