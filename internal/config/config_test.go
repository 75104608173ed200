package config

import (
	"os"
	"testing"
)

func setRequiredKeys(t *testing.T) {
	t.Helper()
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	os.Setenv("GROQ_API_KEY", "test-groq-key")
	os.Setenv("ELEVENLABS_API_KEY", "test-elevenlabs-key")
	t.Cleanup(func() {
		os.Unsetenv("DEEPGRAM_API_KEY")
		os.Unsetenv("GROQ_API_KEY")
		os.Unsetenv("ELEVENLABS_API_KEY")
	})
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredKeys(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}
	if cfg.GroqAPIKey != "test-groq-key" {
		t.Errorf("Expected GroqAPIKey 'test-groq-key', got '%s'", cfg.GroqAPIKey)
	}
	if cfg.ElevenLabsAPIKey != "test-elevenlabs-key" {
		t.Errorf("Expected ElevenLabsAPIKey 'test-elevenlabs-key', got '%s'", cfg.ElevenLabsAPIKey)
	}
}

func TestLoadFromEnv_MissingRequired(t *testing.T) {
	os.Unsetenv("DEEPGRAM_API_KEY")
	os.Unsetenv("GROQ_API_KEY")
	os.Unsetenv("ELEVENLABS_API_KEY")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error when required keys are missing")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequiredKeys(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("Expected default SampleRate 16000, got %d", cfg.SampleRate)
	}
	if cfg.FrameDurationMs != 30 {
		t.Errorf("Expected default FrameDurationMs 30, got %d", cfg.FrameDurationMs)
	}
	if cfg.VADMode != 2 {
		t.Errorf("Expected default VADMode 2, got %d", cfg.VADMode)
	}
	if cfg.InterviewDurationMinutes != 10 {
		t.Errorf("Expected default InterviewDurationMinutes 10, got %d", cfg.InterviewDurationMinutes)
	}
	if cfg.SilenceThresholdSeconds != 1 {
		t.Errorf("Expected default SilenceThresholdSeconds 1, got %f", cfg.SilenceThresholdSeconds)
	}
}

func TestLoadFromEnv_InvalidFrameDuration(t *testing.T) {
	setRequiredKeys(t)
	os.Setenv("FRAME_DURATION_MS", "25")
	defer os.Unsetenv("FRAME_DURATION_MS")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error for unsupported frame duration")
	}
}

func TestLoadFromEnv_InvalidVADMode(t *testing.T) {
	setRequiredKeys(t)
	os.Setenv("VAD_MODE", "7")
	defer os.Unsetenv("VAD_MODE")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error for out-of-range VAD mode")
	}
}

func TestDurationHelpers(t *testing.T) {
	setRequiredKeys(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.InterviewDuration().Minutes() != 10 {
		t.Errorf("Expected 10 minute interview duration, got %v", cfg.InterviewDuration())
	}
	if cfg.SilenceThreshold().Seconds() != 1 {
		t.Errorf("Expected 1 second silence threshold, got %v", cfg.SilenceThreshold())
	}
	if cfg.SessionTTL().Minutes() != 30 {
		t.Errorf("Expected 30 minute session TTL, got %v", cfg.SessionTTL())
	}
}
