package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/interviewlab/voice-interviewer/internal/config"
	"github.com/interviewlab/voice-interviewer/internal/observability"
	"github.com/interviewlab/voice-interviewer/internal/resilience"
)

const defaultAPIURL = "https://api.elevenlabs.io/v1"

// ElevenLabsClient implements Synthesizer using the ElevenLabs HTTP API.
type ElevenLabsClient struct {
	apiKey         string
	apiURL         string
	voiceID        string
	modelID        string
	httpClient     *http.Client
	logger         zerolog.Logger
	circuitBreaker *resilience.CircuitBreaker
}

// voiceSettings tunes the synthesis voice.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// synthesizeRequest is the text-to-speech request payload.
type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// NewElevenLabsClient creates a new ElevenLabs synthesis client.
func NewElevenLabsClient(cfg *config.Config, logger zerolog.Logger) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:  cfg.ElevenLabsAPIKey,
		apiURL:  defaultAPIURL,
		voiceID: cfg.ElevenLabsVoiceID,
		modelID: cfg.ElevenLabsModelID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		circuitBreaker: resilience.NewCircuitBreaker(
			"elevenlabs",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}
}

// Synthesize converts text to MP3 audio through the circuit breaker.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var audio []byte

	err := c.circuitBreaker.Call(func() error {
		var callErr error
		audio, callErr = c.synthesize(ctx, text)
		return callErr
	})

	observability.UpdateCircuitBreakerState("elevenlabs", int(c.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("elevenlabs")
		return nil, err
	}
	return audio, nil
}

func (c *ElevenLabsClient) synthesize(ctx context.Context, text string) ([]byte, error) {
	jsonData, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", c.apiURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call synthesis API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis API returned status %d: %s", resp.StatusCode, body)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("synthesis API returned empty audio")
	}

	c.logger.Debug().
		Int("text_len", len(text)).
		Int("audio_bytes", len(body)).
		Msg("Synthesized speech")
	return body, nil
}
