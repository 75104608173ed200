package tts

import "context"

// Synthesizer is the interface for text-to-speech collaborators.
type Synthesizer interface {
	// Synthesize converts text to encoded audio bytes
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
