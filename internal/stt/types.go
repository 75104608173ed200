package stt

import "errors"

// ErrStreamConnection indicates the recognition stream could not be
// established after bounded retries. Fatal to the session.
var ErrStreamConnection = errors.New("recognition stream connection failed")

// Transcript is one recognition result. Results arrive arbitrarily often
// per utterance with no finality guarantee; interim results are forwarded
// so interruptions can be detected while synthesized audio is playing.
type Transcript struct {
	// Text is the transcribed text
	Text string

	// IsFinal indicates a final transcription (true) or interim (false)
	IsFinal bool

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64
}

// Recognizer is the interface for streaming speech-to-text clients.
type Recognizer interface {
	// Start establishes the live recognition stream. Establishment
	// failures are retried with bounded exponential backoff; exhausting
	// the attempt cap returns an error wrapping ErrStreamConnection.
	Start() error

	// SendAudio feeds a raw audio chunk to the recognition stream
	SendAudio(audioData []byte) error

	// Transcripts returns the channel on which recognition results arrive
	Transcripts() <-chan Transcript

	// Close releases the stream and all client resources
	Close() error
}
