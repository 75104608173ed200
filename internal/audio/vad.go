package audio

import (
	"time"

	"github.com/rs/zerolog"
)

// hysteresisFrames is the number of consecutive same-class frames required
// before the detector flips state. Suppresses single-frame classifier flicker.
const hysteresisFrames = 3

// DetectorConfig holds configuration for the voice activity detector.
// All values are fixed at construction.
type DetectorConfig struct {
	SampleRate       int           // Audio sample rate in Hz
	FrameDuration    time.Duration // Frame duration (10, 20 or 30 ms)
	SilenceThreshold time.Duration // Continuous confirmed silence before the callback fires
	Mode             int           // Classifier aggressiveness mode (0-3)
}

// DefaultDetectorConfig returns the default detector configuration:
// 16 kHz, 30 ms frames, 1 s silence threshold, mode 2.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		SampleRate:       16000,
		FrameDuration:    30 * time.Millisecond,
		SilenceThreshold: time.Second,
		Mode:             2,
	}
}

// State is a snapshot of the detector's internal state.
type State struct {
	ConsecutiveSpeech  int
	ConsecutiveSilence int
	Speaking           bool      // Confirmed-speaking flag
	SpeechDetected     bool      // A confirmed-speech episode has occurred
	SilenceStart       time.Time // Zero when silence duration is not being measured
}

// Detector classifies fixed-size audio frames as speech or silence with
// hysteresis and fires a one-shot callback after sustained silence that
// follows a confirmed-speech episode. Not safe for concurrent use; callers
// must serialize ProcessFrame and Reset.
type Detector struct {
	classifier       FrameClassifier
	sampleRate       int
	frameSize        int
	silenceThreshold time.Duration
	onSilence        func()
	logger           zerolog.Logger
	now              func() time.Time

	consecutiveSpeech  int
	consecutiveSilence int
	speaking           bool
	speechDetected     bool
	silenceStart       time.Time
}

// NewDetector creates a detector using the given frame classifier.
func NewDetector(cfg DetectorConfig, classifier FrameClassifier, logger zerolog.Logger) *Detector {
	return &Detector{
		classifier:       classifier,
		sampleRate:       cfg.SampleRate,
		frameSize:        cfg.SampleRate * int(cfg.FrameDuration.Milliseconds()) / 1000 * 2,
		silenceThreshold: cfg.SilenceThreshold,
		logger:           logger,
		now:              time.Now,
	}
}

// FrameSize returns the exact frame length in bytes the detector accepts.
func (d *Detector) FrameSize() int {
	return d.frameSize
}

// SetSilenceCallback registers the end-of-utterance callback. The callback
// is invoked synchronously from ProcessFrame, at most once per episode.
func (d *Detector) SetSilenceCallback(cb func()) {
	d.onSilence = cb
}

// ProcessFrame classifies one frame and returns true for speech, false for
// silence. Frames of the wrong length are dropped without mutating state.
// Classifier failures count as silence for that single frame.
func (d *Detector) ProcessFrame(frame []byte) bool {
	if len(frame) != d.frameSize {
		d.logger.Warn().
			Int("got", len(frame)).
			Int("want", d.frameSize).
			Msg("Dropping malformed audio frame")
		return false
	}

	isSpeech, err := d.classifier.IsSpeech(frame, d.sampleRate)
	if err != nil {
		// Fail open: a classifier error never blocks the pipeline
		d.logger.Warn().Err(err).Msg("Frame classifier failed, treating frame as silence")
		isSpeech = false
	}

	if isSpeech {
		d.consecutiveSpeech++
		d.consecutiveSilence = 0
		if d.consecutiveSpeech >= hysteresisFrames {
			d.speaking = true
			d.speechDetected = true
			d.silenceStart = time.Time{}
		}
		return true
	}

	d.consecutiveSilence++
	d.consecutiveSpeech = 0

	// Leading silence before any confirmed speech never triggers
	if !d.speechDetected {
		return false
	}

	if d.consecutiveSilence == hysteresisFrames && d.silenceStart.IsZero() {
		d.silenceStart = d.now()
		d.logger.Debug().Msg("Silence episode started")
	}

	if !d.silenceStart.IsZero() && d.now().Sub(d.silenceStart) >= d.silenceThreshold {
		d.logger.Debug().Msg("Silence threshold reached")
		if d.onSilence != nil {
			d.onSilence()
		}
		// One-shot: the same episode cannot refire
		d.Reset()
	}
	return false
}

// Reset clears all counters, the speaking flags and the silence timer.
func (d *Detector) Reset() {
	d.consecutiveSpeech = 0
	d.consecutiveSilence = 0
	d.speaking = false
	d.speechDetected = false
	d.silenceStart = time.Time{}
}

// IsSpeaking reports whether a confirmed-speaking episode is in progress.
func (d *Detector) IsSpeaking() bool {
	return d.speaking
}

// State returns a snapshot of the detector's internal state.
func (d *Detector) State() State {
	return State{
		ConsecutiveSpeech:  d.consecutiveSpeech,
		ConsecutiveSilence: d.consecutiveSilence,
		Speaking:           d.speaking,
		SpeechDetected:     d.speechDetected,
		SilenceStart:       d.silenceStart,
	}
}
