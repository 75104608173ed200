package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testDetectorConfig() DetectorConfig {
	return DetectorConfig{
		SampleRate:       16000,
		FrameDuration:    30 * time.Millisecond,
		SilenceThreshold: time.Second,
		Mode:             2,
	}
}

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	classifier, err := NewEnergyClassifier(2)
	if err != nil {
		t.Fatalf("NewEnergyClassifier failed: %v", err)
	}
	return NewDetector(testDetectorConfig(), classifier, zerolog.Nop())
}

// speechFrame returns a frame with high RMS energy.
func speechFrame(size int) []byte {
	samples := make([]int16, size/2)
	for i := range samples {
		samples[i] = 5000
	}
	return SamplesToBytes(samples)
}

// silenceFrame returns a frame with near-zero RMS energy.
func silenceFrame(size int) []byte {
	samples := make([]int16, size/2)
	for i := range samples {
		samples[i] = 10
	}
	return SamplesToBytes(samples)
}

func TestDetector_FrameSize(t *testing.T) {
	d := newTestDetector(t)

	// 16000 Hz * 30 ms * 2 bytes per sample
	if d.FrameSize() != 960 {
		t.Errorf("Expected frame size 960, got %d", d.FrameSize())
	}
}

func TestDetector_MalformedFrameDropped(t *testing.T) {
	d := newTestDetector(t)

	before := d.State()
	if d.ProcessFrame(make([]byte, 10)) {
		t.Error("Expected malformed frame to classify as silence")
	}
	if d.State() != before {
		t.Error("Expected no state mutation for malformed frame")
	}
}

func TestDetector_HysteresisBelowThreshold(t *testing.T) {
	d := newTestDetector(t)
	speech := speechFrame(d.FrameSize())
	silence := silenceFrame(d.FrameSize())

	// 2 speech frames then 1 silence frame must not confirm speaking
	d.ProcessFrame(speech)
	d.ProcessFrame(speech)
	d.ProcessFrame(silence)

	if d.IsSpeaking() {
		t.Error("Expected speaking flag unset below hysteresis threshold")
	}
	if d.State().SpeechDetected {
		t.Error("Expected no confirmed-speech episode below hysteresis threshold")
	}
}

func TestDetector_HysteresisAtThreshold(t *testing.T) {
	d := newTestDetector(t)
	speech := speechFrame(d.FrameSize())

	for i := 0; i < 3; i++ {
		if !d.ProcessFrame(speech) {
			t.Errorf("Expected frame %d classified as speech", i)
		}
	}
	if !d.IsSpeaking() {
		t.Error("Expected speaking flag set after 3 consecutive speech frames")
	}
}

func TestDetector_LeadingSilenceNeverTriggers(t *testing.T) {
	d := newTestDetector(t)
	fired := false
	d.SetSilenceCallback(func() { fired = true })

	now := time.Now()
	d.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	silence := silenceFrame(d.FrameSize())
	for i := 0; i < 100; i++ {
		d.ProcessFrame(silence)
	}

	if fired {
		t.Error("Expected no silence callback before any confirmed speech")
	}
	if !d.State().SilenceStart.IsZero() {
		t.Error("Expected no silence timer before any confirmed speech")
	}
}

func TestDetector_SilenceTiming(t *testing.T) {
	d := newTestDetector(t)
	fired := 0
	d.SetSilenceCallback(func() { fired++ })

	current := time.Unix(1000, 0)
	d.now = func() time.Time { return current }

	speech := speechFrame(d.FrameSize())
	silence := silenceFrame(d.FrameSize())

	for i := 0; i < 3; i++ {
		d.ProcessFrame(speech)
	}

	// Third consecutive silence frame starts the silence timer
	for i := 0; i < 3; i++ {
		d.ProcessFrame(silence)
	}
	if d.State().SilenceStart.IsZero() {
		t.Fatal("Expected silence timer started after 3 consecutive silence frames")
	}

	// Just under the threshold: must not fire
	current = current.Add(999 * time.Millisecond)
	d.ProcessFrame(silence)
	if fired != 0 {
		t.Errorf("Expected no callback before threshold, fired %d times", fired)
	}

	// At the threshold: fires exactly once
	current = current.Add(1 * time.Millisecond)
	d.ProcessFrame(silence)
	if fired != 1 {
		t.Errorf("Expected exactly one callback at threshold, fired %d times", fired)
	}

	// Detector reset itself; further silence cannot refire the episode
	current = current.Add(10 * time.Second)
	for i := 0; i < 10; i++ {
		d.ProcessFrame(silence)
	}
	if fired != 1 {
		t.Errorf("Expected episode to fire at most once, fired %d times", fired)
	}
}

func TestDetector_NewEpisodeAfterReset(t *testing.T) {
	d := newTestDetector(t)
	fired := 0
	d.SetSilenceCallback(func() { fired++ })

	current := time.Unix(1000, 0)
	d.now = func() time.Time { return current }

	speech := speechFrame(d.FrameSize())
	silence := silenceFrame(d.FrameSize())

	runEpisode := func() {
		for i := 0; i < 3; i++ {
			d.ProcessFrame(speech)
		}
		for i := 0; i < 3; i++ {
			d.ProcessFrame(silence)
		}
		current = current.Add(time.Second)
		d.ProcessFrame(silence)
	}

	runEpisode()
	runEpisode()

	if fired != 2 {
		t.Errorf("Expected one callback per reconfirmed episode, fired %d times", fired)
	}
}

func TestDetector_SpeechClearsSilenceTimer(t *testing.T) {
	d := newTestDetector(t)
	speech := speechFrame(d.FrameSize())
	silence := silenceFrame(d.FrameSize())

	for i := 0; i < 3; i++ {
		d.ProcessFrame(speech)
	}
	for i := 0; i < 3; i++ {
		d.ProcessFrame(silence)
	}
	if d.State().SilenceStart.IsZero() {
		t.Fatal("Expected silence timer started")
	}

	// Confirmed speech again clears the timer
	for i := 0; i < 3; i++ {
		d.ProcessFrame(speech)
	}
	if !d.State().SilenceStart.IsZero() {
		t.Error("Expected silence timer cleared after reconfirmed speech")
	}
}

func TestDetector_Reset(t *testing.T) {
	d := newTestDetector(t)
	speech := speechFrame(d.FrameSize())

	for i := 0; i < 3; i++ {
		d.ProcessFrame(speech)
	}
	if !d.IsSpeaking() {
		t.Fatal("Expected speaking flag set")
	}

	d.Reset()
	state := d.State()
	if state.Speaking || state.SpeechDetected || state.ConsecutiveSpeech != 0 ||
		state.ConsecutiveSilence != 0 || !state.SilenceStart.IsZero() {
		t.Errorf("Expected zeroed state after Reset, got %+v", state)
	}
}

// failingClassifier always returns an error.
type failingClassifier struct{}

func (failingClassifier) IsSpeech(frame []byte, sampleRate int) (bool, error) {
	return false, errors.New("classifier backend unavailable")
}

func TestDetector_ClassifierFailureFailsOpen(t *testing.T) {
	d := NewDetector(testDetectorConfig(), failingClassifier{}, zerolog.Nop())

	if d.ProcessFrame(speechFrame(d.FrameSize())) {
		t.Error("Expected classifier failure to count as silence")
	}
	if d.State().ConsecutiveSilence != 1 {
		t.Errorf("Expected silence counter 1 after failed classification, got %d",
			d.State().ConsecutiveSilence)
	}
}

func TestEnergyClassifier_Modes(t *testing.T) {
	low, err := NewEnergyClassifier(0)
	if err != nil {
		t.Fatalf("NewEnergyClassifier(0) failed: %v", err)
	}
	high, err := NewEnergyClassifier(3)
	if err != nil {
		t.Fatalf("NewEnergyClassifier(3) failed: %v", err)
	}

	// Medium energy frame: speech for mode 0, silence for mode 3
	samples := make([]int16, 480)
	for i := range samples {
		samples[i] = 600
	}
	frame := SamplesToBytes(samples)

	if got, _ := low.IsSpeech(frame, 16000); !got {
		t.Error("Expected mode 0 to classify medium energy as speech")
	}
	if got, _ := high.IsSpeech(frame, 16000); got {
		t.Error("Expected mode 3 to classify medium energy as silence")
	}
}

func TestEnergyClassifier_InvalidMode(t *testing.T) {
	if _, err := NewEnergyClassifier(4); err == nil {
		t.Error("Expected error for mode 4")
	}
	if _, err := NewEnergyClassifier(-1); err == nil {
		t.Error("Expected error for mode -1")
	}
}
