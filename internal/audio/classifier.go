package audio

import "fmt"

// FrameClassifier classifies a single fixed-size PCM frame as speech or
// silence. Implementations must be safe to call from a single goroutine;
// the detector serializes all calls.
type FrameClassifier interface {
	IsSpeech(frame []byte, sampleRate int) (bool, error)
}

// energyThresholds maps aggressiveness modes 0-3 to RMS energy thresholds.
// Higher modes demand more energy before a frame counts as speech.
var energyThresholds = [4]float64{250.0, 500.0, 750.0, 1000.0}

// EnergyClassifier classifies frames by RMS energy against a threshold
// selected by an aggressiveness mode (0-3).
type EnergyClassifier struct {
	threshold float64
}

// NewEnergyClassifier creates an energy classifier for the given mode.
func NewEnergyClassifier(mode int) (*EnergyClassifier, error) {
	if mode < 0 || mode >= len(energyThresholds) {
		return nil, fmt.Errorf("classifier mode must be between 0 and 3, got %d", mode)
	}
	return &EnergyClassifier{threshold: energyThresholds[mode]}, nil
}

// IsSpeech reports whether the frame's RMS energy exceeds the threshold.
func (c *EnergyClassifier) IsSpeech(frame []byte, sampleRate int) (bool, error) {
	samples, err := BytesToSamples(frame)
	if err != nil {
		return false, err
	}
	return CalculateRMS(samples) > c.threshold, nil
}

// Threshold returns the configured RMS threshold.
func (c *EnergyClassifier) Threshold() float64 {
	return c.threshold
}
