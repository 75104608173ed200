package interview

import "time"

// Timer tracks the fixed interview duration.
type Timer struct {
	duration  time.Duration
	startedAt time.Time
	now       func() time.Time
}

// NewTimer creates a timer for the given duration. The timer does not
// run until Start is called.
func NewTimer(duration time.Duration) *Timer {
	return &Timer{
		duration: duration,
		now:      time.Now,
	}
}

// Start begins the countdown.
func (t *Timer) Start() {
	t.startedAt = t.now()
}

// IsExpired reports whether the interview duration has elapsed.
func (t *Timer) IsExpired() bool {
	if t.startedAt.IsZero() {
		return false
	}
	return t.now().Sub(t.startedAt) >= t.duration
}

// Remaining returns the time left before expiry. It returns zero once
// expired and the full duration before Start.
func (t *Timer) Remaining() time.Duration {
	if t.startedAt.IsZero() {
		return t.duration
	}
	remaining := t.duration - t.now().Sub(t.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Elapsed returns the time since Start, or zero before Start.
func (t *Timer) Elapsed() time.Duration {
	if t.startedAt.IsZero() {
		return 0
	}
	return t.now().Sub(t.startedAt)
}
