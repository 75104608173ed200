package interview

import (
	"testing"
	"time"
)

func TestTimer_NotExpiredBeforeStart(t *testing.T) {
	timer := NewTimer(10 * time.Minute)
	if timer.IsExpired() {
		t.Error("Timer should not be expired before Start")
	}
	if timer.Remaining() != 10*time.Minute {
		t.Errorf("Expected full duration remaining, got %v", timer.Remaining())
	}
	if timer.Elapsed() != 0 {
		t.Errorf("Expected zero elapsed before Start, got %v", timer.Elapsed())
	}
}

func TestTimer_Expiry(t *testing.T) {
	now := time.Now()
	timer := NewTimer(10 * time.Minute)
	timer.now = func() time.Time { return now }
	timer.Start()

	if timer.IsExpired() {
		t.Error("Timer should not be expired immediately after Start")
	}

	now = now.Add(9 * time.Minute)
	if timer.IsExpired() {
		t.Error("Timer should not be expired at 9 minutes")
	}
	if timer.Remaining() != time.Minute {
		t.Errorf("Expected 1 minute remaining, got %v", timer.Remaining())
	}

	now = now.Add(time.Minute)
	if !timer.IsExpired() {
		t.Error("Timer should be expired at exactly the duration")
	}
	if timer.Remaining() != 0 {
		t.Errorf("Expected zero remaining, got %v", timer.Remaining())
	}
}

func TestTimer_RemainingClampsAtZero(t *testing.T) {
	now := time.Now()
	timer := NewTimer(time.Minute)
	timer.now = func() time.Time { return now }
	timer.Start()

	now = now.Add(5 * time.Minute)
	if timer.Remaining() != 0 {
		t.Errorf("Expected zero remaining after expiry, got %v", timer.Remaining())
	}
	if timer.Elapsed() != 5*time.Minute {
		t.Errorf("Expected 5 minutes elapsed, got %v", timer.Elapsed())
	}
}
