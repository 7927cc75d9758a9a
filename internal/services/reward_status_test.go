package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRewardStatusLifecycle(t *testing.T) {
	tracker := NewRewardStatusTracker(testLogger(t))
	roundID := uuid.New()

	if got := tracker.Get(roundID); got != nil {
		t.Fatalf("Get before any set returned %+v, want nil", got)
	}

	tracker.SetGenerating(roundID)
	if got := tracker.Get(roundID); got == nil || got.Phase != RewardPhaseGenerating {
		t.Fatalf("after SetGenerating got %+v", got)
	}

	tracker.SetRetrying(roundID, "image", 2)
	got := tracker.Get(roundID)
	if got == nil || got.Phase != RewardPhaseRetrying || got.Stage != "image" || got.Attempt != 2 {
		t.Fatalf("after SetRetrying got %+v", got)
	}

	tracker.SetCompleted(roundID)
	if got := tracker.Get(roundID); got == nil || got.Phase != RewardPhaseCompleted {
		t.Fatalf("after SetCompleted got %+v", got)
	}

	tracker.Clear(roundID)
	if got := tracker.Get(roundID); got != nil {
		t.Fatalf("after Clear got %+v, want nil", got)
	}
}

func TestRewardStatusGetReturnsCopy(t *testing.T) {
	tracker := NewRewardStatusTracker(testLogger(t))
	roundID := uuid.New()
	tracker.SetGenerating(roundID)

	first := tracker.Get(roundID)
	first.Phase = "mutated"

	second := tracker.Get(roundID)
	if second.Phase != RewardPhaseGenerating {
		t.Fatalf("caller mutation leaked into tracker: %+v", second)
	}
}

func TestRewardStatusSweep(t *testing.T) {
	tracker := NewRewardStatusTracker(testLogger(t))
	fresh := uuid.New()
	stale := uuid.New()

	tracker.SetGenerating(stale)
	tracker.mu.Lock()
	tracker.entries[stale].UpdatedAt = time.Now().Add(-11 * time.Minute)
	tracker.mu.Unlock()
	tracker.SetGenerating(fresh)

	tracker.Sweep(time.Now())

	if got := tracker.Get(stale); got != nil {
		t.Fatalf("stale entry survived sweep: %+v", got)
	}
	if got := tracker.Get(fresh); got == nil {
		t.Fatalf("fresh entry swept")
	}
}
