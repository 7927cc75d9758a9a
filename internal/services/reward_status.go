package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

// Reward generation phases, advisory only: a polling client renders them, and
// nothing downstream depends on them.
const (
	RewardPhaseGenerating = "generating"
	RewardPhaseRetrying   = "retrying"
	RewardPhaseCompleted  = "completed"
	RewardPhaseFailed     = "failed"
)

type RewardStatus struct {
	RoundID   uuid.UUID `json:"round_id"`
	Phase     string    `json:"phase"`
	Stage     string    `json:"stage,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RewardStatusTracker is process-scoped, non-durable state keyed by round id.
// It is injected into services rather than imported as a singleton, and
// entries expire after a fixed TTL so abandoned polls never accumulate.
type RewardStatusTracker struct {
	log *logger.Logger

	mu      sync.RWMutex
	entries map[uuid.UUID]*RewardStatus

	ttl time.Duration
}

func NewRewardStatusTracker(log *logger.Logger) *RewardStatusTracker {
	return &RewardStatusTracker{
		log:     log.With("service", "RewardStatusTracker"),
		entries: make(map[uuid.UUID]*RewardStatus),
		ttl:     10 * time.Minute,
	}
}

// Start launches the periodic sweep. The goroutine exits with the context.
func (t *RewardStatusTracker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				t.Sweep(now)
			}
		}
	}()
}

func (t *RewardStatusTracker) set(roundID uuid.UUID, phase, stage string, attempt int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[roundID] = &RewardStatus{
		RoundID:   roundID,
		Phase:     phase,
		Stage:     stage,
		Attempt:   attempt,
		UpdatedAt: time.Now().UTC(),
	}
}

func (t *RewardStatusTracker) SetGenerating(roundID uuid.UUID) {
	t.set(roundID, RewardPhaseGenerating, "", 0)
}

func (t *RewardStatusTracker) SetRetrying(roundID uuid.UUID, stage string, attempt int) {
	t.set(roundID, RewardPhaseRetrying, stage, attempt)
}

func (t *RewardStatusTracker) SetCompleted(roundID uuid.UUID) {
	t.set(roundID, RewardPhaseCompleted, "", 0)
}

func (t *RewardStatusTracker) SetFailed(roundID uuid.UUID, stage string) {
	t.set(roundID, RewardPhaseFailed, stage, 0)
}

// Get returns a copy, or nil when the round has no live entry.
func (t *RewardStatusTracker) Get(roundID uuid.UUID) *RewardStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.entries[roundID]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (t *RewardStatusTracker) Clear(roundID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, roundID)
}

func (t *RewardStatusTracker) Sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, s := range t.entries {
		if now.Sub(s.UpdatedAt) > t.ttl {
			delete(t.entries, id)
		}
	}
}
