package middleware

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestRateLimiterAllowsWithinWindow(t *testing.T) {
	rl := NewRateLimiter(testLogger(t), 3, time.Minute)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		if !rl.Allow(userID) {
			t.Fatalf("request %d denied under the limit", i+1)
		}
	}
	if rl.Allow(userID) {
		t.Fatalf("request over the limit allowed")
	}
}

func TestRateLimiterIsolatesUsers(t *testing.T) {
	rl := NewRateLimiter(testLogger(t), 1, time.Minute)
	first := uuid.New()
	second := uuid.New()

	if !rl.Allow(first) {
		t.Fatalf("first user's first request denied")
	}
	if !rl.Allow(second) {
		t.Fatalf("second user throttled by first user's traffic")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(testLogger(t), 2, time.Minute)
	userID := uuid.New()

	current := time.Now()
	rl.now = func() time.Time { return current }

	if !rl.Allow(userID) || !rl.Allow(userID) {
		t.Fatalf("requests within limit denied")
	}
	if rl.Allow(userID) {
		t.Fatalf("third request in window allowed")
	}

	current = current.Add(61 * time.Second)
	if !rl.Allow(userID) {
		t.Fatalf("request denied after the window slid past old entries")
	}
}
