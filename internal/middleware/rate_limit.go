package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

// RateLimiter is process-scoped sliding-window state keyed by user. It is
// constructed once and injected, never reached as a package global, so a
// second instance (or a test) gets its own window.
type RateLimiter struct {
	log *logger.Logger

	mu      sync.Mutex
	windows map[uuid.UUID][]time.Time

	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(log *logger.Logger, limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		log:     log.With("middleware", "RateLimiter"),
		windows: make(map[uuid.UUID][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow records one request for the user and reports whether it fits the
// window.
func (rl *RateLimiter) Allow(userID uuid.UUID) bool {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	kept := rl.windows[userID][:0]
	for _, t := range rl.windows[userID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= rl.limit {
		rl.windows[userID] = kept
		return false
	}
	rl.windows[userID] = append(kept, now)
	return true
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == uuid.Nil {
			c.Next()
			return
		}
		if !rl.Allow(userID) {
			rl.log.Warn("rate limit exceeded", "user_id", userID)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"message": "too many requests", "code": "rate_limited"},
			})
			return
		}
		c.Next()
	}
}
