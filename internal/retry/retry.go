package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

// Policy controls how long Do waits between attempts.
type Policy struct {
	// MaxAttempts counts the first call; a value of 3 allows two retries.
	MaxAttempts int
	// Delays is the explicit backoff ladder. When attempts outnumber
	// entries, the last entry repeats.
	Delays []time.Duration
	// Jitter widens each sleep by +/- 20% when set.
	Jitter bool
}

func Linear(attempts int, step time.Duration) Policy {
	delays := make([]time.Duration, 0, attempts-1)
	for i := 1; i < attempts; i++ {
		delays = append(delays, time.Duration(i)*step)
	}
	return Policy{MaxAttempts: attempts, Delays: delays}
}

func Exponential(attempts int, base, cap time.Duration) Policy {
	delays := make([]time.Duration, 0, attempts-1)
	d := base
	for i := 1; i < attempts; i++ {
		if d > cap {
			d = cap
		}
		delays = append(delays, d)
		d *= 2
	}
	return Policy{MaxAttempts: attempts, Delays: delays, Jitter: true}
}

func Fixed(attempts int, delays ...time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delays: delays}
}

func (p Policy) delayFor(attempt int) time.Duration {
	if len(p.Delays) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx >= len(p.Delays) {
		idx = len(p.Delays) - 1
	}
	d := p.Delays[idx]
	if p.Jitter {
		d = jitter(d)
	}
	return d
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// Do runs fn up to policy.MaxAttempts times, sleeping between attempts.
// isRetryable decides whether a failure is worth another attempt; a nil
// classifier retries everything. The context is checked before every attempt
// so a canceled caller never pays for the remaining ladder.
func Do(ctx context.Context, log *logger.Logger, policy Policy, isRetryable func(error) bool, fn func(ctx context.Context, attempt int) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			return lastErr
		}

		sleepFor := policy.delayFor(attempt)
		if log != nil {
			log.Warn("retrying after failure",
				"attempt", attempt,
				"max_attempts", policy.MaxAttempts,
				"sleep", sleepFor.String(),
				"error", lastErr.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
	}
	return lastErr
}
