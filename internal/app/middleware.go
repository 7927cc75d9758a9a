package app

import (
	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/middleware"
)

type Middleware struct {
	Identity    *middleware.IdentityMiddleware
	RateLimiter *middleware.RateLimiter
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Identity:    middleware.NewIdentityMiddleware(log),
		RateLimiter: middleware.NewRateLimiter(log, cfg.RateLimit, cfg.RateLimitWindow),
	}
}
