package app

import (
	"github.com/gin-gonic/gin"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/server"
)

func wireRouter(log *logger.Logger, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Log:             log,
		Identity:        middleware.Identity,
		RateLimiter:     middleware.RateLimiter,
		RoundHandler:    handlers.Round,
		RewardHandler:   handlers.Reward,
		ProgressHandler: handlers.Progress,
	})
}
