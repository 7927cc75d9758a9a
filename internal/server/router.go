package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rizzlab/rizzlab-backend/internal/handlers"
	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/middleware"
)

type RouterConfig struct {
	Log *logger.Logger

	Identity    *middleware.IdentityMiddleware
	RateLimiter *middleware.RateLimiter

	RoundHandler    *handlers.RoundHandler
	RewardHandler   *handlers.RewardHandler
	ProgressHandler *handlers.ProgressHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("rizzlab-backend"))
	router.Use(middleware.RequestLogger(cfg.Log))

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", middleware.UserIDHeader},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.Identity.RequireUser())
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware())
	}

	// Rounds
	api.POST("/rounds", cfg.RoundHandler.StartRound)
	api.GET("/rounds/:id", cfg.RoundHandler.GetRound)
	api.POST("/rounds/:id/messages", cfg.RoundHandler.ScoreMessage)

	// Rewards
	api.POST("/rounds/:id/reward", cfg.RewardHandler.GenerateReward)
	api.GET("/rounds/:id/reward", cfg.RewardHandler.GetReward)
	api.GET("/rounds/:id/reward/status", cfg.RewardHandler.GetRewardStatus)

	// Progress
	api.GET("/progress", cfg.ProgressHandler.GetProgress)

	return router
}
