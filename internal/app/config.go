package app

import (
	"time"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/utils"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	CheatEnabled bool
	CheatCode    string

	RateLimit       int
	RateLimitWindow time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	port := utils.GetEnv("PORT", "8080", log)
	environment := utils.GetEnv("ENVIRONMENT", "development", log)
	version := utils.GetEnv("SERVICE_VERSION", "dev", log)

	cheatEnabled := utils.GetEnvAsBool("CHEAT_CODE_ENABLED", false, log)
	cheatCode := utils.GetEnv("CHEAT_CODE", "wingman", log)

	rateLimit := utils.GetEnvAsInt("RATE_LIMIT_PER_MINUTE", 30, log)

	return Config{
		Port:            port,
		Environment:     environment,
		Version:         version,
		CheatEnabled:    cheatEnabled,
		CheatCode:       cheatCode,
		RateLimit:       rateLimit,
		RateLimitWindow: time.Minute,
	}
}
