package app

import (
	"github.com/rizzlab/rizzlab-backend/internal/handlers"
	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

type Handlers struct {
	Round    *handlers.RoundHandler
	Reward   *handlers.RewardHandler
	Progress *handlers.ProgressHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Round:    handlers.NewRoundHandler(log, services.Scoring),
		Reward:   handlers.NewRewardHandler(log, services.Reward, services.RewardStatus),
		Progress: handlers.NewProgressHandler(log, services.Progress),
	}
}
