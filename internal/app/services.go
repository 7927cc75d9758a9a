package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/safety"
	"github.com/rizzlab/rizzlab-backend/internal/services"
)

type Services struct {
	Gate      *safety.Gate
	Evaluator services.QualityEvaluator

	Persona  services.PersonaService
	Progress services.ProgressService

	RewardStatus *services.RewardStatusTracker
	Reward       services.RewardService
	Scoring      services.ScoringService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	gate := safety.NewGate(log, clients.OpenAI)
	evaluator := services.NewQualityEvaluator(log, clients.OpenAI)

	personaService, err := services.NewPersonaService(db, log, reposet.Persona, clients.Bucket, clients.RewardCache)
	if err != nil {
		return Services{}, fmt.Errorf("init persona service: %w", err)
	}

	progressService := services.NewProgressService(db, log, reposet.Progress, reposet.Message)

	rewardStatus := services.NewRewardStatusTracker(log)
	rewardService := services.NewRewardService(db, log, clients.OpenAI, clients.Bucket, clients.RewardCache, rewardStatus, personaService, reposet.Round, reposet.Reward)

	scoringService := services.NewScoringService(
		db,
		log,
		services.ScoringConfig{CheatEnabled: cfg.CheatEnabled, CheatCode: cfg.CheatCode},
		gate,
		reposet.Round,
		reposet.Message,
		personaService,
		evaluator,
		clients.OpenAI,
		progressService,
		rewardService,
	)

	return Services{
		Gate:         gate,
		Evaluator:    evaluator,
		Persona:      personaService,
		Progress:     progressService,
		RewardStatus: rewardStatus,
		Reward:       rewardService,
		Scoring:      scoringService,
	}, nil
}
