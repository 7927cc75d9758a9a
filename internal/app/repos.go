package app

import (
	"gorm.io/gorm"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/repos"
)

type Repos struct {
	Round    repos.RoundRepo
	Message  repos.MessageRepo
	Persona  repos.PersonaRepo
	Progress repos.ProgressRepo
	Reward   repos.RewardRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Round:    repos.NewRoundRepo(db, log),
		Message:  repos.NewMessageRepo(db, log),
		Persona:  repos.NewPersonaRepo(db, log),
		Progress: repos.NewProgressRepo(db, log),
		Reward:   repos.NewRewardRepo(db, log),
	}
}
