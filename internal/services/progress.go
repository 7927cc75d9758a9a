package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rizzlab/rizzlab-backend/internal/game"
	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/repos"
	"github.com/rizzlab/rizzlab-backend/internal/types"
)

type ProgressService interface {
	GetProgress(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.PlayerProgress, error)
	// ApplyRoundResult settles a finished round into the per-user aggregate:
	// win/loss counters, the win streak, and the XP earned by the round's
	// messages. Called exactly once per round, on the terminal transition.
	ApplyRoundResult(ctx context.Context, tx *gorm.DB, userID, roundID uuid.UUID, won bool) (*types.PlayerProgress, game.XPBreakdown, error)
	// ComputeRoundXP is the pure caller-facing calculator; it touches no state.
	ComputeRoundXP(deltas []int, won bool, streak, level int) game.XPBreakdown
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	progressRepo repos.ProgressRepo
	messageRepo  repos.MessageRepo
}

func NewProgressService(db *gorm.DB, log *logger.Logger, progressRepo repos.ProgressRepo, messageRepo repos.MessageRepo) ProgressService {
	return &progressService{
		db:           db,
		log:          log.With("service", "ProgressService"),
		progressRepo: progressRepo,
		messageRepo:  messageRepo,
	}
}

func (s *progressService) GetProgress(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.PlayerProgress, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user id")
	}
	return s.progressRepo.GetOrCreate(ctx, tx, userID)
}

func (s *progressService) ApplyRoundResult(ctx context.Context, tx *gorm.DB, userID, roundID uuid.UUID, won bool) (*types.PlayerProgress, game.XPBreakdown, error) {
	progress, err := s.progressRepo.GetOrCreate(ctx, tx, userID)
	if err != nil {
		return nil, game.XPBreakdown{}, fmt.Errorf("load progress: %w", err)
	}

	deltas, err := s.messageRepo.DeltasByRoundID(ctx, tx, roundID)
	if err != nil {
		return nil, game.XPBreakdown{}, fmt.Errorf("load round deltas: %w", err)
	}

	if won {
		progress.Wins++
		progress.CurrentStreak++
		if progress.CurrentStreak > progress.BestStreak {
			progress.BestStreak = progress.CurrentStreak
		}
	} else {
		progress.Losses++
		progress.CurrentStreak = 0
	}

	// The streak multiplier uses the streak including this round's outcome,
	// so the first win of a run already pays 1.1x.
	breakdown := game.RoundXP(deltas, won, progress.CurrentStreak, progress.Level)
	progress.TotalXP += breakdown.Total
	progress.Level = game.LevelForXP(progress.TotalXP)

	if err := s.progressRepo.Save(ctx, tx, progress); err != nil {
		return nil, game.XPBreakdown{}, fmt.Errorf("save progress: %w", err)
	}

	s.log.Info("round settled into progress",
		"user_id", userID,
		"round_id", roundID,
		"won", won,
		"xp_total", breakdown.Total,
		"level", progress.Level,
		"streak", progress.CurrentStreak,
	)
	return progress, breakdown, nil
}

func (s *progressService) ComputeRoundXP(deltas []int, won bool, streak, level int) game.XPBreakdown {
	return game.RoundXP(deltas, won, streak, level)
}
