package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/types"
)

type RewardRepo interface {
	// Upsert inserts the reward keyed by round id, or returns the existing
	// row when a concurrent request already won the race. The bool reports
	// whether this call inserted.
	Upsert(ctx context.Context, tx *gorm.DB, reward *types.Reward) (*types.Reward, bool, error)
	GetByRoundID(ctx context.Context, tx *gorm.DB, roundID uuid.UUID) (*types.Reward, error)
}

type rewardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRewardRepo(db *gorm.DB, baseLog *logger.Logger) RewardRepo {
	return &rewardRepo{db: db, log: baseLog.With("repo", "RewardRepo")}
}

func (rr *rewardRepo) Upsert(ctx context.Context, tx *gorm.DB, reward *types.Reward) (*types.Reward, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "round_id"}},
			DoNothing: true,
		}).
		Create(reward)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return reward, true, nil
	}

	existing, err := rr.GetByRoundID(ctx, transaction, reward.RoundID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (rr *rewardRepo) GetByRoundID(ctx context.Context, tx *gorm.DB, roundID uuid.UUID) (*types.Reward, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var reward types.Reward
	err := transaction.WithContext(ctx).
		Where("round_id = ?", roundID).
		First(&reward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}
