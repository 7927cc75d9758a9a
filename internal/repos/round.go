package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/types"
)

type RoundRepo interface {
	Create(ctx context.Context, tx *gorm.DB, round *types.Round) (*types.Round, error)
	GetByID(ctx context.Context, tx *gorm.DB, roundID uuid.UUID) (*types.Round, error)
	UpdateScoringState(ctx context.Context, tx *gorm.DB, roundID uuid.UUID, meter, messageCount, comboLevel int) error
	// Close marks a round terminal. It only touches rounds still active, and
	// reports whether this call was the one that closed it.
	Close(ctx context.Context, tx *gorm.DB, roundID uuid.UUID, result string, meter int) (bool, error)
}

type roundRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoundRepo(db *gorm.DB, baseLog *logger.Logger) RoundRepo {
	return &roundRepo{db: db, log: baseLog.With("repo", "RoundRepo")}
}

func (rr *roundRepo) Create(ctx context.Context, tx *gorm.DB, round *types.Round) (*types.Round, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Create(round).Error; err != nil {
		return nil, err
	}
	return round, nil
}

func (rr *roundRepo) GetByID(ctx context.Context, tx *gorm.DB, roundID uuid.UUID) (*types.Round, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var round types.Round
	if err := transaction.WithContext(ctx).
		Where("id = ?", roundID).
		First(&round).Error; err != nil {
		return nil, err
	}
	return &round, nil
}

func (rr *roundRepo) UpdateScoringState(ctx context.Context, tx *gorm.DB, roundID uuid.UUID, meter, messageCount, comboLevel int) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Round{}).
		Where("id = ? AND result = ?", roundID, types.RoundResultActive).
		Updates(map[string]any{
			"meter":         meter,
			"message_count": messageCount,
			"combo_level":   comboLevel,
		}).Error
}

func (rr *roundRepo) Close(ctx context.Context, tx *gorm.DB, roundID uuid.UUID, result string, meter int) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	now := time.Now().UTC()
	res := transaction.WithContext(ctx).
		Model(&types.Round{}).
		Where("id = ? AND result = ?", roundID, types.RoundResultActive).
		Updates(map[string]any{
			"result":   result,
			"meter":    meter,
			"ended_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
