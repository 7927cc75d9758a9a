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

type ProgressRepo interface {
	GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.PlayerProgress, error)
	// Save persists the full aggregate after the service recomputed it.
	Save(ctx context.Context, tx *gorm.DB, progress *types.PlayerProgress) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return &progressRepo{db: db, log: baseLog.With("repo", "ProgressRepo")}
}

func (pr *progressRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.PlayerProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var progress types.PlayerProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	progress = types.PlayerProgress{UserID: userID, Level: 1}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&progress).Error; err != nil {
		return nil, err
	}
	// Re-read in case a concurrent insert won the conflict.
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (pr *progressRepo) Save(ctx context.Context, tx *gorm.DB, progress *types.PlayerProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).Save(progress).Error
}
