package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/types"
)

type MessageRepo interface {
	Append(ctx context.Context, tx *gorm.DB, msg *types.RoundMessage) (*types.RoundMessage, error)
	ListByRoundID(ctx context.Context, tx *gorm.DB, roundID uuid.UUID) ([]*types.RoundMessage, error)
	// DeltasByRoundID returns the applied deltas for scored user turns, in
	// message order. Persona turns (nil delta) are skipped.
	DeltasByRoundID(ctx context.Context, tx *gorm.DB, roundID uuid.UUID) ([]int, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (mr *messageRepo) Append(ctx context.Context, tx *gorm.DB, msg *types.RoundMessage) (*types.RoundMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if err := transaction.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (mr *messageRepo) ListByRoundID(ctx context.Context, tx *gorm.DB, roundID uuid.UUID) ([]*types.RoundMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	var results []*types.RoundMessage
	if err := transaction.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *messageRepo) DeltasByRoundID(ctx context.Context, tx *gorm.DB, roundID uuid.UUID) ([]int, error) {
	msgs, err := mr.ListByRoundID(ctx, tx, roundID)
	if err != nil {
		return nil, err
	}
	deltas := make([]int, 0, len(msgs))
	for _, m := range msgs {
		if m.Delta != nil {
			deltas = append(deltas, *m.Delta)
		}
	}
	return deltas, nil
}
