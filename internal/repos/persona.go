package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/types"
)

type PersonaRepo interface {
	Create(ctx context.Context, tx *gorm.DB, persona *types.Persona) (*types.Persona, error)
	GetByID(ctx context.Context, tx *gorm.DB, personaID uuid.UUID) (*types.Persona, error)
	// PickReusable returns a random reusable pool entry, or nil when the pool
	// is empty.
	PickReusable(ctx context.Context, tx *gorm.DB) (*types.Persona, error)
	UpdateAvatarFields(ctx context.Context, tx *gorm.DB, personaID uuid.UUID, bucketKey, avatarURL string) error
	UpdatePortraitFields(ctx context.Context, tx *gorm.DB, personaID uuid.UUID, bucketKey, portraitURL string) error
	MarkNotReusable(ctx context.Context, tx *gorm.DB, personaID uuid.UUID) error
}

type personaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	return &personaRepo{db: db, log: baseLog.With("repo", "PersonaRepo")}
}

func (pr *personaRepo) Create(ctx context.Context, tx *gorm.DB, persona *types.Persona) (*types.Persona, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Create(persona).Error; err != nil {
		return nil, err
	}
	return persona, nil
}

func (pr *personaRepo) GetByID(ctx context.Context, tx *gorm.DB, personaID uuid.UUID) (*types.Persona, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var persona types.Persona
	if err := transaction.WithContext(ctx).
		Where("id = ?", personaID).
		First(&persona).Error; err != nil {
		return nil, err
	}
	return &persona, nil
}

func (pr *personaRepo) PickReusable(ctx context.Context, tx *gorm.DB) (*types.Persona, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var personas []*types.Persona
	if err := transaction.WithContext(ctx).
		Where("reusable = ?", true).
		Order("RANDOM()").
		Limit(1).
		Find(&personas).Error; err != nil {
		return nil, err
	}
	if len(personas) == 0 {
		return nil, nil
	}
	return personas[0], nil
}

func (pr *personaRepo) UpdateAvatarFields(ctx context.Context, tx *gorm.DB, personaID uuid.UUID, bucketKey, avatarURL string) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Persona{}).
		Where("id = ?", personaID).
		Updates(map[string]any{
			"avatar_bucket_key": bucketKey,
			"avatar_url":        avatarURL,
		}).Error
}

func (pr *personaRepo) UpdatePortraitFields(ctx context.Context, tx *gorm.DB, personaID uuid.UUID, bucketKey, portraitURL string) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Persona{}).
		Where("id = ?", personaID).
		Updates(map[string]any{
			"portrait_bucket_key": bucketKey,
			"portrait_url":        portraitURL,
		}).Error
}

func (pr *personaRepo) MarkNotReusable(ctx context.Context, tx *gorm.DB, personaID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Persona{}).
		Where("id = ?", personaID).
		Update("reusable", false).Error
}
