package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Reward is generated at most once per won round. RoundID carries the unique
// index the orchestrator upserts against, which is what makes concurrent
// duplicate requests degrade to a single winner.
type Reward struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RoundID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:round_id" json:"round_id"`
	PersonaID uuid.UUID `gorm:"type:uuid;not null;index;column:persona_id" json:"persona_id"`

	Text     string  `gorm:"type:text;not null;column:text" json:"text"`
	VoiceURL *string `gorm:"column:voice_url" json:"voice_url,omitempty"`
	ImageURL *string `gorm:"column:image_url" json:"image_url,omitempty"`

	FromCache bool           `gorm:"not null;default:false;column:from_cache" json:"from_cache"`
	Timing    datatypes.JSON `gorm:"column:timing" json:"timing,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Reward) TableName() string { return "reward" }
