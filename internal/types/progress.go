package types

import (
	"time"

	"github.com/google/uuid"
)

// PlayerProgress is the per-user aggregate mutated only on round completion.
type PlayerProgress struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"user_id"`

	TotalXP int `gorm:"not null;default:0;column:total_xp" json:"total_xp"`
	Level   int `gorm:"not null;default:1;column:level" json:"level"`

	Wins   int `gorm:"not null;default:0;column:wins" json:"wins"`
	Losses int `gorm:"not null;default:0;column:losses" json:"losses"`

	// CurrentStreak counts consecutive wins and resets to 0 on any loss.
	CurrentStreak int `gorm:"not null;default:0;column:current_streak" json:"current_streak"`
	BestStreak    int `gorm:"not null;default:0;column:best_streak" json:"best_streak"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PlayerProgress) TableName() string { return "player_progress" }
