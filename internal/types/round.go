package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoundResultActive = "active"
	RoundResultWin    = "win"
	RoundResultLose   = "lose"
)

const (
	MessageRoleUser    = "user"
	MessageRolePersona = "persona"
)

// Quality categories assigned to scored user messages.
const (
	CategoryExcellent = "excellent"
	CategoryGood      = "good"
	CategoryNeutral   = "neutral"
	CategoryPoor      = "poor"
	CategoryBad       = "bad"
)

type Round struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	PersonaID uuid.UUID `gorm:"type:uuid;not null;index;column:persona_id" json:"persona_id"`

	Meter        int    `gorm:"not null;default:20;column:meter" json:"meter"`
	MessageCount int    `gorm:"not null;default:0;column:message_count" json:"message_count"`
	ComboLevel   int    `gorm:"not null;default:0;column:combo_level" json:"combo_level"`
	Result       string `gorm:"not null;default:'active';column:result" json:"result"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	EndedAt   *time.Time     `gorm:"column:ended_at" json:"ended_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Round) TableName() string { return "round" }

func (r *Round) Terminal() bool {
	return r.Result == RoundResultWin || r.Result == RoundResultLose
}

type RoundMessage struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RoundID uuid.UUID `gorm:"type:uuid;not null;index;column:round_id" json:"round_id"`

	Role    string `gorm:"not null;column:role" json:"role"`
	Content string `gorm:"type:text;not null;column:content" json:"content"`

	// Delta is nil for persona turns.
	Delta      *int   `gorm:"column:delta" json:"delta,omitempty"`
	MeterAfter int    `gorm:"not null;column:meter_after" json:"meter_after"`
	Category   string `gorm:"column:category" json:"category,omitempty"`

	InstantFail bool   `gorm:"not null;default:false;column:instant_fail" json:"instant_fail"`
	FailReason  string `gorm:"column:fail_reason" json:"fail_reason,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (RoundMessage) TableName() string { return "round_message" }
