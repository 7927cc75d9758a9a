package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Persona struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string         `gorm:"not null;column:name" json:"name"`
	Age         int            `gorm:"column:age" json:"age"`
	Bio         string         `gorm:"type:text;column:bio" json:"bio"`
	StyleTraits datatypes.JSON `gorm:"column:style_traits" json:"style_traits"`

	// Placeholder card rendered at creation; portrait is filled in by the
	// first successful reward image for this persona.
	AvatarBucketKey   string `gorm:"column:avatar_bucket_key" json:"avatar_bucket_key"`
	AvatarURL         string `gorm:"column:avatar_url" json:"avatar_url"`
	PortraitBucketKey string `gorm:"column:portrait_bucket_key" json:"portrait_bucket_key"`
	PortraitURL       string `gorm:"column:portrait_url" json:"portrait_url"`

	// Reusable pool entries can be served to new rounds. Personas whose
	// descriptions reliably trip provider safety filters get evicted.
	Reusable bool `gorm:"not null;default:true;column:reusable" json:"reusable"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Persona) TableName() string { return "persona" }
