package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Media represents an uploaded media asset. The blob itself lives in the
// external object store; ObjectID references it there.
type Media struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	ObjectID     string    `gorm:"not null;index" json:"object_id"`
	OriginalName string    `gorm:"not null" json:"original_name"`
	MimeType     string    `gorm:"not null" json:"mime_type"`
	URL          string    `gorm:"not null" json:"url"`
	UserID       string    `gorm:"type:uuid;not null;index" json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (Media) TableName() string { return "media" }

// BeforeCreate assigns a UUID when one has not been provided.
func (m *Media) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
