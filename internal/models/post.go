// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post content length bounds enforced on creation.
const (
	MinContentLen = 3
	MaxContentLen = 6000
)

// Post represents a user post, the source of truth all derived records
// (search index entries, media cascades) converge toward.
type Post struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	MediaIDs  []string  `gorm:"serializer:json" json:"media_ids"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when one has not been provided.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PostPage is a single page of posts with pagination metadata.
type PostPage struct {
	Posts       []*Post `json:"posts"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
	TotalPosts  int64   `json:"totalPosts"`
}
