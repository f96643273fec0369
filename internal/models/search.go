package models

import "time"

// SearchIndexEntry is the search service's denormalized projection of a post.
// It is derived entirely from post lifecycle events and is never written by
// a client directly. PostID is the primary key so replayed post.created
// deliveries upsert instead of duplicating.
type SearchIndexEntry struct {
	PostID    string    `gorm:"type:uuid;primaryKey" json:"post_id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (SearchIndexEntry) TableName() string { return "search_index_entries" }
