package repository

import (
	"context"

	"chirper/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchRepository defines the interface for search index operations
type SearchRepository interface {
	// Upsert inserts or overwrites the entry keyed by post ID, so a
	// redelivered post.created event cannot produce a duplicate.
	Upsert(ctx context.Context, entry *models.SearchIndexEntry) error
	// DeleteByPostID removes the entry if it exists; deleting an absent
	// entry is not an error.
	DeleteByPostID(ctx context.Context, postID string) error
	Search(ctx context.Context, query string, limit int) ([]*models.SearchIndexEntry, error)
}

// searchRepository implements SearchRepository
type searchRepository struct {
	db *gorm.DB
}

// NewSearchRepository creates a new search index repository
func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func (r *searchRepository) Upsert(ctx context.Context, entry *models.SearchIndexEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "content", "created_at", "updated_at"}),
		}).
		Create(entry).Error
}

func (r *searchRepository) DeleteByPostID(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Delete(&models.SearchIndexEntry{}).Error
}

func (r *searchRepository) Search(ctx context.Context, query string, limit int) ([]*models.SearchIndexEntry, error) {
	// Order must go through Clauses: gorm's Order only accepts strings and
	// clause.OrderBy values, and silently ignores a bare clause.Expr.
	rank := clause.OrderBy{Expression: clause.Expr{
		SQL:  "ts_rank(to_tsvector('english', content), plainto_tsquery('english', ?)) DESC",
		Vars: []interface{}{query},
	}}

	var entries []*models.SearchIndexEntry
	err := r.db.WithContext(ctx).
		Where("to_tsvector('english', content) @@ plainto_tsquery('english', ?)", query).
		Clauses(rank).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
