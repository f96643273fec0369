package repository

import (
	"context"

	"chirper/internal/models"

	"gorm.io/gorm"
)

// MediaRepository defines the interface for media record operations
type MediaRepository interface {
	Create(ctx context.Context, media *models.Media) error
	GetByIDs(ctx context.Context, ids []string) ([]*models.Media, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.Media, error)
	// Delete removes the record if it exists; deleting an absent record
	// is not an error.
	Delete(ctx context.Context, id string) error
}

// mediaRepository implements MediaRepository
type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, media *models.Media) error {
	return r.db.WithContext(ctx).Create(media).Error
}

func (r *mediaRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Media, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var media []*models.Media
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&media).Error
	if err != nil {
		return nil, err
	}
	return media, nil
}

func (r *mediaRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Media, error) {
	var media []*models.Media
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&media).Error
	if err != nil {
		return nil, err
	}
	return media, nil
}

func (r *mediaRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Media{}).Error
}
