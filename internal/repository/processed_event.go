package repository

import (
	"context"

	"chirper/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessedEventRepository records consumed deliveries for deduplication.
type ProcessedEventRepository interface {
	// IsProcessed reports whether the delivery has already been recorded,
	// so a redelivered event can be skipped instead of re-executed.
	IsProcessed(ctx context.Context, consumer, fingerprint string) (bool, error)
	// MarkProcessed records the delivery and reports whether this is the
	// first time it has been seen. A conflicting insert means a concurrent
	// consumer recorded the same event first.
	MarkProcessed(ctx context.Context, consumer, fingerprint string) (bool, error)
}

// processedEventRepository implements ProcessedEventRepository
type processedEventRepository struct {
	db *gorm.DB
}

// NewProcessedEventRepository creates a new processed-event repository
func NewProcessedEventRepository(db *gorm.DB) ProcessedEventRepository {
	return &processedEventRepository{db: db}
}

func (r *processedEventRepository) IsProcessed(ctx context.Context, consumer, fingerprint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProcessedEvent{}).
		Where("consumer = ? AND fingerprint = ?", consumer, fingerprint).
		Count(&count).Error
	return count > 0, err
}

func (r *processedEventRepository) MarkProcessed(ctx context.Context, consumer, fingerprint string) (bool, error) {
	record := &models.ProcessedEvent{Consumer: consumer, Fingerprint: fingerprint}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
