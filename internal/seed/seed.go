// Package seed populates the database with demo data for development.
package seed

import (
	"context"
	"fmt"

	"chirper/internal/models"
	"chirper/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Posts inserts count fake posts authored by a handful of fake users.
// Intended for development environments only.
func Posts(ctx context.Context, db *gorm.DB, count int) error {
	repo := repository.NewPostRepository(db)

	userIDs := make([]string, 5)
	for i := range userIDs {
		userIDs[i] = uuid.NewString()
	}

	for i := 0; i < count; i++ {
		post := &models.Post{
			UserID:  userIDs[gofakeit.Number(0, len(userIDs)-1)],
			Content: gofakeit.Paragraph(1, 3, 12, " "),
		}
		if err := repo.Create(ctx, post); err != nil {
			return fmt.Errorf("seed post %d: %w", i, err)
		}
	}
	return nil
}
