package service

import (
	"context"
	"encoding/json"

	"chirper/internal/events"
	"chirper/internal/models"
	"chirper/internal/observability"
	"chirper/internal/repository"
)

// searchResultLimit caps relevance-ranked search results.
const searchResultLimit = 10

// SearchService maintains the search index projection from post lifecycle
// events and serves relevance-ranked queries over it.
type SearchService struct {
	searchRepo repository.SearchRepository
}

func NewSearchService(searchRepo repository.SearchRepository) *SearchService {
	return &SearchService{searchRepo: searchRepo}
}

// RegisterConsumers binds the projection handlers. Must be called before
// the service accepts traffic so no events are missed between startup and
// binding.
func (s *SearchService) RegisterConsumers(ctx context.Context, bus events.Bus) error {
	if err := bus.Subscribe(ctx, events.RouteKeyPostCreated, s.HandlePostCreated); err != nil {
		return err
	}
	return bus.Subscribe(ctx, events.RouteKeyPostDeleted, s.HandlePostDeleted)
}

// HandlePostCreated upserts the index entry keyed by post ID. Delivery is
// at-least-once; the upsert makes a redelivered event converge on the
// same single entry.
func (s *SearchService) HandlePostCreated(ctx context.Context, body []byte) error {
	var event events.PostCreated
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}

	entry := &models.SearchIndexEntry{
		PostID:    event.PostID,
		UserID:    event.UserID,
		Content:   event.Content,
		CreatedAt: event.CreatedAt,
	}
	if err := s.searchRepo.Upsert(ctx, entry); err != nil {
		return err
	}

	observability.LogEventConsumed(ctx, events.RouteKeyPostCreated, map[string]interface{}{
		"post_id": event.PostID,
	})
	return nil
}

// HandlePostDeleted removes the index entry. Deleting an absent entry is
// a no-op, so redelivery is naturally safe.
func (s *SearchService) HandlePostDeleted(ctx context.Context, body []byte) error {
	var event events.PostDeleted
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}

	if err := s.searchRepo.DeleteByPostID(ctx, event.PostID); err != nil {
		return err
	}

	observability.LogEventConsumed(ctx, events.RouteKeyPostDeleted, map[string]interface{}{
		"post_id": event.PostID,
	})
	return nil
}

// Search returns the top matches for the query, ranked by text relevance.
func (s *SearchService) Search(ctx context.Context, query string) ([]*models.SearchIndexEntry, error) {
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	results, err := s.searchRepo.Search(ctx, query, searchResultLimit)
	if err != nil {
		return nil, models.NewStorageError("Error while searching posts", err)
	}
	return results, nil
}
