package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"chirper/internal/events"
	"chirper/internal/models"
	"chirper/internal/observability"
	"chirper/internal/repository"
	"chirper/internal/storage"
)

// mediaDeleteConsumer names the media service's post.deleted consumer in
// the processed-event dedup table.
const mediaDeleteConsumer = "media.post.deleted"

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"video/mp4":  true,
}

// MediaService owns media uploads and the cascading cleanup driven by
// post.deleted events.
type MediaService struct {
	mediaRepo     repository.MediaRepository
	processedRepo repository.ProcessedEventRepository
	store         storage.ObjectStorage
}

type UploadMediaInput struct {
	UserID       string
	OriginalName string
	MimeType     string
	File         io.Reader
}

func NewMediaService(
	mediaRepo repository.MediaRepository,
	processedRepo repository.ProcessedEventRepository,
	store storage.ObjectStorage,
) *MediaService {
	return &MediaService{
		mediaRepo:     mediaRepo,
		processedRepo: processedRepo,
		store:         store,
	}
}

// RegisterConsumers binds the cascade-delete handler. Must be called
// before the service accepts traffic.
func (s *MediaService) RegisterConsumers(ctx context.Context, bus events.Bus) error {
	return bus.Subscribe(ctx, events.RouteKeyPostDeleted, s.HandlePostDeleted)
}

// Upload stores the blob in the external object store and persists the
// media record referencing it.
func (s *MediaService) Upload(ctx context.Context, in UploadMediaInput) (*models.Media, error) {
	if in.File == nil {
		return nil, models.NewValidationError("No file found. Please try adding a file and try again")
	}
	if in.OriginalName == "" {
		return nil, models.NewValidationError("File name is required")
	}
	if !allowedMimeTypes[in.MimeType] {
		return nil, models.NewValidationError("Unsupported media type")
	}

	result, err := s.store.Upload(ctx, in.OriginalName, in.File)
	if err != nil {
		return nil, models.NewStorageError("Error uploading media", err)
	}

	media := &models.Media{
		ObjectID:     result.ObjectID,
		OriginalName: in.OriginalName,
		MimeType:     in.MimeType,
		URL:          result.URL,
		UserID:       in.UserID,
	}
	if err := s.mediaRepo.Create(ctx, media); err != nil {
		return nil, models.NewStorageError("Error saving media record", err)
	}
	return media, nil
}

// ListByUser returns the user's media records, newest first.
func (s *MediaService) ListByUser(ctx context.Context, userID string) ([]*models.Media, error) {
	media, err := s.mediaRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, models.NewStorageError("Error fetching media", err)
	}
	return media, nil
}

// HandlePostDeleted cascades a post deletion to its media: for each media
// ID in the event, the blob is removed from object storage and the record
// deleted. A delivery whose fingerprint is already recorded is skipped;
// blob and record deletes are no-ops when already gone, so a redelivery
// after partial completion finishes the remainder without erroring.
func (s *MediaService) HandlePostDeleted(ctx context.Context, body []byte) error {
	var event events.PostDeleted
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}
	if len(event.MediaIDs) == 0 {
		return nil
	}

	done, err := s.processedRepo.IsProcessed(ctx, mediaDeleteConsumer, fingerprint(body))
	if err != nil {
		return err
	}
	if done {
		observability.LogEventConsumed(ctx, events.RouteKeyPostDeleted, map[string]interface{}{
			"post_id":   event.PostID,
			"duplicate": true,
		})
		return nil
	}

	media, err := s.mediaRepo.GetByIDs(ctx, event.MediaIDs)
	if err != nil {
		return err
	}
	for _, m := range media {
		if err := s.store.Delete(ctx, m.ObjectID); err != nil {
			return err
		}
		if err := s.mediaRepo.Delete(ctx, m.ID); err != nil {
			return err
		}
	}

	// Recorded only after every delete succeeded: a failure part-way
	// leaves the fingerprint unmarked so redelivery re-runs the remaining
	// idempotent deletes instead of being skipped.
	first, err := s.processedRepo.MarkProcessed(ctx, mediaDeleteConsumer, fingerprint(body))
	if err != nil {
		return err
	}

	observability.LogEventConsumed(ctx, events.RouteKeyPostDeleted, map[string]interface{}{
		"post_id":     event.PostID,
		"media_count": len(media),
		"duplicate":   !first,
	})
	return nil
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
