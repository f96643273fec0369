package server

import (
	"context"
	"time"

	"chirper/internal/config"
	"chirper/internal/events"
	"chirper/internal/middleware"
	"chirper/internal/models"
	"chirper/internal/repository"
	"chirper/internal/service"
	"chirper/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// MediaServer serves media uploads and listing; cascade cleanup runs on
// the bus consumer.
type MediaServer struct {
	config       *config.Config
	redis        *redis.Client
	mediaService *service.MediaService
}

// NewMediaServer wires the media service's dependencies.
func NewMediaServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.ObjectStorage) *MediaServer {
	mediaRepo := repository.NewMediaRepository(db)
	processedRepo := repository.NewProcessedEventRepository(db)
	return &MediaServer{
		config:       cfg,
		redis:        redisClient,
		mediaService: service.NewMediaService(mediaRepo, processedRepo, store),
	}
}

// RegisterConsumers binds the cascade-delete handler to the bus. Must run
// before the server accepts traffic.
func (s *MediaServer) RegisterConsumers(ctx context.Context, bus events.Bus) error {
	return s.mediaService.RegisterConsumers(ctx, bus)
}

// SetupRoutes registers the media API routes.
func (s *MediaServer) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/media", middleware.AuthRequired)
	api.Post("/upload", middleware.RateLimit(s.redis, 10, time.Minute, "upload_media"), s.UploadMedia)
	api.Get("/", s.GetAllMedia)
}

// UploadMedia handles POST /api/media/upload (multipart form, field "file")
func (s *MediaServer) UploadMedia(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("No file found. Please try adding a file and try again"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, models.NewStorageError("Error reading uploaded file", err))
	}
	defer file.Close()

	media, err := s.mediaService.Upload(c.UserContext(), service.UploadMediaInput{
		UserID:       middleware.UserID(c),
		OriginalName: fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		File:         file,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Media upload is successful",
		"mediaId": media.ID,
		"url":     media.URL,
	})
}

// GetAllMedia handles GET /api/media
func (s *MediaServer) GetAllMedia(c *fiber.Ctx) error {
	media, err := s.mediaService.ListByUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"media":   media,
	})
}
