package server

import (
	"context"

	"chirper/internal/config"
	"chirper/internal/events"
	"chirper/internal/middleware"
	"chirper/internal/models"
	"chirper/internal/repository"
	"chirper/internal/service"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SearchServer serves free-text search over the event-driven projection
// of the post store.
type SearchServer struct {
	config        *config.Config
	searchService *service.SearchService
}

// NewSearchServer wires the search service's dependencies.
func NewSearchServer(cfg *config.Config, db *gorm.DB) *SearchServer {
	searchRepo := repository.NewSearchRepository(db)
	return &SearchServer{
		config:        cfg,
		searchService: service.NewSearchService(searchRepo),
	}
}

// RegisterConsumers binds the projection handlers to the bus. Must run
// before the server accepts traffic.
func (s *SearchServer) RegisterConsumers(ctx context.Context, bus events.Bus) error {
	return s.searchService.RegisterConsumers(ctx, bus)
}

// SetupRoutes registers the search API routes.
func (s *SearchServer) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/search", middleware.AuthRequired)
	api.Get("/", s.SearchPosts)
}

// SearchPosts handles GET /api/search?query=...
func (s *SearchServer) SearchPosts(c *fiber.Ctx) error {
	results, err := s.searchService.Search(c.UserContext(), c.Query("query"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"searchResults": results,
	})
}
