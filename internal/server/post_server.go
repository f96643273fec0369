package server

import (
	"time"

	"chirper/internal/config"
	"chirper/internal/events"
	"chirper/internal/middleware"
	"chirper/internal/models"
	"chirper/internal/repository"
	"chirper/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PostServer serves the post write path and cached reads.
type PostServer struct {
	config      *config.Config
	redis       *redis.Client
	postService *service.PostService
}

// NewPostServer wires the post service's dependencies.
func NewPostServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, bus events.Bus) *PostServer {
	postRepo := repository.NewPostRepository(db)
	return &PostServer{
		config:      cfg,
		redis:       redisClient,
		postService: service.NewPostService(postRepo, bus),
	}
}

// SetupRoutes registers the post API routes.
func (s *PostServer) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/posts", middleware.AuthRequired)
	api.Post("/", middleware.RateLimit(s.redis, 30, time.Minute, "create_post"), s.CreatePost)
	api.Get("/", s.GetAllPosts)
	api.Get("/:id", s.GetPost)
	api.Delete("/:id", s.DeletePost)
}

// CreatePost handles POST /api/posts
func (s *PostServer) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Content  string   `json:"content"`
		MediaIDs []string `json:"mediaIds"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:   middleware.UserID(c),
		Content:  req.Content,
		MediaIDs: req.MediaIDs,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Post created successfully",
		"post":    post,
	})
}

// GetAllPosts handles GET /api/posts
func (s *PostServer) GetAllPosts(c *fiber.Ctx) error {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	result, err := s.postService.GetAllPosts(c.UserContext(), service.ListPostsInput{
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(result)
}

// GetPost handles GET /api/posts/:id
func (s *PostServer) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// DeletePost handles DELETE /api/posts/:id
func (s *PostServer) DeletePost(c *fiber.Ctx) error {
	err := s.postService.DeletePost(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Post deleted successfully",
	})
}
