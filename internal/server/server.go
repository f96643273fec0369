// Package server contains the HTTP servers and handlers for the post,
// search and media services.
package server

import (
	"strconv"

	"chirper/internal/config"
	"chirper/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// SetupMiddleware configures the middleware stack shared by all services.
func SetupMiddleware(app *fiber.App, cfg *config.Config, serviceName string) {
	middleware.InitMiddleware(cfg)

	// Panic recovery
	app.Use(recover.New())

	// Request ID for correlation
	app.Use(requestid.New())

	// Context middleware to propagate the request ID into handler contexts
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics + /metrics endpoint
	middleware.InitMetrics(app, serviceName)

	// Security headers
	app.Use(helmet.New())

	// Structured logging (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": serviceName})
	})
}

// queryInt parses an integer query parameter with a fallback default.
func queryInt(c *fiber.Ctx, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
