// Command main is the entry point for the post service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chirper/internal/cache"
	"chirper/internal/config"
	"chirper/internal/database"
	"chirper/internal/events"
	"chirper/internal/seed"
	"chirper/internal/server"

	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	cache.InitRedis(cfg.RedisURL)

	bus := events.NewAMQPBus(cfg.RabbitMQURL)
	if err := bus.Connect(context.Background()); err != nil {
		log.Fatalf("Failed to connect to message broker: %v", err)
	}

	if cfg.Env == "development" && os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seed.Posts(context.Background(), db, 25); err != nil {
			log.Printf("Demo data seeding failed: %v", err)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:   "Post Service",
		BodyLimit: 1 * 1024 * 1024,
	})

	server.SetupMiddleware(app, cfg, "post-service")
	srv := server.NewPostServer(cfg, db, cache.GetClient(), bus)
	srv.SetupRoutes(app)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down post service...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := bus.Close(); err != nil {
			log.Printf("Bus shutdown error: %v", err)
		}
	}()

	log.Printf("Post service starting on port %s...", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
