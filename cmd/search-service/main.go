// Command main is the entry point for the search service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chirper/internal/config"
	"chirper/internal/database"
	"chirper/internal/events"
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

	// The search index is built entirely from bus events; the service is
	// non-functional without the broker, so a connect failure is fatal.
	bus := events.NewAMQPBus(cfg.RabbitMQURL)
	if err := bus.Connect(context.Background()); err != nil {
		log.Fatalf("Failed to connect to message broker: %v", err)
	}

	srv := server.NewSearchServer(cfg, db)

	// Consumers must be bound before traffic is accepted; events published
	// before the binding exists are never replayed.
	if err := srv.RegisterConsumers(context.Background(), bus); err != nil {
		log.Fatalf("Failed to register event consumers: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName: "Search Service",
	})

	server.SetupMiddleware(app, cfg, "search-service")
	srv.SetupRoutes(app)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down search service...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := bus.Close(); err != nil {
			log.Printf("Bus shutdown error: %v", err)
		}
	}()

	log.Printf("Search service starting on port %s...", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
