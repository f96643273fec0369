package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

// InitMetrics registers prometheus HTTP instrumentation on the app and
// exposes the scrape endpoint at /metrics.
func InitMetrics(app *fiber.App, serviceName string) {
	prom := fiberprometheus.New(serviceName)
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)
}
