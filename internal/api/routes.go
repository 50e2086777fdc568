package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/factoryop/platform/internal/api/handlers"
	"github.com/factoryop/platform/internal/api/middleware"
)

// SetupRoutes configures the thin HTTP surface the core owns (spec.md
// §4.8): creating analytics jobs and reports, polling their status,
// cancelling them while pending/failed, and downloading a completed
// report's artifact. Every other handler is enqueue-and-return; all state
// transitions belong to the dedicated workers.
func SetupRoutes(app *fiber.App) {
	app.Use(middleware.Recovery())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	api := app.Group("/api/v1")

	healthHandler := handlers.NewHealthHandler()
	api.Get("/health", healthHandler.Health)
	api.Get("/version", healthHandler.VersionInfo)

	analyticsJobHandler := handlers.NewAnalyticsJobHandler()
	api.Post("/tenants/:slug/analytics-jobs", analyticsJobHandler.Create)
	api.Get("/analytics-jobs/:id", analyticsJobHandler.GetByID)
	api.Delete("/analytics-jobs/:id", analyticsJobHandler.Delete)

	reportHandler := handlers.NewReportHandler()
	api.Post("/tenants/:slug/reports", reportHandler.Create)
	api.Get("/reports/:id", reportHandler.GetByID)
	api.Delete("/reports/:id", reportHandler.Delete)
	api.Get("/reports/:id/download", reportHandler.Download)
}
