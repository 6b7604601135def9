package server

import (
	"estatecrawler/internal/core/crawl"
	"estatecrawler/internal/core/export"
	"estatecrawler/internal/core/job"
	"estatecrawler/internal/core/stats"
	"estatecrawler/internal/health"
	"estatecrawler/internal/platform/redis"
	tasks "estatecrawler/internal/platform/tasks"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Job    *job.Service
	Crawl  *crawl.Service
	Export *export.Service
	Tasks  *tasks.Client
	Redis  *redis.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	healthHandler := health.NewHealthHandler(d.Redis)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	crawlHandler := crawl.NewHandler(d.Job, d.Crawl)
	api.Post("/crawls", crawlHandler.HandleCreate)
	api.Get("/crawls/:jobId", crawlHandler.HandleGet)
	api.Delete("/crawls/:jobId", crawlHandler.HandleCancel)

	exportHandler := export.NewHandler(d.Job, d.Export)
	api.Get("/crawls/:jobId/export", exportHandler.HandleExport)

	statsHandler := stats.NewHandler(d.Job)
	api.Get("/crawls/:jobId/stats", statsHandler.HandleStats)

	return healthHandler
}
