package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/market-scout/scout-backend/database"
	"github.com/market-scout/scout-backend/jobs"
	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/services"
	"github.com/market-scout/scout-backend/shared"
)

type AdminHandler struct {
	ScrapeJob  *jobs.ScrapeIngestJob
	Pipeline   *services.IngestPipeline
	Normalizer *services.Normalizer
	Stats      *services.StatsService
	AdminToken string
}

func NewAdminHandler(scrapeJob *jobs.ScrapeIngestJob, pipeline *services.IngestPipeline, normalizer *services.Normalizer, stats *services.StatsService, adminToken string) *AdminHandler {
	return &AdminHandler{
		ScrapeJob:  scrapeJob,
		Pipeline:   pipeline,
		Normalizer: normalizer,
		Stats:      stats,
		AdminToken: adminToken,
	}
}

// RequireToken guards admin routes with the configured bearer token.
func (h *AdminHandler) RequireToken(c *fiber.Ctx) error {
	if h.AdminToken == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "Admin endpoints are disabled",
		})
	}
	if c.Get("Authorization") != "Bearer "+h.AdminToken {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized",
		})
	}
	return c.Next()
}

// IngestBatch accepts a JSON array of raw records and runs them through the
// pipeline synchronously, returning the batch report.
func (h *AdminHandler) IngestBatch(c *fiber.Ctx) error {
	var batch []models.RawRecord
	if err := c.BodyParser(&batch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if len(batch) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Batch is empty",
		})
	}

	report := h.Pipeline.Run(c.Context(), batch)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    report,
	})
}

// TriggerScrape runs the full scrape-and-ingest job on demand.
func (h *AdminHandler) TriggerScrape(c *fiber.Ctx) error {
	logrus.Info("Manual scrape triggered via admin endpoint")

	startTime := time.Now()
	h.ScrapeJob.Run()
	duration := time.Since(startTime)

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Scrape and ingest job completed",
		"duration":  duration.String(),
		"timestamp": time.Now(),
	})
}

// GetMetrics exposes per-service metrics snapshots for debugging.
func (h *AdminHandler) GetMetrics(c *fiber.Ctx) error {
	snapshots := map[string]interface{}{
		"normalizer":    h.Normalizer.Metrics().Snapshot(),
		"pipeline":      h.Pipeline.Metrics().Snapshot(),
		"stats_service": h.Stats.Metrics().Snapshot(),
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    snapshots,
	})
}

// HealthCheck reports process and database health.
func HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	var dbError string
	if err := database.HealthCheck(); err != nil {
		status = "degraded"
		dbError = err.Error()
		shared.NewServiceError(shared.ErrorCategoryDatabase, "HEALTH_CHECK_FAILED",
			"database health check failed", "health", "HealthCheck", true, err).LogError()
	}

	stats := database.GetConnectionStats()
	body := fiber.Map{
		"success": status == "ok",
		"status":  status,
		"database": fiber.Map{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		},
		"timestamp": time.Now(),
	}
	if dbError != "" {
		body["error"] = dbError
	}
	if status != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}
