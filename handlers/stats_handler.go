package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/services"
)

type StatsHandler struct {
	Service *services.StatsService
}

func NewStatsHandler(service *services.StatsService) *StatsHandler {
	return &StatsHandler{Service: service}
}

// GetCategoryStats serves per-category price statistics.
func (h *StatsHandler) GetCategoryStats(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	stats, err := h.Service.AggregateBy(c.Context(), services.DimensionCategory, filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// GetCityStats serves per-city price statistics. Listings with no canonical
// city are excluded.
func (h *StatsHandler) GetCityStats(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	stats, err := h.Service.AggregateBy(c.Context(), services.DimensionCity, filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// GetTrends serves a fixed-length daily price trend for a category.
func (h *StatsHandler) GetTrends(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	category := models.Category(c.Query("category"))
	if category != "" && !category.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "unknown category: " + string(category),
		})
	}

	points, err := h.Service.Trend(c.Context(), category, days)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    points,
	})
}
