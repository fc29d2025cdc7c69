package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/services"
)

type ListingHandler struct {
	Store services.ListingStore
}

func NewListingHandler(store services.ListingStore) *ListingHandler {
	return &ListingHandler{Store: store}
}

// GetListings serves filtered, paginated listings.
func (h *ListingHandler) GetListings(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	page := models.Page{
		Offset:  c.QueryInt("offset", 0),
		Limit:   c.QueryInt("limit", services.DefaultPageLimit),
		SortKey: c.Query("sort"),
	}

	listings, err := h.Store.Query(c.Context(), filter, page)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    listings,
	})
}

// GetListingByID serves a single listing with its score attached.
func (h *ListingHandler) GetListingByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid listing id",
		})
	}

	listing, err := h.Store.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if listing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Listing not found",
		})
	}

	score, err := h.Store.GetScore(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"listing": listing,
			"score":   score,
		},
	})
}

// SearchListings is the free-text variant of GetListings; q is mandatory.
func (h *ListingHandler) SearchListings(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Query parameter q is required",
		})
	}

	filter, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	filter.SearchText = q

	page := models.Page{
		Offset:  c.QueryInt("offset", 0),
		Limit:   c.QueryInt("limit", services.DefaultPageLimit),
		SortKey: c.Query("sort"),
	}

	listings, err := h.Store.Query(c.Context(), filter, page)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    listings,
	})
}

func parseFilter(c *fiber.Ctx) (models.ListingFilter, error) {
	filter := models.ListingFilter{
		City:       c.Query("city"),
		ActiveOnly: c.QueryBool("active_only", false),
	}

	if category := c.Query("category"); category != "" {
		filter.Category = models.Category(category)
		if !filter.Category.IsValid() {
			return filter, fiber.NewError(fiber.StatusBadRequest, "unknown category: "+category)
		}
	}
	if condition := c.Query("condition"); condition != "" {
		filter.Condition = models.Condition(condition)
		if !filter.Condition.IsValid() {
			return filter, fiber.NewError(fiber.StatusBadRequest, "unknown condition: "+condition)
		}
	}
	if platform := c.Query("platform"); platform != "" {
		filter.Platform = models.Platform(platform)
		if !filter.Platform.IsValid() {
			return filter, fiber.NewError(fiber.StatusBadRequest, "unknown platform: "+platform)
		}
	}
	if minPrice := c.Query("min_price"); minPrice != "" {
		value, err := strconv.ParseFloat(minPrice, 64)
		if err != nil || value < 0 {
			return filter, fiber.NewError(fiber.StatusBadRequest, "invalid min_price")
		}
		filter.MinPrice = value
	}
	if maxPrice := c.Query("max_price"); maxPrice != "" {
		value, err := strconv.ParseFloat(maxPrice, 64)
		if err != nil || value < 0 {
			return filter, fiber.NewError(fiber.StatusBadRequest, "invalid max_price")
		}
		filter.MaxPrice = value
	}
	return filter, nil
}
