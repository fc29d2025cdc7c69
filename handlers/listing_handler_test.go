package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/market-scout/scout-backend/services"
)

func newListingTestApp() *fiber.App {
	app := fiber.New()
	handler := NewListingHandler(services.NewMemoryListingStore())
	app.Get("/api/v1/listings", handler.GetListings)
	return app
}

func TestGetListingsFilterValidation(t *testing.T) {
	app := newListingTestApp()

	cases := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{"no filter", "/api/v1/listings", fiber.StatusOK},
		{"known platform", "/api/v1/listings?platform=yad2", fiber.StatusOK},
		{"unknown platform", "/api/v1/listings?platform=yad", fiber.StatusBadRequest},
		{"unknown category", "/api/v1/listings?category=bikes", fiber.StatusBadRequest},
		{"unknown condition", "/api/v1/listings?condition=mint", fiber.StatusBadRequest},
		{"known filters combined", "/api/v1/listings?platform=facebook&category=gpu&condition=good", fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tc.url, nil))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.wantStatus {
				t.Errorf("GET %s = %d, want %d", tc.url, resp.StatusCode, tc.wantStatus)
			}
		})
	}
}
