package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"github.com/market-scout/scout-backend/config"
	"github.com/market-scout/scout-backend/database"
	"github.com/market-scout/scout-backend/handlers"
	"github.com/market-scout/scout-backend/jobs"
	"github.com/market-scout/scout-backend/services"
	"github.com/market-scout/scout-backend/shared"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	configureLogging(cfg)
	shared.NewDefaultUnifiedConfiguration().LogConfiguration()

	// Connect to database
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	// Initialize core services
	normalizer := services.NewNormalizer(cfg.GetPriceCeiling())
	store := services.NewPostgresListingStore(database.DB)
	engine := services.NewScoringEngine()
	scoringCfg := services.DefaultScoringConfig()
	statsService := services.NewStatsService(store)
	pipeline := services.NewIngestPipeline(normalizer, store, engine, scoringCfg, 0)

	// Scraper adapters
	scrapeCfg := config.DefaultScrapeSourceConfig()
	scrapers := []services.Scraper{
		services.NewYad2Scraper(scrapeCfg),
		services.NewFacebookScraper(scrapeCfg),
	}

	logrus.WithFields(logrus.Fields{
		"scrape_interval": cfg.GetScrapeInterval().String(),
		"stale_after":     cfg.GetStaleAfter().String(),
		"price_ceiling":   cfg.GetPriceCeiling(),
		"scrapers":        len(scrapers),
	}).Info("Market scout services initialized")

	// Jobs
	scrapeJob := jobs.NewScrapeIngestJob(scrapers, pipeline, store, cfg.GetStaleAfter())
	retentionJob := jobs.NewRetentionJob(store, cfg.GetStaleAfter())

	// Handlers
	listingHandler := handlers.NewListingHandler(store)
	statsHandler := handlers.NewStatsHandler(statsService)
	adminHandler := handlers.NewAdminHandler(scrapeJob, pipeline, normalizer, statsService, cfg.AdminToken)

	// Start background jobs
	go func() {
		// Run immediately on startup
		go scrapeJob.Run()

		scrapeTicker := time.NewTicker(cfg.GetScrapeInterval())
		retentionTicker := time.NewTicker(12 * time.Hour)

		for {
			select {
			case <-scrapeTicker.C:
				scrapeJob.Run()
			case <-retentionTicker.C:
				retentionJob.Run()
			}
		}
	}()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", handlers.HealthCheck)

	// Routes
	api := app.Group("/api/v1")

	// Listing Routes
	api.Get("/listings", listingHandler.GetListings)
	api.Get("/listings/:id", listingHandler.GetListingByID)
	api.Get("/search", listingHandler.SearchListings)

	// Stats Routes
	api.Get("/stats/categories", statsHandler.GetCategoryStats)
	api.Get("/stats/cities", statsHandler.GetCityStats)
	api.Get("/stats/trends", statsHandler.GetTrends)

	// Admin Routes
	admin := api.Group("/admin", adminHandler.RequireToken)
	admin.Post("/ingest", adminHandler.IngestBatch)
	admin.Post("/scrape", adminHandler.TriggerScrape)
	admin.Get("/metrics", adminHandler.GetMetrics)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
