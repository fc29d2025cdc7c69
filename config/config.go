package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort        string
	DatabaseURL       string
	AdminToken        string
	LogLevel          string
	LogFormat         string
	ScrapeIntervalMin string
	StaleAfterDays    string
	PriceCeiling      string
}

// ScrapeSourceConfig holds per-source scraper configuration
type ScrapeSourceConfig struct {
	Enabled         bool          `json:"enabled"`
	MaxPages        int           `json:"max_pages"`
	PolitenessDelay time.Duration `json:"politeness_delay"`
}

// DefaultScrapeSourceConfig returns default scraper configuration for politeness
func DefaultScrapeSourceConfig() *ScrapeSourceConfig {
	return &ScrapeSourceConfig{
		Enabled:         true,
		MaxPages:        5,
		PolitenessDelay: 1 * time.Second, // delay between page fetches
	}
}

// GetScrapeInterval returns the scrape job interval from environment or default
func (c *Config) GetScrapeInterval() time.Duration {
	if c.ScrapeIntervalMin == "" {
		return 30 * time.Minute
	}

	minutes, err := strconv.Atoi(c.ScrapeIntervalMin)
	if err != nil || minutes <= 0 {
		logrus.Warnf("Invalid SCRAPE_INTERVAL_MINUTES value: %s, using default 30 minutes", c.ScrapeIntervalMin)
		return 30 * time.Minute
	}

	return time.Duration(minutes) * time.Minute
}

// GetStaleAfter returns how long a listing may go unseen before the
// retention job marks it inactive
func (c *Config) GetStaleAfter() time.Duration {
	if c.StaleAfterDays == "" {
		return 14 * 24 * time.Hour
	}

	days, err := strconv.Atoi(c.StaleAfterDays)
	if err != nil || days <= 0 {
		logrus.Warnf("Invalid STALE_AFTER_DAYS value: %s, using default 14 days", c.StaleAfterDays)
		return 14 * 24 * time.Hour
	}

	return time.Duration(days) * 24 * time.Hour
}

// GetPriceCeiling returns the maximum plausible asking price in shekels.
// Prices above it are treated as data-entry noise and rejected.
func (c *Config) GetPriceCeiling() float64 {
	if c.PriceCeiling == "" {
		return 250000
	}

	ceiling, err := strconv.ParseFloat(c.PriceCeiling, 64)
	if err != nil || ceiling <= 0 {
		logrus.Warnf("Invalid PRICE_CEILING value: %s, using default 250000", c.PriceCeiling)
		return 250000
	}

	return ceiling
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		AdminToken:        getEnv("ADMIN_TOKEN", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		ScrapeIntervalMin: getEnv("SCRAPE_INTERVAL_MINUTES", "30"),
		StaleAfterDays:    getEnv("STALE_AFTER_DAYS", "14"),
		PriceCeiling:      getEnv("PRICE_CEILING", "250000"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
