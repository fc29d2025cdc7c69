package shared

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// UnifiedConfiguration holds baseline configuration parameters for the
// entire application
type UnifiedConfiguration struct {
	Scraper  ScraperConfig  `json:"scraper"`
	Database DatabaseConfig `json:"database"`
	Batch    BatchConfig    `json:"batch"`
	Logging  LoggingConfig  `json:"logging"`
}

// ScraperConfig holds scraper adapter configuration
type ScraperConfig struct {
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	MaxRetryAttempts   int           `json:"max_retries"`
	MaxPages           int           `json:"max_pages"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// BatchConfig holds ingestion batch processing configuration
type BatchConfig struct {
	MaxConcurrency int           `json:"max_concurrency"`
	Timeout        time.Duration `json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `json:"level"`
	EnableJSON bool   `json:"enable_json"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Scraper: ScraperConfig{
			HTTPRequestTimeout: 30 * time.Second,
			RequestRateLimit:   1 * time.Second,
			MaxRetryAttempts:   3,
			MaxPages:           5,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Batch: BatchConfig{
			MaxConcurrency: 8,
			Timeout:        10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:      "info",
			EnableJSON: false,
		},
	}
}

// LogConfiguration logs the active configuration at startup
func (c *UnifiedConfiguration) LogConfiguration() {
	encoded, err := json.Marshal(c)
	if err != nil {
		logrus.WithError(err).Warn("Failed to serialize configuration for logging")
		return
	}
	logrus.WithField("configuration", string(encoded)).Info("Unified configuration loaded")
}
