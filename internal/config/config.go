package config

import (
	"fmt"
	"time"

	_ "time/tzdata" // exchange time zone on hosts without a zoneinfo database

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	Log        LogConfig
	Prices     PricesConfig
	Yahoo      YahooConfig
	Ingestion  IngestionConfig
	Internal   InternalConfig
	Benchmarks []string `env:"DEFAULT_BENCHMARKS" envDefault:"MASI" envSeparator:","`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string `env:"SERVER_PORT" envDefault:"5001"`
	Host string `env:"SERVER_HOST" envDefault:"localhost"`
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string `env:"DB_PATH" envDefault:"./data/portfolio_nav.db"`
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000,http://localhost" envSeparator:","`
}

// LogConfig selects the zap logger. Format is "json" or "console".
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// PricesConfig bounds how long a request may wait on stored price data.
type PricesConfig struct {
	FetchTimeout time.Duration `env:"PRICE_FETCH_TIMEOUT" envDefault:"5s"`
}

// YahooConfig configures the historical price backfill source.
type YahooConfig struct {
	BaseURL string        `env:"YAHOO_BASE_URL" envDefault:"https://query1.finance.yahoo.com"`
	Timeout time.Duration `env:"YAHOO_TIMEOUT" envDefault:"10s"`
}

// IngestionConfig configures the scheduled end-of-day quote scrape.
type IngestionConfig struct {
	Enabled     bool          `env:"INGEST_ENABLED" envDefault:"true"`
	Cron        string        `env:"INGEST_CRON" envDefault:"30 21 * * 1-5"`
	Timezone    string        `env:"INGEST_TIMEZONE" envDefault:"Africa/Casablanca"`
	MarketURL   string        `env:"CSE_MARKET_URL" envDefault:"https://www.casablanca-bourse.com/fr/live-market/marche-actions-groupement"`
	Timeout     time.Duration `env:"CSE_TIMEOUT" envDefault:"30s"`
	Concurrency int           `env:"BACKFILL_CONCURRENCY" envDefault:"4"`
}

// Location resolves Timezone.
func (c IngestionConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// InternalConfig guards the ingestion endpoints. An empty APIKey disables them.
type InternalConfig struct {
	APIKey       string        `env:"INTERNAL_API_KEY"`
	TimeTokenTTL time.Duration `env:"TIME_TOKEN_TTL" envDefault:"5m"`
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.Ingestion.Concurrency < 1 {
		return nil, fmt.Errorf("BACKFILL_CONCURRENCY must be at least 1, got %d", cfg.Ingestion.Concurrency)
	}
	if cfg.Prices.FetchTimeout <= 0 {
		return nil, fmt.Errorf("PRICE_FETCH_TIMEOUT must be positive, got %s", cfg.Prices.FetchTimeout)
	}

	if _, err := cfg.Ingestion.Location(); err != nil {
		return nil, fmt.Errorf("invalid INGEST_TIMEZONE %q: %w", cfg.Ingestion.Timezone, err)
	}

	// Combine host and port
	cfg.Server.Addr = fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	return cfg, nil
}
