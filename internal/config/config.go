package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Store settings
	StoreDriver string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresDSN string

	// Source settings
	SourcesPath string

	// Pipeline settings
	MaxURLsPerRun     int  // total URLs processed per run, bounds cost
	EnrichSliceLen    int  // leading slice of full text fed to enrichment
	ReEnrichExisting  bool // re-extract and re-enrich articles that already have content
	KeepUnmatchedURLs bool // sitemap URL classifier: keep URLs matching no indicator at all

	// Fetch settings
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	UserAgent      string

	// Index API settings
	GDELTBaseURL string

	// App settings
	Debug       bool
	RunSchedule string // cron expression; empty = single pass
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		StoreDriver:    "sqlite",
		SQLitePath:     "newsriver.db",
		SourcesPath:    "configs/sources.yaml",
		MaxURLsPerRun:  100,
		EnrichSliceLen: 2000,
		RequestTimeout: 30 * time.Second,
		RetryAttempts:  2,
		RetryDelay:     2 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		GDELTBaseURL:   "https://api.gdeltproject.org/api/v2/doc/doc",
	}

	cfg.StoreDriver = getEnvOrDefault("STORE_DRIVER", cfg.StoreDriver)
	cfg.SQLitePath = getEnvOrDefault("SQLITE_PATH", cfg.SQLitePath)
	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	cfg.SourcesPath = getEnvOrDefault("SOURCES_PATH", cfg.SourcesPath)
	cfg.UserAgent = getEnvOrDefault("USER_AGENT", cfg.UserAgent)
	cfg.GDELTBaseURL = getEnvOrDefault("GDELT_BASE_URL", cfg.GDELTBaseURL)
	cfg.RunSchedule = os.Getenv("RUN_SCHEDULE")

	cfg.MaxURLsPerRun = getEnvIntOrDefault("MAX_URLS_PER_RUN", cfg.MaxURLsPerRun)
	cfg.EnrichSliceLen = getEnvIntOrDefault("ENRICH_SLICE_LEN", cfg.EnrichSliceLen)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RequestTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("RETRY_DELAY_SEC"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RetryDelay = time.Duration(val) * time.Second
		}
	}

	if os.Getenv("RE_ENRICH_EXISTING") == "true" {
		cfg.ReEnrichExisting = true
	}
	if os.Getenv("KEEP_UNMATCHED_URLS") == "true" {
		cfg.KeepUnmatchedURLs = true
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.StoreDriver != "sqlite" && c.StoreDriver != "postgres" {
		return fmt.Errorf("STORE_DRIVER must be 'sqlite' or 'postgres'")
	}
	if c.StoreDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=postgres")
	}
	if c.MaxURLsPerRun <= 0 {
		return fmt.Errorf("MAX_URLS_PER_RUN must be positive")
	}
	return nil
}
