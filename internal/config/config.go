package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// NewsAPI provider
	NewsAPIKey      string        `json:"-"`
	NewsAPIBaseURL  string        `json:"newsapi_base_url"`
	ProviderTimeout time.Duration `json:"provider_timeout"`
	ProviderRetries int           `json:"provider_retries"`

	// Storage
	DBPath        string `json:"db_path"`
	RetentionDays int    `json:"retention_days"`

	// Redis page cache. An empty URL selects the in-memory cache.
	RedisURL    string        `json:"redis_url"`
	RedisPrefix string        `json:"redis_prefix"`
	CacheTTL    time.Duration `json:"cache_ttl"`

	// Background jobs
	RefreshSchedule  string        `json:"refresh_schedule"`
	RefreshCountry   string        `json:"refresh_country"`
	RefreshPageSize  int           `json:"refresh_page_size"`
	EvictionSchedule string        `json:"eviction_schedule"`
	JobTimeout       time.Duration `json:"job_timeout"`

	// CloudFlare R2 archive of evicted articles. Disabled when R2Bucket
	// or the credentials are empty.
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"-"`
	R2SecretKey string `json:"-"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"-"`
	CORSOrigins string `json:"cors_origins"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a Config from the process environment without validating it.
func FromEnv() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		NewsAPIKey:      getEnv("NEWSAPI_KEY", ""),
		NewsAPIBaseURL:  getEnv("NEWSAPI_BASE_URL", "https://newsapi.org/v2"),
		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		ProviderRetries: getEnvAsInt("PROVIDER_RETRIES", 1),

		DBPath:        getEnv("DB_PATH", "./data/news.db"),
		RetentionDays: getEnvAsInt("RETENTION_DAYS", 30),

		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "quickbyte:"),
		CacheTTL:    getEnvAsDuration("CACHE_TTL", 2*time.Minute),

		RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "@every 3h"),
		RefreshCountry:   getEnv("REFRESH_COUNTRY", "us"),
		RefreshPageSize:  getEnvAsInt("REFRESH_PAGE_SIZE", 20),
		EvictionSchedule: getEnv("EVICTION_SCHEDULE", "0 12 * * *"),
		JobTimeout:       getEnvAsDuration("JOB_TIMEOUT", 5*time.Minute),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", ""),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3001"),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.IsProduction() && c.NewsAPIKey == "" {
		errs = append(errs, errors.New("NEWSAPI_KEY is required in production"))
	}
	if c.RetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("RETENTION_DAYS must be positive, got %d", c.RetentionDays))
	}
	if c.RefreshPageSize <= 0 {
		errs = append(errs, fmt.Errorf("REFRESH_PAGE_SIZE must be positive, got %d", c.RefreshPageSize))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT must be positive"))
	}
	if c.ProviderRetries < 0 {
		errs = append(errs, errors.New("PROVIDER_RETRIES must not be negative"))
	}
	if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
		errs = append(errs, fmt.Errorf("REFRESH_SCHEDULE: %w", err))
	}
	if _, err := cron.ParseStandard(c.EvictionSchedule); err != nil {
		errs = append(errs, fmt.Errorf("EVICTION_SCHEDULE: %w", err))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Retention is the age after which articles are evicted.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// ArchiveEnabled reports whether evicted articles are shipped to R2.
func (c *Config) ArchiveEnabled() bool {
	return c.R2Bucket != "" && c.R2AccessKey != "" && c.R2SecretKey != ""
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
