// Package config loads the service configuration from environment
// variables. The environment (development, staging, production) selects
// the base URLs of the external services and the ingestion interval.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// External service base URLs per environment.
const (
	apiBaseURLDevelopment = "http://localhost:3111"
	apiBaseURLStaging     = "https://dav-backend-tfpik.ondigitalocean.app/staging"
	apiBaseURLProduction  = "https://dav-backend-tfpik.ondigitalocean.app"

	websiteBaseURLDevelopment = "http://localhost:3001"
	websiteBaseURLStaging     = "https://storyline-staging-o3oot.ondigitalocean.app"
	websiteBaseURLProduction  = "https://storyline.press"
)

type Config struct {
	Environment string
	Port        int

	DatabaseURL string

	RedisURL string
	// RedisDB is the logical database: 9 in production, 8 otherwise.
	RedisDB int

	// CachingDisabled bypasses the response cache entirely (CACHING=false).
	CachingDisabled bool

	// IngestionInterval is the pause between ingestion cycles.
	// Defaults: production 1h, staging 6h.
	IngestionInterval time.Duration

	// AppID identifies this app at the dav backend.
	AppID int64
	// AdminUserIDs are the users allowed to run administrative mutations.
	AdminUserIDs []int64

	TelegramBotToken string

	SummarizerURL    string
	SummarizerAPIKey string
	SummarizerModel  string
}

// Load reads the configuration from the environment. A .env file is
// honored when present.
func Load() (*Config, error) {
	// Missing .env is fine, the environment may be set by the platform.
	_ = godotenv.Load()

	env := getEnv("ENVIRONMENT", EnvDevelopment)

	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return nil, fmt.Errorf("unknown environment %q", env)
	}

	cfg := &Config{
		Environment:       env,
		Port:              getEnvInt("PORT", 4004),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisDB:           8,
		CachingDisabled:   os.Getenv("CACHING") == "false",
		IngestionInterval: 6 * time.Hour,
		AppID:             int64(getEnvInt("DAV_APP_ID", 1)),
		AdminUserIDs:      getEnvInt64List("ADMIN_USER_IDS", []int64{1}),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		SummarizerURL:     getEnv("SUMMARIZER_URL", "https://api.openai.com"),
		SummarizerAPIKey:  os.Getenv("OPENAI_SECRET_KEY"),
		SummarizerModel:   getEnv("SUMMARIZER_MODEL", "gpt-4o-mini"),
	}

	if env == EnvProduction {
		cfg.RedisDB = 9
		cfg.IngestionInterval = time.Hour
	}

	if interval := os.Getenv("INGESTION_INTERVAL"); interval != "" {
		parsed, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid INGESTION_INTERVAL: %w", err)
		}

		cfg.IngestionInterval = parsed
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// APIBaseURL returns the identity/subscription service base URL for the
// configured environment.
func (c *Config) APIBaseURL() string {
	switch c.Environment {
	case EnvStaging:
		return apiBaseURLStaging
	case EnvProduction:
		return apiBaseURLProduction
	default:
		return apiBaseURLDevelopment
	}
}

// WebsiteBaseURL returns the public website base URL, used to build the
// deep links carried by notifications.
func (c *Config) WebsiteBaseURL() string {
	switch c.Environment {
	case EnvStaging:
		return websiteBaseURLStaging
	case EnvProduction:
		return websiteBaseURLProduction
	default:
		return websiteBaseURLDevelopment
	}
}

// IsAdmin reports whether the user id belongs to an administrator.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}

	return false
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvInt64List(key string, fallback []int64) []int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	var ids []int64

	for _, part := range strings.Split(value, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}

		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return fallback
	}

	return ids
}
