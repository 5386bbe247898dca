package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	DiscordToken string
	OwnerUserID  string

	// Source feed
	FeedURL string

	// Database
	DatabasePath string

	// Polling
	PollingIntervalSeconds int
	EmptyGraceSeconds      int

	// Status message heuristics
	StatusLookback int
	PurgeLookback  int

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken: os.Getenv("DISCORD_BOT_TOKEN"),
		OwnerUserID:  os.Getenv("OWNER_USER_ID"),
		FeedURL:      os.Getenv("FEED_URL"),
		DatabasePath: getEnvOrDefault("DATABASE_PATH", "./data/scanner.db"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.PollingIntervalSeconds, err = getEnvInt("POLLING_INTERVAL_SECONDS", 5); err != nil {
		return nil, err
	}
	if cfg.EmptyGraceSeconds, err = getEnvInt("EMPTY_GRACE_SECONDS", 60); err != nil {
		return nil, err
	}
	if cfg.StatusLookback, err = getEnvInt("STATUS_LOOKBACK", 8); err != nil {
		return nil, err
	}
	if cfg.PurgeLookback, err = getEnvInt("PURGE_LOOKBACK", 256); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
