// Package config loads environment variables and provides a typed Config used
// across the bot. A .env file is honored when present so the binary can run
// locally with minimal setup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the bot.
type Config struct {
	DiscordToken string
	DatabaseDSN  string

	// GuildID scopes slash-command registration to a single guild when set.
	// Empty registers the commands globally.
	GuildID string

	// AFKChannelID is the voice channel whose presence is not tracked.
	// Zero disables AFK exclusion.
	AFKChannelID int64

	// Location is the timezone used for hour/weekday bucketing and for
	// rendering session timestamps.
	Location *time.Location

	// MetricsAddr is the listen address of the metrics/health HTTP server.
	// Empty disables the server.
	MetricsAddr string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// .env file is optional, continue with environment variables
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		DatabaseDSN:  os.Getenv("DATABASE_DSN"),
		GuildID:      os.Getenv("GUILD_ID"),
	}

	if cfg.DiscordToken == "" {
		return nil, &ConfigError{Field: "DISCORD_TOKEN", Message: "DISCORD_TOKEN is required"}
	}
	if cfg.DatabaseDSN == "" {
		return nil, &ConfigError{Field: "DATABASE_DSN", Message: "DATABASE_DSN is required"}
	}

	if v := os.Getenv("AFK_CHANNEL_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &ConfigError{Field: "AFK_CHANNEL_ID", Message: fmt.Sprintf("AFK_CHANNEL_ID must be a channel id: %v", err)}
		}
		cfg.AFKChannelID = id
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "Europe/Stockholm"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, &ConfigError{Field: "TIMEZONE", Message: fmt.Sprintf("unknown TIMEZONE %q: %v", tzName, err)}
	}
	cfg.Location = loc

	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	} else {
		cfg.MetricsAddr = ":8080"
	}

	return cfg, nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
