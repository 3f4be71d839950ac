package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything discobridge reads from the environment.
type Config struct {
	BotToken         string
	DefaultChannelID string // optional fallback for uploads without channel_id
	Port             string
	LogDir           string
	LogLevel         string
	LogMaxSizeMB     int
	LogMaxBackups    int
	LogMaxAgeDays    int
}

// Load reads configuration from the environment, with .env support.
// The bot token is mandatory; DISCORD_CHANNEL_ID, when set, must be a
// positive integer (it is a Discord snowflake).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BotToken:         os.Getenv("DISCORD_BOT_TOKEN"),
		DefaultChannelID: os.Getenv("DISCORD_CHANNEL_ID"),
		Port:             getEnv("PORT", "8080"),
		LogDir:           os.Getenv("LOG_DIR"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogMaxSizeMB:     getEnvInt("LOG_MAX_SIZE_MB", 1),
		LogMaxBackups:    getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays:    getEnvInt("LOG_MAX_AGE_DAYS", 7),
	}

	if cfg.BotToken == "" {
		return Config{}, fmt.Errorf("DISCORD_BOT_TOKEN must be set")
	}
	if cfg.DefaultChannelID != "" {
		id, err := strconv.ParseInt(cfg.DefaultChannelID, 10, 64)
		if err != nil || id <= 0 {
			return Config{}, fmt.Errorf("DISCORD_CHANNEL_ID is not a valid channel id: %q", cfg.DefaultChannelID)
		}
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
