package config

import (
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL       string
	JWTSecret         string
	Port              string
	FCMServiceAccount string
	// UploadsDir is where progress photos land before they are attached to
	// an entry.
	UploadsDir string
	// NudgeDailyCap is the per-sender daily nudge limit across all recipients.
	NudgeDailyCap int
	// UndoWindowSeconds is how long the undo offer stays live after a log.
	UndoWindowSeconds int
}

func Load() *Config {
	return &Config{
		DatabaseURL:       getEnv("DATABASE_URL", "pursue.db"),
		JWTSecret:         getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		Port:              getEnv("PORT", "8080"),
		FCMServiceAccount: getEnv("FCM_SERVICE_ACCOUNT", ""),
		UploadsDir:        getEnv("UPLOADS_DIR", "uploads"),
		NudgeDailyCap:     getEnvInt("NUDGE_DAILY_CAP", 10),
		UndoWindowSeconds: getEnvInt("UNDO_WINDOW_SECONDS", 5),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
