package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the process environment. A .env
// file in the working directory is merged in first without overriding
// variables already exported; a missing file is not an error.
//
// Recognized variables:
//
//	FIELDSYNC_SERVER_URL      base URL of the backend API
//	FIELDSYNC_DB_PATH         sqlite database file path
//	FIELDSYNC_CACHE_TTL       Go duration, e.g. "120s"
//	FIELDSYNC_CHECK_INTERVAL  Go duration, e.g. "3s"
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("FIELDSYNC_SERVER_URL"); v != "" {
		cfg.ServerBaseURL = v
	}
	if v := os.Getenv("FIELDSYNC_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("FIELDSYNC_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	if v := os.Getenv("FIELDSYNC_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OnlineCheckInterval = d
		}
	}
}
