/*
Package config loads server configuration from the environment.

PURPOSE:
  Reads configuration from environment variables, with an optional .env
  file loaded first (development convenience). Every variable has a
  sensible default so the server starts with zero configuration.

VARIABLES:
  PORT          HTTP server port              (default 8080)
  DB_PATH       SQLite database path          (default commission.db)
  CORS_ORIGINS  Comma-separated origins       (default http://localhost:5173)
  LOG_LEVEL     debug, info, warn, error      (default info)
*/
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all server settings.
type Config struct {
	Port        int
	DBPath      string
	CORSOrigins []string
	LogLevel    slog.Level
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getEnvInt("PORT", 8080),
		DBPath:      getEnv("DB_PATH", "commission.db"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		LogLevel:    parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
