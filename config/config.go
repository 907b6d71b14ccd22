package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Listeners
	ListenAddr  string
	MetricsAddr string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string

	// Tracked universe (comma-separated symbols, e.g. "AAPL,MSFT,GOOG")
	TrackedSymbols string

	// Refresh cycle tuning
	RefreshInterval time.Duration
	RefreshTimeout  time.Duration
	RefreshWorkers  int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/bars.db"),

		TrackedSymbols: getEnv("TRACKED_SYMBOLS", "AAPL,MSFT,GOOG,AMZN,TSLA"),

		RefreshInterval: time.Duration(getEnvInt("REFRESH_INTERVAL_SECS", 60)) * time.Second,
		RefreshTimeout:  time.Duration(getEnvInt("REFRESH_TIMEOUT_SECS", 30)) * time.Second,
		RefreshWorkers:  getEnvInt("REFRESH_WORKERS", 8),
	}
}

// ParseSymbols parses the TrackedSymbols string into a clean symbol slice.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.TrackedSymbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		symbols = append(symbols, strings.ToUpper(p))
	}
	return symbols
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
