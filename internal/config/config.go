package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// Server
	Host      string
	Port      string
	PublicURL string
	Env       string

	// Database
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	// Redis (optional, enables change events)
	RedisURL string

	// JWT (optional, enables API token auth)
	JWTSecret string

	// HTTP
	AllowedHosts      []string
	FrontendURL       string
	DefaultPageSize   int
	MaxPageSize       int
	BulkSyncRateLimit int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Host:              getEnvOrDefault("HOST", "0.0.0.0"),
		Port:              getEnvOrDefault("PORT", "1337"),
		PublicURL:         getEnvOrDefault("PUBLIC_URL", "http://localhost:1337"),
		Env:               getEnvOrDefault("ENV", "development"),
		DatabaseDriver:    strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", DriverPostgres)),
		SQLitePath:        getEnvOrDefault("SQLITE_PATH", "./data/cms.db"),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		JWTSecret:         getEnvOrDefault("JWT_SECRET", ""),
		AllowedHosts:      getEnvAsListOrDefault("ALLOWED_HOSTS", []string{"neurema.com", "www.neurema.com", "localhost"}),
		FrontendURL:       getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		DefaultPageSize:   getEnvAsIntOrDefault("DEFAULT_PAGE_SIZE", 25),
		MaxPageSize:       getEnvAsIntOrDefault("MAX_PAGE_SIZE", 100),
		BulkSyncRateLimit: getEnvAsIntOrDefault("BULK_SYNC_RATE_LIMIT", 60),
	}

	if cfg.DatabaseDriver == DriverPostgres {
		cfg.DatabaseURL = mustGetEnv("DATABASE_URL")
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}

	return cfg
}

// LoadJWTSecret reads only JWT_SECRET, for commands that never touch the
// database.
func LoadJWTSecret() string {
	godotenv.Load()
	return getEnvOrDefault("JWT_SECRET", "")
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsListOrDefault splits a comma separated value. A variable set to
// "-" yields an empty list.
func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	if val == "-" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
