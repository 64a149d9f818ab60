package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable through FRIENDLY_STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config captures the runtime configuration for the friendly backend service.
type Config struct {
	AppPort      int
	Store        string
	DatabaseURL  string
	MigrationDir string
	SeedDir      string
	LogLevel     string
	StaticDir    string
	CORSOrigin   string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Redis            RedisConfig
	UsernameCacheTTL time.Duration

	RateLimit RateLimitConfig
}

// RedisConfig points the username cache at a shared Redis instance. An empty
// Addr selects the in-process cache instead.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig bounds how often a single client may hit the guarded endpoints.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Load reads configuration from environment variables, applying sensible defaults
// for local development. A .env file in the working directory is honoured when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppPort:      getInt("FRIENDLY_PORT", 8080),
		Store:        strings.ToLower(getString("FRIENDLY_STORE", StorePostgres)),
		DatabaseURL:  getString("FRIENDLY_DATABASE_URL", "postgres://root@localhost:26257/friendly?sslmode=disable"),
		MigrationDir: getString("FRIENDLY_MIGRATIONS", "migrations"),
		SeedDir:      getString("FRIENDLY_SEEDS", "seeds"),
		LogLevel:     getString("FRIENDLY_LOG_LEVEL", "info"),
		StaticDir:    getString("FRIENDLY_STATIC_DIR", ""),
		CORSOrigin:   getString("FRIENDLY_CORS_ORIGIN", "*"),
		JWTSecret:    getString("FRIENDLY_JWT_SECRET", ""),
		AccessTTL:    getDuration("FRIENDLY_ACCESS_TTL", time.Hour),
		RefreshTTL:   getDuration("FRIENDLY_REFRESH_TTL", 7*24*time.Hour),
		Redis: RedisConfig{
			Addr:     getString("FRIENDLY_REDIS_ADDR", ""),
			Password: getString("FRIENDLY_REDIS_PASSWORD", ""),
			DB:       getInt("FRIENDLY_REDIS_DB", 0),
		},
		UsernameCacheTTL: getDuration("FRIENDLY_USERNAME_CACHE_TTL", 10*time.Minute),
		RateLimit: RateLimitConfig{
			Requests: getInt("FRIENDLY_RATE_LIMIT_REQUESTS", 10),
			Window:   getDuration("FRIENDLY_RATE_LIMIT_WINDOW", time.Minute),
			Burst:    getInt("FRIENDLY_RATE_LIMIT_BURST", 5),
		},
	}

	switch cfg.Store {
	case StorePostgres, StoreMemory:
	default:
		return Config{}, errors.New("FRIENDLY_STORE must be either postgres or memory")
	}

	return cfg, nil
}

// Validate reports configuration that is required to serve HTTP traffic.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("FRIENDLY_JWT_SECRET must be set")
	}
	if c.Store == StorePostgres && strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("FRIENDLY_DATABASE_URL must be set when using the postgres store")
	}
	return nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
