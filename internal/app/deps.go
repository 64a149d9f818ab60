package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/friendly/backend/internal/auth"
	"github.com/friendly/backend/internal/cache"
	"github.com/friendly/backend/internal/config"
	"github.com/friendly/backend/internal/db"
	"github.com/friendly/backend/internal/handlers"
	"github.com/friendly/backend/internal/middleware"
	"github.com/friendly/backend/internal/relationships"
	"github.com/friendly/backend/internal/repositories"
)

// rateLimiterTTL is how long an idle client keeps its limiter state.
const rateLimiterTTL = 10 * time.Minute

type userStore interface {
	handlers.UserStore
	relationships.Store
}

type cleanupFunc func(ctx context.Context) error

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. pool may be nil when cfg selects the memory store.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, cleanupFunc, error) {
	var (
		users    userStore
		sessions auth.SessionStore
	)
	switch cfg.Store {
	case config.StoreMemory:
		users = repositories.NewMemoryUserRepository()
		sessions = auth.NewInMemorySessionStore()
	default:
		if pool == nil {
			return handlers.Dependencies{}, nil, errors.New("postgres store selected without a database pool")
		}
		users = repositories.NewPostgresUserRepository(pool)
		sessions = repositories.NewPostgresSessionStore(pool)
	}

	names, cleanup := buildUsernameCache(ctx, cfg, logger)
	manager := auth.NewManager([]byte(cfg.JWTSecret), cfg.AccessTTL, cfg.RefreshTTL, sessions)

	var limiter middleware.RateLimiter
	if cfg.RateLimit.Requests > 0 {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, rateLimiterTTL)
	}

	deps := handlers.Dependencies{
		Users:         users,
		Sessions:      manager,
		Tokens:        manager,
		Relationships: relationships.NewService(users, names),
		RateLimiter:   limiter,
		StaticDir:     cfg.StaticDir,
	}
	return deps, cleanup, nil
}

// buildUsernameCache prefers Redis when an address is configured and falls
// back to a process-local cache when Redis cannot be reached.
func buildUsernameCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (relationships.UsernameCache, cleanupFunc) {
	noop := func(context.Context) error { return nil }

	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err == nil {
			logger.Info("using redis username cache", "addr", cfg.Redis.Addr)
			return cache.NewRedisCache(client, cfg.UsernameCacheTTL), func(context.Context) error { return client.Close() }
		}
		logger.Warn("redis unavailable, using in-memory username cache", "addr", cfg.Redis.Addr, "error", err)
	}

	return cache.NewMemoryCache(cfg.UsernameCacheTTL), noop
}
