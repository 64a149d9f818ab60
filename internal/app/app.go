package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/friendly/backend/internal/config"
	"github.com/friendly/backend/internal/db"
	"github.com/friendly/backend/internal/handlers"
	"github.com/friendly/backend/internal/httpserver"
	"github.com/friendly/backend/internal/logging"
	"github.com/friendly/backend/internal/middleware"
)

// Run bootstraps the Friendly backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or seed")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	switch args[0] {
	case "serve":
		return serve(ctx, cfg, logger)
	case "migrate":
		return runMigrations(ctx, cfg, logger, args[1:])
	case "seed":
		return runSeed(ctx, cfg, logger, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     logging.ParseLevel(cfg.LogLevel),
	}))
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pool db.Pool
	if cfg.Store == config.StorePostgres {
		pgPool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		pool = pgPool
	}

	deps, cleanup, err := buildDependencies(ctx, pool, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(context.Background()); err != nil {
			logger.Warn("release dependencies", "error", err)
		}
	}()

	router := handlers.NewRouter(deps)
	handler := middleware.RequestLogger(logger)(middleware.CORS(cfg.CORSOrigin)(router))

	logger.Info("serving friendly api", "port", cfg.AppPort, "store", cfg.Store)
	return httpserver.New(cfg.AppPort, handler, logger).Run(ctx)
}
