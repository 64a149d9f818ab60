package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendly/backend/internal/cache"
	"github.com/friendly/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func testConfig(store string) config.Config {
	return config.Config{
		Store:            store,
		JWTSecret:        "secret",
		AccessTTL:        time.Minute,
		RefreshTTL:       time.Hour,
		UsernameCacheTTL: time.Minute,
		RateLimit:        config.RateLimitConfig{Requests: 5, Window: time.Minute, Burst: 1},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildDependencies(t *testing.T) {
	for _, store := range []string{config.StorePostgres, config.StoreMemory} {
		t.Run(store, func(t *testing.T) {
			deps, cleanup, err := buildDependencies(context.Background(), fakePool{}, testConfig(store), discardLogger())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cleanup == nil {
				t.Fatal("expected cleanup function")
			}
			defer func() { _ = cleanup(context.Background()) }()

			if deps.Users == nil {
				t.Fatal("expected user repository to be configured")
			}
			if deps.Sessions == nil || deps.Tokens == nil {
				t.Fatal("expected session manager to be configured")
			}
			if deps.Relationships == nil {
				t.Fatal("expected relationship service to be configured")
			}
			if deps.RateLimiter == nil {
				t.Fatal("expected rate limiter to be configured")
			}
		})
	}
}

func TestBuildDependenciesRequiresPoolForPostgres(t *testing.T) {
	if _, _, err := buildDependencies(context.Background(), nil, testConfig(config.StorePostgres), discardLogger()); err == nil {
		t.Fatal("expected error without a pool")
	}
}

func TestBuildDependenciesDisablesRateLimiting(t *testing.T) {
	cfg := testConfig(config.StoreMemory)
	cfg.RateLimit.Requests = 0

	deps, _, err := buildDependencies(context.Background(), nil, cfg, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deps.RateLimiter != nil {
		t.Fatal("expected rate limiting to be disabled")
	}
}

func TestBuildUsernameCacheFallsBackWithoutRedis(t *testing.T) {
	cfg := testConfig(config.StoreMemory)
	cfg.Redis.Addr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	names, cleanup := buildUsernameCache(ctx, cfg, discardLogger())
	if err := cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, ok := names.(*cache.MemoryCache); !ok {
		t.Fatalf("expected in-memory cache fallback, got %T", names)
	}
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.sql", "0001_a.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.sql"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := listMigrations(dir)
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	if len(got) != 2 || got[0] != "0001_a.sql" || got[1] != "0002_b.sql" {
		t.Fatalf("unexpected migrations %v", got)
	}

	if _, err := listMigrations(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestSeedFileName(t *testing.T) {
	cases := map[string]string{
		"dev":        "dev_seed.sql",
		"custom.sql": "custom.sql",
	}
	for in, want := range cases {
		if got := seedFileName(in); got != want {
			t.Fatalf("seedFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShouldRetryMigration(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"syntax", &pgconn.PgError{Code: "42601"}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldRetryMigration(tc.err); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestMigrationBackoff(t *testing.T) {
	if got := migrationBackoff(1); got != migrationBaseBackoff {
		t.Fatalf("expected base backoff, got %s", got)
	}
	if got := migrationBackoff(20); got != migrationMaxBackoff {
		t.Fatalf("expected capped backoff, got %s", got)
	}
}

func TestRunRejectsUnknownCommands(t *testing.T) {
	t.Setenv("FRIENDLY_STORE", "memory")

	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without a command")
	}
	if err := Run(context.Background(), []string{"explode"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if err := Run(context.Background(), []string{"migrate", "down"}); err == nil {
		t.Fatal("expected down migrations to be rejected")
	}
}
