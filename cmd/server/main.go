package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/actuallystonmai/menu-planner/internal/cache"
	"github.com/actuallystonmai/menu-planner/internal/config"
	"github.com/actuallystonmai/menu-planner/internal/handler"
	"github.com/actuallystonmai/menu-planner/internal/logging"
	"github.com/actuallystonmai/menu-planner/internal/planner"
	"github.com/actuallystonmai/menu-planner/internal/repository"
	"github.com/actuallystonmai/menu-planner/internal/router"
	"github.com/actuallystonmai/menu-planner/internal/service"
	"github.com/actuallystonmai/menu-planner/seeds"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server.exit", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ------------ PostgreSQL ---------------
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBPoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := waitForDB(ctx, pool, logger); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("db.connected")

	// ------------ Run Migrations ---------------
	// for migrate-down using CLI command
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := migrate(ctx, pool, cfg.MigrationsDir, "create_tables.down.sql"); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info("db.migrations_dropped")
		return nil
	}

	if err := migrate(ctx, pool, cfg.MigrationsDir, "create_tables.up.sql"); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	logger.Info("db.migrations_applied")

	repo := repository.New(pool)

	// ------------ Redis ---------------
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	planCache := cache.NewCache(rdb, cfg.CacheTTL)
	if err := planCache.Ping(ctx); err != nil {
		logger.Warn("cache.unavailable", zap.Error(err))
	}

	// ------------ Setup Seed Data ---------------
	if cfg.SeedOnStart {
		seed := func(ctx context.Context) error {
			return seeds.Setup(ctx, pool, logger.Named("seed"))
		}
		if err := checkSeed(ctx, repo, seed, planCache, logger); err != nil {
			return fmt.Errorf("check seed: %w", err)
		}
	}

	// ---------------- Server --------------------
	p := planner.New(cfg.Planner(), logger.Named("planner"))
	svc := service.NewService(repo, planCache, p, logger.Named("service"), cfg.BatchConcurrency)
	h := handler.NewHandler(svc, logger.Named("http"))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Setup(h, cfg.SolverMaxTimeLimit+30*time.Second),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.start", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		logger.Info("db.waiting", zap.Int("attempt", i+1), zap.Int("max_attempts", 30))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func migrate(ctx context.Context, pool *pgxpool.Pool, dir, file string) error {
	sql, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	return nil
}

type recipeCounter interface {
	CountRecipes(ctx context.Context) (int, error)
}

type cacheClearer interface {
	Clear(ctx context.Context) error
}

// checkSeed loads the demo catalog into an empty database. Plans cached
// against an earlier database may share the new catalog's version string,
// so the plan cache is flushed once seeding succeeds.
func checkSeed(ctx context.Context, repo recipeCounter, seed func(context.Context) error, planCache cacheClearer, logger *zap.Logger) error {
	count, err := repo.CountRecipes(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("seed.skipped", zap.Int("recipes", count))
		return nil
	}
	if err := seed(ctx); err != nil {
		return err
	}
	if err := planCache.Clear(ctx); err != nil {
		logger.Warn("cache.clear_failed", zap.Error(err))
	}
	return nil
}
