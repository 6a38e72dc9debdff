// Package main is the entrypoint for the triage API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/triage/internal/ai/provider"
	"github.com/kiranshivaraju/triage/internal/api"
	"github.com/kiranshivaraju/triage/internal/api/handler"
	mw "github.com/kiranshivaraju/triage/internal/api/middleware"
	"github.com/kiranshivaraju/triage/internal/cache"
	"github.com/kiranshivaraju/triage/internal/config"
	"github.com/kiranshivaraju/triage/internal/logging"
	"github.com/kiranshivaraju/triage/internal/store"
	"github.com/kiranshivaraju/triage/internal/triage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logging.Init(logging.ParseLevel(os.Getenv("LOG_LEVEL")), os.Getenv("LOG_FORMAT"))

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	gen, err := provider.New(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", gen.Name(), "model", gen.DefaultModel())

	svc := triage.NewService(gen,
		triage.WithGuardrails(triage.Guardrails{ReproThreshold: cfg.Triage.ReproThresholdChars}),
		triage.WithLogger(logging.New("triage")),
	)
	pgStore := store.NewPostgresStore(pool)

	router := api.NewRouter(dependencies(cfg, svc, pgStore, redisCache))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// A triage request may include a generate and a repair call.
		WriteTimeout: 2*cfg.AI.InferenceTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// dependencies wires every handler against one store and cache.
func dependencies(cfg *config.Config, svc *triage.Service, s store.Store, c cache.Cache) api.Dependencies {
	ttl := cfg.Redis.RunCacheTTL
	return api.Dependencies{
		Auth:      mw.NewAuth(s),
		RateLimit: mw.NewRateLimit(c, cfg.RateLimit.PerMinute),

		HealthHandler:    handler.NewHealthHandler(s, c, svc.Provider()),
		TriageHandler:    handler.NewTriageHandler(svc, s, c, ttl),
		ListRunsHandler:  handler.NewListRunsHandler(s),
		GetRunHandler:    handler.NewGetRunHandler(s, c, ttl),
		CreateKeyHandler: handler.NewCreateKeyHandler(s),
		ListKeysHandler:  handler.NewListKeysHandler(s),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(s),
	}
}
