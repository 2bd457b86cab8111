// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Redisboard HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables (.env honored in dev).
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire the auth domain, guard, audit sink, and background loops.
//  7. Seed the first-run admin account.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/taibuivan/redisboard/internal/api"
	"github.com/taibuivan/redisboard/internal/audit"
	"github.com/taibuivan/redisboard/internal/platform/config"
	"github.com/taibuivan/redisboard/internal/platform/constants"
	"github.com/taibuivan/redisboard/internal/platform/middleware"
	"github.com/taibuivan/redisboard/internal/platform/migration"
	pgstore "github.com/taibuivan/redisboard/internal/platform/postgres"
	redisstore "github.com/taibuivan/redisboard/internal/platform/redis"
	"github.com/taibuivan/redisboard/internal/platform/sec"
	"github.com/taibuivan/redisboard/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "redisboard"))
	slog.SetDefault(log)

	log.Info("[Redisboard] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	// A local .env is a development convenience; its absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "redisboard"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(cfg.SessionSecret, constants.AuthIssuer)
	must(log, err, "initialize token service")

	// Lifecycle context for the background loops below. Cancelled after the
	// HTTP server has drained.
	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	guard := auth.NewLoginGuard(auth.GuardPolicy{
		MaxAttempts:     cfg.LoginMaxAttempts,
		AttemptWindow:   cfg.LoginAttemptWindow,
		LockoutDuration: cfg.LoginLockoutDuration,
	})
	go guard.Run(backgroundCtx, auth.GuardCleanupInterval)

	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	auditRecorder := audit.NewRedisRecorder(rdb)

	authService := auth.NewService(
		userRepository,
		sessionRepository,
		tokenService,
		guard,
		auditRecorder,
		log,
		auth.Lifetimes{
			AccessTokenTTL:     cfg.AccessTokenTTL,
			SessionTTL:         cfg.SessionTTL,
			RememberSessionTTL: cfg.RememberSessionTTL,
		},
	)
	go authService.RunSessionCleanup(backgroundCtx, auth.SessionCleanupInterval)

	must(log, authService.EnsureAdmin(startupCtx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword), "bootstrap admin")

	cookieWriter := auth.NewCookieWriter(cfg.IsProduction())
	authHandler := auth.NewHandler(authService, cookieWriter)
	gateway := auth.NewGateway(tokenService, authService, cookieWriter)

	limiter := middleware.NewIPRateLimiter(constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst)
	go limiter.Run(backgroundCtx)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Gateway:   gateway,
	}

	server := api.NewServer(cfg, log, tokenService, limiter, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
