package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-retry"

	"github.com/Sami2905/nexflow-backend/internal/app/migrate"
	httpx "github.com/Sami2905/nexflow-backend/internal/http"
	"github.com/Sami2905/nexflow-backend/internal/policy"
	"github.com/Sami2905/nexflow-backend/internal/repository/postgres"
	"github.com/Sami2905/nexflow-backend/internal/service/activity"
	"github.com/Sami2905/nexflow-backend/internal/service/auth"
	"github.com/Sami2905/nexflow-backend/internal/service/bug"
	"github.com/Sami2905/nexflow-backend/internal/service/notification"
	"github.com/Sami2905/nexflow-backend/internal/service/outbox"
	"github.com/Sami2905/nexflow-backend/internal/service/project"
	"github.com/Sami2905/nexflow-backend/internal/service/search"
	"github.com/Sami2905/nexflow-backend/internal/ws"
	"github.com/Sami2905/nexflow-backend/pkg/config"
	"github.com/Sami2905/nexflow-backend/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	// The database container may still be starting; ping with backoff
	// before giving up.
	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := runner.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	hub := ws.NewHub()
	engine := policy.NewEngine(cfg.BugEditScope)

	authSvc := auth.New(repo, log, cfg)
	projectSvc := project.New(repo, repo, engine, log)
	bugSvc := bug.New(repo, repo, repo, repo, engine, log)
	activitySvc := activity.New(repo, repo, engine, log)
	notificationSvc := notification.New(repo, log)
	searchSvc := search.New(repo, log)

	dispatcher := outbox.NewDispatcher(repo, hub, log, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Run(ctx)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authSvc, projectSvc, bugSvc, activitySvc, notificationSvc, searchSvc, hub, limiter, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
