// Command calorie-server starts the calorie tracker HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/calorie-tracker/internal/config"
	"github.com/and161185/calorie-tracker/internal/limiter"
	"github.com/and161185/calorie-tracker/internal/logger"
	"github.com/and161185/calorie-tracker/internal/metrics"
	"github.com/and161185/calorie-tracker/internal/migrate"
	"github.com/and161185/calorie-tracker/internal/repository/postgres"
	httpserver "github.com/and161185/calorie-tracker/internal/server/http"
	"github.com/and161185/calorie-tracker/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and serves HTTP until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.Dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		log.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DSN, int32(cfg.MaxConns))
	if err != nil {
		log.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	foodRepo := postgres.NewFoodRepo(db, cfg.SystemUser)
	statsRepo := postgres.NewStatisticsRepo(db, foodRepo)

	lim := limiter.NewPG(db.Pool, limiter.Policy{
		Window:   cfg.LoginWindow,
		MaxFails: cfg.LoginMaxFails,
		BlockFor: cfg.LoginBlockFor,
	})
	m := metrics.New()

	// Services
	authSvc := service.NewAuthService(userRepo, []byte(cfg.SessionKey), cfg.SessionTTL, lim)
	foodSvc := service.NewFoodService(foodRepo)
	statsSvc := service.NewStatisticsService(statsRepo, m, log.Named("statistics"))

	authLim := httpserver.NewIPRateLimiter(cfg.AuthRPS, cfg.AuthBurst)
	go sweep(ctx, authLim, time.Minute)

	app := httpserver.New(authSvc, foodSvc, statsSvc, log.Named("http"), httpserver.Options{
		CookieName:   cfg.CookieName,
		SecureCookie: cfg.SecureCookie,
		SystemUserID: cfg.SystemUser,
		AuthLimiter:  authLim,
		Metrics:      m,
		Health:       db.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	log.Info("shutdown complete")
}

func sweep(ctx context.Context, rl *httpserver.IPRateLimiter, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rl.Sweep()
		}
	}
}
