package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "hotel-inventory/internal/adapters/web"
	"hotel-inventory/internal/app"
	"hotel-inventory/internal/cache"
	"hotel-inventory/internal/config"
	"hotel-inventory/internal/core"
	"hotel-inventory/internal/db"
	"hotel-inventory/internal/logging"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	var reportCache *cache.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, reports will not be cached", zap.Error(err))
		} else {
			defer client.Close()
			reportCache = cache.New(client, time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)
		}
	}

	services := app.NewServices(pool, core.SuggestionConfig{
		UsageWindowDays:     cfg.UsageWindowDays,
		LeadTimeBufferDays:  cfg.LeadTimeBufferDays,
		OrderUpToMultiplier: cfg.OrderUpToMultiplier,
	}, cfg.AtRiskFactor, logger)
	svc := app.NewAppService(pool, services, reportCache, app.NewRoleAuthorizer(), logger)

	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		SecureCookies:  cfg.IsProduction(),
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("server starting", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server", zap.Error(err))
	}
	logger.Info("server stopped")
}
