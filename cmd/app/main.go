package main

import (
	"context"
	"log"
	"os"
	"time"

	"hotel-inventory/internal/adapters/cli"
	"hotel-inventory/internal/app"
	"hotel-inventory/internal/cache"
	"hotel-inventory/internal/config"
	"hotel-inventory/internal/core"
	"hotel-inventory/internal/db"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// The CLI prints tables to stdout; keep service logs to warnings and up.
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	// Mutations made here must invalidate reports the server has cached.
	var reportCache *cache.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("Warning: redis unavailable: %v", err)
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

	cli.Run(ctx, svc, os.Args[1:])
}
