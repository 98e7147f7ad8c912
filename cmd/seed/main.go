// Package main seeds settings modules and the first super admin from a YAML file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/portal-admin/internal/config"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/seed"
	"github.com/portal-admin/internal/service"
	"github.com/portal-admin/internal/storage"
)

func main() {
	path := flag.String("file", "config/seed.example.yaml", "Seed file to apply")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger().WithField("file", *path)

	if err := run(cfg, *path, logger); err != nil {
		logger.WithError(err).Error("seed failed")
		os.Exit(1)
	}
	logger.Info("seed applied")
}

// run applies the seed file; connections are closed before it returns
func run(cfg *config.Config, path string, logger *logging.Logger) error {
	file, err := seed.Load(path)
	if err != nil {
		return fmt.Errorf("invalid seed file: %w", err)
	}

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	defer postgres.Close()

	// Seeded modules are dropped from the cache so running servers pick them up
	var cache service.SettingsCache
	if cfg.Database.Redis.Enabled() {
		redis, err := storage.NewRedisCache(&cfg.Database.Redis)
		if err != nil {
			logger.WithError(err).Warn("Redis unreachable: cached settings expire after their TTL")
		} else {
			defer redis.Close()
			cache = storage.NewSettingsCache(redis, cfg.Cache.SettingsTTL)
		}
	}
	settings := service.NewSettingsService(storage.NewSettingRepository(postgres.Pool()), cache, logger)

	ctx := logging.WithLogger(context.Background(), logger)
	return seed.Apply(ctx, file, settings, storage.NewUserRepository(postgres))
}
