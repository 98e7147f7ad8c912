// Package main provides the API server entry point for the portal admin backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/portal-admin/internal/api"
	"github.com/portal-admin/internal/auth"
	"github.com/portal-admin/internal/circuitbreaker"
	"github.com/portal-admin/internal/config"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/metrics"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/notify"
	"github.com/portal-admin/internal/ratelimit"
	"github.com/portal-admin/internal/service"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"env":    cfg.Env,
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("portal admin server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.WithError(err).Error("server failed")
		os.Exit(1)
	}
	logger.Info("server exited")
}

// run wires the server and blocks until ctx is cancelled or the listener fails.
// Every connection it opens is closed before it returns.
func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	// Connect to Postgres
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	defer postgres.Close()
	health := map[string]api.Pinger{"postgres": postgres}

	// Redis backs the settings cache and login throttle when configured
	var (
		settingsCache service.SettingsCache
		loginThrottle service.LoginThrottle
	)
	if cfg.Database.Redis.Enabled() {
		redis, err := storage.NewRedisCache(&cfg.Database.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redis.Close()
		health["redis"] = redis

		settingsCache = storage.NewSettingsCache(redis, cfg.Cache.SettingsTTL)
		throttle, err := ratelimit.NewLoginThrottle(&ratelimit.LoginThrottleConfig{
			Redis:       redis.Client(),
			MaxAttempts: cfg.RateLimit.LoginAttempts,
			Window:      cfg.RateLimit.LoginWindow,
		})
		if err != nil {
			return fmt.Errorf("failed to create login throttle: %w", err)
		}
		loginThrottle = throttle
	} else {
		logger.Warn("Redis not configured: settings are read uncached and logins are not throttled")
	}

	// ClickHouse keeps the ledger event history when configured
	var ledgerSink service.LedgerSink
	if cfg.Database.ClickHouse.Enabled() {
		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		defer clickhouse.Close()
		health["clickhouse"] = clickhouse
		ledgerSink = storage.NewLedgerEventRepository(clickhouse)
	} else {
		logger.Warn("ClickHouse not configured: ledger history is disabled")
	}

	// Background pool for notifications and ledger events
	pool := worker.NewPool(worker.Config{
		Workers:   cfg.Workflow.NotifyWorkers,
		QueueSize: cfg.Workflow.NotifyQueue,
		Observer:  metrics.RecordBackgroundTask,
		Logger:    logger,
	})
	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	// Repositories
	ledger := storage.NewLedger(postgres)
	db := postgres.Pool()
	userRepo := storage.NewUserRepository(postgres)
	settingRepo := storage.NewSettingRepository(db)

	// Settings are validated before the server accepts traffic
	settingsService := service.NewSettingsService(settingRepo, settingsCache, logger)
	if err := settingsService.Preload(ctx); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	breakerCfg := circuitbreaker.DefaultConfig("mailer")
	breakerCfg.OnStateChange = func(name string, state circuitbreaker.State) {
		metrics.RecordBreakerState(name, state == circuitbreaker.StateOpen)
		logger.WithFields(map[string]interface{}{
			"breaker": name,
			"state":   state,
		}).Warn("circuit breaker state changed")
	}
	notifier := notify.NewNotifier(
		notify.NewMailer(cfg.Mail, logger),
		pool,
		settingsService,
		circuitbreaker.NewCircuitBreaker(breakerCfg),
		nil,
		logger,
	)

	// Services
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	events := service.NewLedgerRecorder(ledgerSink, pool, logger)
	fees := service.NewFeeResolver(ledger)

	services := api.Services{
		Users: service.NewUserService(userRepo, tokens, loginThrottle, logger),
		Applications: service.NewApplicationService(
			ledger,
			fees,
			storage.NewRepository[models.Application](db, storage.ApplicationSchema),
			notifier,
			events,
			logger,
		),
		Recharges: service.NewRechargeService(
			ledger,
			storage.NewRepository[models.RechargeRequest](db, storage.RechargeSchema),
			notifier,
			events,
			logger,
		),
		Fees:     fees,
		Settings: settingsService,
		Bdris: service.NewBdrisService(
			storage.NewRepository[models.BdrisApplication](db, storage.BdrisApplicationSchema),
			storage.NewRepository[models.BdrisApplicationError](db, storage.BdrisErrorSchema),
		),
		Dashboard: service.NewDashboardService(storage.NewDashboardRepository(db)),
		Ledger:    events,
		Resources: []api.Resource{
			crudResource[models.AgentFee](db, "/agent-fees", storage.AgentFeeSchema, service.AgentFeePolicy, func() service.Input { return &service.AgentFeeInput{} }),
			crudResource[models.BlogPost](db, "/blog-posts", storage.BlogPostSchema, service.ContentPolicy, func() service.Input { return &service.BlogPostInput{} }),
			crudResource[models.Career](db, "/careers", storage.CareerSchema, service.ContentPolicy, func() service.Input { return &service.CareerInput{} }),
			crudResource[models.PublicService](db, "/public-services", storage.PublicServiceSchema, service.ContentPolicy, func() service.Input { return &service.PublicServiceInput{} }),
			crudResource[models.ServiceCategory](db, "/service-categories", storage.ServiceCategorySchema, service.ContentPolicy, func() service.Input { return &service.ServiceCategoryInput{} }),
			crudResource[models.Page](db, "/pages", storage.PageSchema, service.ContentPolicy, func() service.Input { return &service.PageInput{} }),
			crudResource[models.Feedback](db, "/feedback", storage.FeedbackSchema, service.FeedbackPolicy, func() service.Input { return &service.FeedbackInput{} }),
			crudResource[models.Media](db, "/media", storage.MediaSchema, service.ContentPolicy, func() service.Input { return &service.MediaInput{} }),
		},
	}

	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		CORSOrigin:        cfg.Server.CORSOrigin,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		WorkflowTimeout:   cfg.Workflow.Timeout,
	}
	server := api.NewServer(serverConfig, services, tokens, health, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serverErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	// Drain queued notifications and ledger events before closing connections
	if err := pool.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("worker pool did not drain")
	}

	return runErr
}

// crudResource builds a policy-checked collection over the generic repository
func crudResource[T any](db storage.Querier, path string, schema storage.Schema, policy service.Policy, newInput func() service.Input) api.Resource {
	repo := storage.NewRepository[T](db, schema)
	return api.NewResource[T](path, service.NewCrudService[T](repo, policy), newInput)
}
