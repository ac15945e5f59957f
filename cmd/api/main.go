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

	"github.com/ridgeline-exteriors/booking-api/internal/acculynx"
	"github.com/ridgeline-exteriors/booking-api/internal/auth"
	"github.com/ridgeline-exteriors/booking-api/internal/config"
	"github.com/ridgeline-exteriors/booking-api/internal/database"
	"github.com/ridgeline-exteriors/booking-api/internal/http/handler"
	"github.com/ridgeline-exteriors/booking-api/internal/http/middleware"
	"github.com/ridgeline-exteriors/booking-api/internal/http/router"
	"github.com/ridgeline-exteriors/booking-api/internal/jobs"
	"github.com/ridgeline-exteriors/booking-api/internal/logger"
	"github.com/ridgeline-exteriors/booking-api/internal/metrics"
	"github.com/ridgeline-exteriors/booking-api/internal/repository"
	"github.com/ridgeline-exteriors/booking-api/internal/service"
	"github.com/ridgeline-exteriors/booking-api/internal/storage"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// In development secrets come from the environment, in staging/production
	// from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.App.Environment == "development" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	photoStorage, err := storage.NewStorage(ctx, &cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	m := metrics.New()

	crm := acculynx.NewClient(acculynx.Config{
		BaseURL:           cfg.AccuLynx.BaseURL,
		APIKey:            cfg.AccuLynx.APIKey,
		LeadSourceID:      cfg.AccuLynx.LeadSourceID,
		StateID:           cfg.AccuLynx.StateID,
		CountryID:         cfg.AccuLynx.CountryID,
		Timeout:           cfg.AccuLynx.TimeoutDuration(),
		RequestsPerSecond: cfg.AccuLynx.RequestsPerSecond,
	}, log)
	crm.OnResponse(func(op string, d time.Duration) {
		m.CRMRequest(op, d.Seconds())
	})
	if !crm.Configured() {
		log.Warn("AccuLynx API key not configured, sync attempts will be recorded as config errors")
	}
	if cfg.Webhook.Secret == "" {
		log.Warn("AccuLynx webhook secret not configured, all webhook calls will be rejected")
	}

	// Repositories
	orderRepo := repository.NewOrderRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	webhookLogRepo := repository.NewWebhookLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Services
	contactService := service.NewContactService(profileRepo, crm, log)
	photoUploadService := service.NewPhotoUploadService(orderRepo, photoRepo, photoStorage, crm, m, log)
	jobSyncService := service.NewJobSyncService(orderRepo, addressRepo, contactService, crm, photoUploadService, m, log)
	retryService := service.NewSyncRetryService(orderRepo, jobSyncService, photoUploadService, m, log)
	notificationService := service.NewNotificationService(notificationRepo, log)
	webhookService := service.NewWebhookService(cfg.Webhook.Secret, orderRepo, webhookLogRepo, notificationService, m, log)

	// Middleware and handlers
	authMiddleware := auth.NewMiddleware(&cfg.Auth, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	webhookHandler := handler.NewWebhookHandler(webhookService, log)
	syncHandler := handler.NewSyncHandler(orderRepo, photoRepo, jobSyncService, retryService, log)

	rt := router.NewRouter(cfg, log, db, m, authMiddleware, rateLimiter, webhookHandler, syncHandler)

	var scheduler *jobs.Scheduler
	if cfg.SyncRetry.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterSyncRetryJob(
			scheduler,
			retryService,
			log,
			cfg.SyncRetry.Cron,
			cfg.SyncRetry.TimeoutDuration(),
			cfg.SyncRetry.RunOnStartup,
		); err != nil {
			return fmt.Errorf("failed to register sync retry job: %w", err)
		}
		scheduler.Start()
		log.Info("Scheduler started with sync retry job",
			zap.String("cron_expr", cfg.SyncRetry.Cron),
			zap.Duration("timeout", cfg.SyncRetry.TimeoutDuration()),
		)
	} else {
		log.Info("Sync retry sweep disabled, relying on POST /api/v1/sync/retry")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
