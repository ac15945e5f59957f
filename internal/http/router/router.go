package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ridgeline-exteriors/booking-api/internal/auth"
	"github.com/ridgeline-exteriors/booking-api/internal/config"
	"github.com/ridgeline-exteriors/booking-api/internal/database"
	"github.com/ridgeline-exteriors/booking-api/internal/http/handler"
	"github.com/ridgeline-exteriors/booking-api/internal/http/middleware"
	"github.com/ridgeline-exteriors/booking-api/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	metrics        *metrics.Metrics
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	webhookHandler *handler.WebhookHandler
	syncHandler    *handler.SyncHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	m *metrics.Metrics,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	webhookHandler *handler.WebhookHandler,
	syncHandler *handler.SyncHandler,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		metrics:        m,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		webhookHandler: webhookHandler,
		syncHandler:    syncHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(rt.metrics.Middleware)
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Database health check with pool stats
	r.Get("/health/db", rt.databaseHealth)

	// Readiness probe
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		db := database.HealthCheck(r.Context(), rt.db)
		status := http.StatusOK
		overall := "healthy"
		if db.Status != "healthy" {
			rt.logger.Error("readiness check failed", zap.String("error", db.Error))
			status = http.StatusServiceUnavailable
			overall = "unhealthy"
		}
		writeJSON(w, status, map[string]interface{}{
			"status": overall,
			"checks": map[string]interface{}{
				"database": map[string]string{"status": db.Status},
			},
		})
	})

	r.Handle("/metrics", rt.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
			r.Use(chimw.Timeout(timeout))
		}

		// AccuLynx authenticates with the shared webhook secret, not a user token
		r.With(rt.rateLimiter.LimitWebhook).Post("/webhooks/acculynx", rt.webhookHandler.AccuLynx)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.rateLimiter.LimitByIP)
			r.Use(rt.authMiddleware.Authenticate)

			r.Get("/orders/{id}/sync", rt.syncHandler.Get)
			r.Post("/orders/{id}/sync", rt.syncHandler.Sync)

			r.With(rt.authMiddleware.RequireSystem).Post("/sync/retry", rt.syncHandler.RetrySweep)
		})
	})

	return r
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	health := database.HealthCheck(r.Context(), rt.db)
	if health.Status != "healthy" {
		rt.logger.Error("Database health check failed", zap.String("error", health.Error))
		writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	writeJSON(w, http.StatusOK, health)
}
