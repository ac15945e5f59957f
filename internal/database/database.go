package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ridgeline-exteriors/booking-api/internal/config"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultInitialBackoff     = 1 * time.Second
	defaultMaxBackoff         = 10 * time.Second
	defaultBackoffFactor      = 2.0
	defaultHealthCheckTimeout = 5 * time.Second
)

// HealthStatus reports database reachability and pool statistics
type HealthStatus struct {
	Status     string        `json:"status"`
	Latency    time.Duration `json:"latency"`
	MaxOpen    int           `json:"maxOpen"`
	Open       int           `json:"open"`
	InUse      int           `json:"inUse"`
	Idle       int           `json:"idle"`
	WaitCount  int64         `json:"waitCount"`
	WaitTimeMs int64         `json:"waitTimeMs"`
	Error      string        `json:"error,omitempty"`
}

// NewDatabase opens the PostgreSQL connection, retrying transient startup failures
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	maxAttempts := cfg.ConnectRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var db *gorm.DB
		db, err = open(cfg)
		if err == nil {
			log.Info("Database connection established",
				zap.String("host", cfg.Host),
				zap.String("database", cfg.Name),
				zap.Int("attempts_taken", attempt),
			)
			return db, nil
		}

		log.Warn("Database connection attempt failed",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
		)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, err)
}

func open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnectionString()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	ctx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// HealthCheck pings the database and reports pool statistics
func HealthCheck(ctx context.Context, db *gorm.DB) *HealthStatus {
	sqlDB, err := db.DB()
	if err != nil {
		return &HealthStatus{Status: "unhealthy", Error: err.Error()}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	start := time.Now()
	err = sqlDB.PingContext(ctx)
	stats := sqlDB.Stats()

	status := &HealthStatus{
		Status:     "healthy",
		Latency:    time.Since(start),
		MaxOpen:    stats.MaxOpenConnections,
		Open:       stats.OpenConnections,
		InUse:      stats.InUse,
		Idle:       stats.Idle,
		WaitCount:  stats.WaitCount,
		WaitTimeMs: stats.WaitDuration.Milliseconds(),
	}
	if err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
	}
	return status
}

// Models lists every table owned by the service, in dependency order
func Models() []interface{} {
	return []interface{}{
		&domain.Profile{},
		&domain.Address{},
		&domain.Order{},
		&domain.Photo{},
		&domain.WebhookLog{},
		&domain.Notification{},
	}
}

// AutoMigrate runs automatic migrations (for development and tests only)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
