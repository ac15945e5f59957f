package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"gorm.io/gorm"
)

// WebhookLogRepository appends webhook audit records; rows are never updated
type WebhookLogRepository struct {
	db *gorm.DB
}

func NewWebhookLogRepository(db *gorm.DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

func (r *WebhookLogRepository) Create(ctx context.Context, log *domain.WebhookLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *WebhookLogRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.WebhookLog, error) {
	var logs []domain.WebhookLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

func (r *WebhookLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.WebhookLog{}).Count(&count).Error
	return count, err
}
