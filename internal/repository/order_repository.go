package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"gorm.io/gorm"
)

// SyncState is one write of an order's integration lifecycle fields.
// Nil pointers leave the column untouched, except LastSyncError which is
// always written so a successful attempt clears the previous error.
type SyncState struct {
	SyncStatus    domain.SyncStatus
	SyncAttempts  *int
	LastSyncAt    time.Time
	LastSyncError *string
	ContactID     *string
	JobID         *string
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByAccuLynxJobID resolves the local order for an AccuLynx job
func (r *OrderRepository) GetByAccuLynxJobID(ctx context.Context, jobID string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Where("acculynx_job_id = ?", jobID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListRetryCandidates returns orders stuck in a failed sync state that still
// have attempts left, oldest failure first
func (r *OrderRepository) ListRetryCandidates(ctx context.Context, maxAttempts int) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Where("sync_status IN ?", []domain.SyncStatus{domain.SyncStatusFailed, domain.SyncStatusPhotoUploadFailed}).
		Where("sync_attempts < ?", maxAttempts).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// UpdateSyncState writes the integration lifecycle fields of an order
func (r *OrderRepository) UpdateSyncState(ctx context.Context, id uuid.UUID, state SyncState) error {
	fields := map[string]interface{}{
		"sync_status":     state.SyncStatus,
		"last_sync_at":    state.LastSyncAt,
		"last_sync_error": state.LastSyncError,
	}
	if state.SyncAttempts != nil {
		fields["sync_attempts"] = *state.SyncAttempts
	}
	if state.ContactID != nil {
		fields["acculynx_contact_id"] = *state.ContactID
	}
	if state.JobID != nil {
		fields["acculynx_job_id"] = *state.JobID
	}
	return r.UpdateFields(ctx, id, fields)
}

// UpdateFields applies a partial update and reports gorm.ErrRecordNotFound
// when no row matched
func (r *OrderRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
