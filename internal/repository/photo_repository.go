package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"gorm.io/gorm"
)

type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// ListPendingUpload returns the order's photos not yet pushed to AccuLynx
func (r *PhotoRepository) ListPendingUpload(ctx context.Context, orderID uuid.UUID) ([]domain.Photo, error) {
	var photos []domain.Photo
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND uploaded_to_acculynx = ?", orderID, false).
		Order("created_at ASC").
		Find(&photos).Error
	return photos, err
}

// MarkUploaded flags a photo as uploaded and stores the AccuLynx file id
func (r *PhotoRepository) MarkUploaded(ctx context.Context, id uuid.UUID, fileID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Photo{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"uploaded_to_acculynx": true,
			"acculynx_file_id":     fileID,
		}).Error
}

// CountByOrder returns the total and uploaded photo counts for an order
func (r *PhotoRepository) CountByOrder(ctx context.Context, orderID uuid.UUID) (total int64, uploaded int64, err error) {
	base := r.db.WithContext(ctx).Model(&domain.Photo{}).Where("order_id = ?", orderID)
	if err = base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = base.Session(&gorm.Session{}).Where("uploaded_to_acculynx = ?", true).Count(&uploaded).Error
	return total, uploaded, err
}
