package mapper

import (
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
)

// ToOrderSyncDTO converts an Order and its photo counts to OrderSyncDTO
func ToOrderSyncDTO(order *domain.Order, photosTotal, photosUploaded int64) domain.OrderSyncDTO {
	dto := domain.OrderSyncDTO{
		OrderID:        order.ID,
		JobRef:         order.JobRef,
		Status:         order.Status,
		SyncStatus:     order.SyncStatus,
		SyncAttempts:   order.SyncAttempts,
		LastSyncAt:     order.LastSyncAt,
		PhotosTotal:    int(photosTotal),
		PhotosUploaded: int(photosUploaded),
	}

	if order.LastSyncError != nil {
		dto.LastSyncErrorCode, dto.LastSyncError = domain.ParseSyncError(*order.LastSyncError)
	}
	if order.AccuLynxContactID != nil {
		dto.AccuLynxContactID = *order.AccuLynxContactID
	}
	if order.AccuLynxJobID != nil {
		dto.AccuLynxJobID = *order.AccuLynxJobID
	}
	if order.AccuLynxMilestone != nil {
		dto.AccuLynxMilestone = *order.AccuLynxMilestone
	}

	return dto
}
