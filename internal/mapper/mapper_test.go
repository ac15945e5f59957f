package mapper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestToOrderSyncDTO(t *testing.T) {
	lastSync := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	stored := domain.FormatSyncError(domain.SyncErrorNetwork, "acculynx create_job: transport error: timeout")
	jobID := "job-42"
	milestone := "APPROVED"

	order := &domain.Order{
		BaseModel:         domain.BaseModel{ID: uuid.New()},
		JobRef:            "SR-1042",
		Status:            domain.OrderStatusInProgress,
		SyncStatus:        domain.SyncStatusFailed,
		SyncAttempts:      2,
		LastSyncAt:        &lastSync,
		LastSyncError:     &stored,
		AccuLynxJobID:     &jobID,
		AccuLynxMilestone: &milestone,
	}

	dto := ToOrderSyncDTO(order, 3, 1)

	assert.Equal(t, order.ID, dto.OrderID)
	assert.Equal(t, "SR-1042", dto.JobRef)
	assert.Equal(t, domain.SyncErrorNetwork, dto.LastSyncErrorCode)
	assert.Equal(t, "acculynx create_job: transport error: timeout", dto.LastSyncError)
	assert.Equal(t, "job-42", dto.AccuLynxJobID)
	assert.Empty(t, dto.AccuLynxContactID)
	assert.Equal(t, "APPROVED", dto.AccuLynxMilestone)
	assert.Equal(t, 3, dto.PhotosTotal)
	assert.Equal(t, 1, dto.PhotosUploaded)
	assert.Equal(t, &lastSync, dto.LastSyncAt)
}

func TestToOrderSyncDTO_NoError(t *testing.T) {
	dto := ToOrderSyncDTO(&domain.Order{JobRef: "SR-1"}, 0, 0)

	assert.Empty(t, dto.LastSyncError)
	assert.Empty(t, dto.LastSyncErrorCode)
	assert.Nil(t, dto.LastSyncAt)
}
