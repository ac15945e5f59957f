package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/repository"
	"github.com/ridgeline-exteriors/booking-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOrderRepository_ListRetryCandidates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	profile := testutil.CreateTestProfile(t, db)
	address := testutil.CreateTestAddress(t, db, profile.UserID)

	failed := testutil.CreateTestOrder(t, db, profile.UserID, address, testutil.WithSyncState(domain.SyncStatusFailed, 0, nil))
	photoFailed := testutil.CreateTestOrder(t, db, profile.UserID, address, testutil.WithSyncState(domain.SyncStatusPhotoUploadFailed, 2, nil))
	testutil.CreateTestOrder(t, db, profile.UserID, address, testutil.WithSyncState(domain.SyncStatusFailed, 3, nil))
	testutil.CreateTestOrder(t, db, profile.UserID, address, testutil.WithSyncState(domain.SyncStatusSubmitted, 0, nil))
	testutil.CreateTestOrder(t, db, profile.UserID, address, testutil.WithSyncState(domain.SyncStatusRequiresReview, 3, nil))
	testutil.CreateTestOrder(t, db, profile.UserID, address)

	orders, err := repo.ListRetryCandidates(ctx, domain.MaxSyncAttempts)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{failed.ID, photoFailed.ID}, ids)
}

func TestOrderRepository_UpdateSyncState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	profile := testutil.CreateTestProfile(t, db)
	errText := "[network_error] timeout"
	order := testutil.CreateTestOrder(t, db, profile.UserID, nil, func(o *domain.Order) {
		o.SyncStatus = domain.SyncStatusFailed
		o.LastSyncError = &errText
	})

	attempts := 1
	jobID := "job-123"
	contactID := "contact-9"
	now := time.Now().UTC().Truncate(time.Second)

	err := repo.UpdateSyncState(ctx, order.ID, repository.SyncState{
		SyncStatus:   domain.SyncStatusPendingPhotoUpload,
		SyncAttempts: &attempts,
		LastSyncAt:   now,
		ContactID:    &contactID,
		JobID:        &jobID,
	})
	require.NoError(t, err)

	reloaded := testutil.ReloadOrder(t, db, order.ID)
	assert.Equal(t, domain.SyncStatusPendingPhotoUpload, reloaded.SyncStatus)
	assert.Equal(t, 1, reloaded.SyncAttempts)
	assert.Nil(t, reloaded.LastSyncError)
	require.NotNil(t, reloaded.AccuLynxJobID)
	assert.Equal(t, jobID, *reloaded.AccuLynxJobID)
	assert.Equal(t, contactID, *reloaded.AccuLynxContactID)
	require.NotNil(t, reloaded.LastSyncAt)
	assert.WithinDuration(t, now, *reloaded.LastSyncAt, time.Second)
}

func TestOrderRepository_UpdateFields_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewOrderRepository(db)

	err := repo.UpdateFields(context.Background(), uuid.New(), map[string]interface{}{"status": domain.OrderStatusScheduled})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestOrderRepository_GetByAccuLynxJobID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	profile := testutil.CreateTestProfile(t, db)
	order := testutil.CreateTestOrder(t, db, profile.UserID, nil, testutil.WithJobID("job-777"))

	found, err := repo.GetByAccuLynxJobID(ctx, "job-777")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.GetByAccuLynxJobID(ctx, "job-missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepository_AddressSnapshotRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewOrderRepository(db)

	profile := testutil.CreateTestProfile(t, db)
	address := testutil.CreateTestAddress(t, db, profile.UserID)
	order := testutil.CreateTestOrder(t, db, profile.UserID, address)

	found, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, found.AddressSnapshot)
	assert.Equal(t, address.Snapshot(), *found.AddressSnapshot)
}

func TestPhotoRepository_PendingAndMarkUploaded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPhotoRepository(db)
	ctx := context.Background()

	profile := testutil.CreateTestProfile(t, db)
	order := testutil.CreateTestOrder(t, db, profile.UserID, nil)
	pending := testutil.CreateTestPhoto(t, db, order.ID, "orders/a.jpg", false)
	testutil.CreateTestPhoto(t, db, order.ID, "orders/b.jpg", true)

	photos, err := repo.ListPendingUpload(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, pending.ID, photos[0].ID)

	require.NoError(t, repo.MarkUploaded(ctx, pending.ID, "file-1"))

	photos, err = repo.ListPendingUpload(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, photos)

	total, uploaded, err := repo.CountByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(2), uploaded)
}

func TestProfileRepository_SetAccuLynxContactID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewProfileRepository(db)
	ctx := context.Background()

	profile := testutil.CreateTestProfile(t, db)
	require.NoError(t, repo.SetAccuLynxContactID(ctx, profile.UserID, "contact-1"))

	found, err := repo.GetByUserID(ctx, profile.UserID)
	require.NoError(t, err)
	require.NotNil(t, found.AccuLynxContactID)
	assert.Equal(t, "contact-1", *found.AccuLynxContactID)

	err = repo.SetAccuLynxContactID(ctx, uuid.New(), "contact-2")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
