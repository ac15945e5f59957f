package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/acculynx"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/service"
	"github.com/ridgeline-exteriors/booking-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobSyncService_SyncOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates contact, job and uploads photos", func(t *testing.T) {
		f := newSyncFixture(t)
		profile := testutil.CreateTestProfile(t, f.db)
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address)
		f.putPhoto(t, order.ID, "front.jpg")
		f.putPhoto(t, order.ID, "back.jpg")

		_, err := f.jobs.SyncOrder(ctx, order.ID)
		require.NoError(t, err)

		saved := testutil.ReloadOrder(t, f.db, order.ID)
		assert.Equal(t, domain.SyncStatusSubmitted, saved.SyncStatus)
		assert.Equal(t, 0, saved.SyncAttempts)
		assert.Nil(t, saved.LastSyncError)
		require.NotNil(t, saved.AccuLynxJobID)
		assert.Equal(t, "job-2", *saved.AccuLynxJobID)
		require.NotNil(t, saved.AccuLynxContactID)
		assert.Equal(t, "contact-1", *saved.AccuLynxContactID)

		reloaded, err := f.profiles.GetByUserID(ctx, profile.UserID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.AccuLynxContactID)
		assert.Equal(t, "contact-1", *reloaded.AccuLynxContactID)

		jobs := f.crm.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, service.JobIdempotencyKey(order.ID), jobs[0].IdempotencyKey)
		assert.Equal(t, service.FormatJobNotes(order), jobs[0].Body["notes"])
		location := jobs[0].Body["locationAddress"].(map[string]interface{})
		assert.Equal(t, "123 Canyon Rd", location["street1"])
		assert.Equal(t, "84604", location["zipCode"])

		photos := f.crm.Photos()
		require.Len(t, photos, 2)
		assert.Equal(t, "job-2", photos[0].JobID)

		total, uploaded, err := f.photos.CountByOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, int64(2), uploaded)
	})

	t.Run("reuses an existing contact", func(t *testing.T) {
		f := newSyncFixture(t)
		profile := testutil.CreateTestProfile(t, f.db)
		require.NoError(t, f.profiles.SetAccuLynxContactID(ctx, profile.UserID, "contact-existing"))
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address)

		_, err := f.jobs.SyncOrder(ctx, order.ID)
		require.NoError(t, err)

		assert.Empty(t, f.crm.Contacts())
		jobs := f.crm.Jobs()
		require.Len(t, jobs, 1)
		contact := jobs[0].Body["contact"].(map[string]interface{})
		assert.Equal(t, "contact-existing", contact["id"])
	})

	t.Run("rejected job marks order failed without counting an attempt", func(t *testing.T) {
		f := newSyncFixture(t)
		f.crm.SetJobStatus(http.StatusUnprocessableEntity)
		profile := testutil.CreateTestProfile(t, f.db)
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address)

		_, err := f.jobs.SyncOrder(ctx, order.ID)
		var apiErr *acculynx.APIError
		require.True(t, errors.As(err, &apiErr))

		saved := testutil.ReloadOrder(t, f.db, order.ID)
		assert.Equal(t, domain.SyncStatusFailed, saved.SyncStatus)
		assert.Equal(t, 0, saved.SyncAttempts)
		assert.NotNil(t, saved.LastSyncAt)
		require.NotNil(t, saved.LastSyncError)
		code, msg := domain.ParseSyncError(*saved.LastSyncError)
		assert.Equal(t, domain.SyncErrorRejected, code)
		assert.Contains(t, msg, "job rejected")
		assert.False(t, saved.HasJob())
	})

	t.Run("falls back to the address snapshot when the address was deleted", func(t *testing.T) {
		f := newSyncFixture(t)
		profile := testutil.CreateTestProfile(t, f.db)
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address)
		require.NoError(t, f.db.Delete(&domain.Address{}, "id = ?", address.ID).Error)

		_, err := f.jobs.SyncOrder(ctx, order.ID)
		require.NoError(t, err)

		jobs := f.crm.Jobs()
		require.Len(t, jobs, 1)
		location := jobs[0].Body["locationAddress"].(map[string]interface{})
		assert.Equal(t, "123 Canyon Rd", location["street1"])
		assert.Equal(t, "Provo", location["city"])
	})

	t.Run("missing address fails as not found", func(t *testing.T) {
		f := newSyncFixture(t)
		profile := testutil.CreateTestProfile(t, f.db)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, nil)

		_, err := f.jobs.SyncOrder(ctx, order.ID)
		assert.ErrorIs(t, err, service.ErrAddressNotFound)

		saved := testutil.ReloadOrder(t, f.db, order.ID)
		assert.Equal(t, domain.SyncStatusFailed, saved.SyncStatus)
		code, _ := domain.ParseSyncError(*saved.LastSyncError)
		assert.Equal(t, domain.SyncErrorNotFound, code)
		assert.Empty(t, f.crm.Jobs())
	})

	t.Run("unknown service category falls back to roofing", func(t *testing.T) {
		f := newSyncFixture(t)
		profile := testutil.CreateTestProfile(t, f.db)
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address, testutil.WithServiceCategory("pool cleaning"))

		_, err := f.jobs.SyncOrder(ctx, order.ID)
		require.NoError(t, err)

		jobs := f.crm.Jobs()
		require.Len(t, jobs, 1)
		tradeTypes := jobs[0].Body["tradeTypes"].([]interface{})
		require.Len(t, tradeTypes, 1)
		assert.Equal(t, service.TradeTypeRoofing, tradeTypes[0].(map[string]interface{})["id"])
	})

	t.Run("contact saved remotely but not locally needs manual review", func(t *testing.T) {
		f := newSyncFixture(t, withFailingContactSave())
		profile := testutil.CreateTestProfile(t, f.db)
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address)

		_, err := f.jobs.SyncOrder(ctx, order.ID)
		var contactErr *service.ContactNotPersistedError
		require.True(t, errors.As(err, &contactErr))
		assert.Equal(t, "contact-1", contactErr.ContactID)

		saved := testutil.ReloadOrder(t, f.db, order.ID)
		assert.Equal(t, domain.SyncStatusRequiresReview, saved.SyncStatus)
		assert.Contains(t, *saved.LastSyncError, "contact-1")
		assert.Empty(t, f.crm.Jobs())
	})

	t.Run("job saved remotely but not locally needs manual review", func(t *testing.T) {
		f := newSyncFixture(t, withFailingJobSave())
		profile := testutil.CreateTestProfile(t, f.db)
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address)
		f.putPhoto(t, order.ID, "front.jpg")

		got, err := f.jobs.SyncOrder(ctx, order.ID)
		var jobErr *service.JobNotPersistedError
		require.True(t, errors.As(err, &jobErr))
		assert.Equal(t, "job-2", jobErr.JobID)
		assert.Equal(t, domain.SyncStatusRequiresReview, got.SyncStatus)

		saved := testutil.ReloadOrder(t, f.db, order.ID)
		assert.Equal(t, domain.SyncStatusRequiresReview, saved.SyncStatus)
		assert.False(t, saved.HasJob())
		require.NotNil(t, saved.LastSyncError)
		code, msg := domain.ParseSyncError(*saved.LastSyncError)
		assert.Equal(t, domain.SyncErrorPartialSuccess, code)
		assert.Contains(t, msg, "job-2")
		assert.Empty(t, f.crm.Photos())

		_, err = f.jobs.SyncOrder(ctx, order.ID)
		assert.ErrorIs(t, err, service.ErrRequiresManualReview)
		assert.Len(t, f.crm.Jobs(), 1)
	})

	t.Run("submitted order is left alone", func(t *testing.T) {
		f := newSyncFixture(t)
		profile := testutil.CreateTestProfile(t, f.db)
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address,
			testutil.WithJobID("job-9"),
			testutil.WithSyncState(domain.SyncStatusSubmitted, 0, nil),
		)

		_, err := f.jobs.SyncOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Empty(t, f.crm.Jobs())
		assert.Empty(t, f.crm.Contacts())
	})

	t.Run("order with a job only uploads photos", func(t *testing.T) {
		f := newSyncFixture(t)
		profile := testutil.CreateTestProfile(t, f.db)
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address,
			testutil.WithJobID("job-9"),
			testutil.WithSyncState(domain.SyncStatusPendingPhotoUpload, 0, nil),
		)
		f.putPhoto(t, order.ID, "ridge.jpg")

		_, err := f.jobs.SyncOrder(ctx, order.ID)
		require.NoError(t, err)

		assert.Empty(t, f.crm.Jobs())
		photos := f.crm.Photos()
		require.Len(t, photos, 1)
		assert.Equal(t, "job-9", photos[0].JobID)
		assert.Equal(t, domain.SyncStatusSubmitted, testutil.ReloadOrder(t, f.db, order.ID).SyncStatus)
	})

	t.Run("manual review order is refused", func(t *testing.T) {
		f := newSyncFixture(t)
		profile := testutil.CreateTestProfile(t, f.db)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, nil,
			testutil.WithSyncState(domain.SyncStatusRequiresReview, 3, nil),
		)

		_, err := f.jobs.SyncOrder(ctx, order.ID)
		assert.ErrorIs(t, err, service.ErrRequiresManualReview)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newSyncFixture(t)

		_, err := f.jobs.SyncOrder(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrOrderNotFound)
	})
}

func TestJobIdempotencyKey_Stable(t *testing.T) {
	f := newSyncFixture(t)
	profile := testutil.CreateTestProfile(t, f.db)
	a := testutil.CreateTestOrder(t, f.db, profile.UserID, nil)
	b := testutil.CreateTestOrder(t, f.db, profile.UserID, nil)

	assert.Equal(t, service.JobIdempotencyKey(a.ID), service.JobIdempotencyKey(a.ID))
	assert.NotEqual(t, service.JobIdempotencyKey(a.ID), service.JobIdempotencyKey(b.ID))
}
