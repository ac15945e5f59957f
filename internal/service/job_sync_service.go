package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/acculynx"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/logger"
	"github.com/ridgeline-exteriors/booking-api/internal/metrics"
	"github.com/ridgeline-exteriors/booking-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// jobIdempotencyNamespace scopes the Idempotency-Key sent with job creation
var jobIdempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://ridgeline-exteriors.com/acculynx/jobs"))

// JobIdempotencyKey derives the stable Idempotency-Key for an order's job
func JobIdempotencyKey(orderID uuid.UUID) string {
	return uuid.NewSHA1(jobIdempotencyNamespace, []byte(orderID.String())).String()
}

// createdJob is what a successful job creation leaves behind
type createdJob struct {
	JobID     string
	ContactID string
}

// JobSyncService creates the AccuLynx job for an order and chains the photo upload
type JobSyncService struct {
	orders    orderStore
	addresses addressStore
	contacts  *ContactService
	crm       crmClient
	photos    *PhotoUploadService
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewJobSyncService(
	orders orderStore,
	addresses addressStore,
	contacts *ContactService,
	crm crmClient,
	photos *PhotoUploadService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *JobSyncService {
	return &JobSyncService{
		orders:    orders,
		addresses: addresses,
		contacts:  contacts,
		crm:       crm,
		photos:    photos,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// SyncOrder runs the first synchronous sync attempt for an order. Failures are
// recorded on the order (sync_attempts is left alone) and returned; only
// ErrOrderNotFound means nothing was recorded.
func (s *JobSyncService) SyncOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	log := logger.WithOrder(s.logger, order.ID.String(), order.JobRef)

	switch {
	case order.SyncStatus == domain.SyncStatusSubmitted:
		return order, nil
	case order.SyncStatus == domain.SyncStatusRequiresReview:
		return order, ErrRequiresManualReview
	case order.SyncStatus == domain.SyncStatusFailed, order.SyncStatus == domain.SyncStatusPhotoUploadFailed:
		// failed orders are re-driven by the retry sweep
		return order, nil
	case order.HasJob():
		// job creation is never repeated; only photos may still be pending
		_, err := s.photos.UploadPending(ctx, order)
		return order, err
	}

	job, err := s.createJob(ctx, order)
	if err == nil {
		err = s.recordJob(ctx, order, job, s.now().UTC(), nil)
	}
	if err != nil {
		status := domain.SyncStatusFailed
		if needsManualReview(err) {
			status = domain.SyncStatusRequiresReview
		}
		log.Warn("AccuLynx job creation failed", zap.String("sync_status", string(status)), zap.Error(err))

		if recErr := s.orders.UpdateSyncState(ctx, order.ID, repository.SyncState{
			SyncStatus:    status,
			LastSyncAt:    s.now().UTC(),
			LastSyncError: syncErrorText(err),
		}); recErr != nil {
			log.Error("failed to record sync failure", zap.Error(recErr))
		}
		order.SyncStatus = status
		s.metrics.SyncAttempt("initial", string(status))
		return order, err
	}

	log.Info("AccuLynx job created", zap.String("acculynx_job_id", job.JobID))
	s.metrics.SyncAttempt("initial", string(domain.SyncStatusPendingPhotoUpload))

	_, err = s.photos.UploadPending(ctx, order)
	return order, err
}

// recordJob saves a freshly created job on the order and moves it to
// pending_photo_upload. A failed save returns *JobNotPersistedError.
func (s *JobSyncService) recordJob(ctx context.Context, order *domain.Order, job *createdJob, at time.Time, attempts *int) error {
	if err := s.orders.UpdateSyncState(ctx, order.ID, repository.SyncState{
		SyncStatus:   domain.SyncStatusPendingPhotoUpload,
		SyncAttempts: attempts,
		LastSyncAt:   at,
		ContactID:    &job.ContactID,
		JobID:        &job.JobID,
	}); err != nil {
		return &JobNotPersistedError{OrderID: order.ID, JobID: job.JobID, Err: err}
	}
	order.AccuLynxJobID = &job.JobID
	order.AccuLynxContactID = &job.ContactID
	order.SyncStatus = domain.SyncStatusPendingPhotoUpload
	return nil
}

// createJob creates the AccuLynx job without recording anything on the order
func (s *JobSyncService) createJob(ctx context.Context, order *domain.Order) (*createdJob, error) {
	contactID, err := s.contacts.EnsureContact(ctx, order.UserID)
	if err != nil {
		return nil, err
	}

	address, err := s.resolveAddress(ctx, order)
	if err != nil {
		return nil, err
	}

	req := acculynx.CreateJobRequest{
		Contact:         acculynx.Ref{ID: contactID},
		LeadSource:      s.crm.LeadSource(),
		LocationAddress: s.crm.NewAddress(address.Street, address.City, address.Zip),
		TradeTypes:      []acculynx.Ref{{ID: TradeTypeFor(order.ServiceCategory)}},
		Notes:           FormatJobNotes(order),
	}

	created, err := s.crm.CreateJob(ctx, req, JobIdempotencyKey(order.ID))
	if err != nil {
		return nil, err
	}
	return &createdJob{JobID: created.ID, ContactID: contactID}, nil
}

// resolveAddress prefers the live address row and falls back to the booking snapshot
func (s *JobSyncService) resolveAddress(ctx context.Context, order *domain.Order) (domain.AddressSnapshot, error) {
	if order.AddressID != nil {
		address, err := s.addresses.GetByID(ctx, *order.AddressID)
		switch {
		case err == nil:
			return address.Snapshot(), nil
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			if order.AddressSnapshot == nil {
				return domain.AddressSnapshot{}, fmt.Errorf("failed to load address: %w", err)
			}
			s.logger.Warn("address lookup failed, using snapshot",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
		}
	}

	if order.AddressSnapshot != nil && order.AddressSnapshot.Street != "" {
		return *order.AddressSnapshot, nil
	}
	return domain.AddressSnapshot{}, ErrAddressNotFound
}
