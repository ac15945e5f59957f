package service

import (
	"context"
	"time"

	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/logger"
	"github.com/ridgeline-exteriors/booking-api/internal/metrics"
	"github.com/ridgeline-exteriors/booking-api/internal/repository"
	"go.uber.org/zap"
)

// backoffSchedule is indexed by sync_attempts and clamped to its last entry
var backoffSchedule = []time.Duration{
	5 * time.Minute,
	15 * time.Minute,
	45 * time.Minute,
}

const (
	retryPathJob   = "job_creation"
	retryPathPhoto = "photo_upload"
)

// Backoff returns how long to wait after the last attempt before retrying
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}
	return backoffSchedule[attempts]
}

// SyncRetryService re-drives orders left in a failed sync state
type SyncRetryService struct {
	orders  orderStore
	jobs    *JobSyncService
	photos  *PhotoUploadService
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewSyncRetryService(orders orderStore, jobs *JobSyncService, photos *PhotoUploadService, m *metrics.Metrics, logger *zap.Logger) *SyncRetryService {
	return &SyncRetryService{
		orders:  orders,
		jobs:    jobs,
		photos:  photos,
		metrics: m,
		logger:  logger,
	}
}

// RunSweep processes every retry candidate once, sequentially. One order's
// failure never stops the sweep; only a failed candidate query is returned.
func (s *SyncRetryService) RunSweep(ctx context.Context, now time.Time) (*domain.RetrySweepDTO, error) {
	now = now.UTC()
	start := time.Now()

	candidates, err := s.orders.ListRetryCandidates(ctx, domain.MaxSyncAttempts)
	if err != nil {
		return nil, err
	}

	sweep := &domain.RetrySweepDTO{
		StartedAt:  now,
		Candidates: len(candidates),
		Results:    make([]domain.RetryResultDTO, 0, len(candidates)),
	}

	for i := range candidates {
		if ctx.Err() != nil {
			s.logger.Warn("Retry sweep interrupted", zap.Int("processed", i), zap.Error(ctx.Err()))
			break
		}

		result := s.retryOrder(ctx, &candidates[i], now)
		sweep.Results = append(sweep.Results, result)
		s.metrics.RetryOutcome(string(result.Outcome))

		switch result.Outcome {
		case domain.RetryOutcomeSuccess:
			sweep.Succeeded++
		case domain.RetryOutcomeSkipped:
			sweep.Skipped++
		case domain.RetryOutcomeRetryScheduled:
			sweep.RetryScheduled++
		case domain.RetryOutcomeManualReview:
			sweep.ManualReview++
		}
	}

	s.metrics.SweepDuration(time.Since(start).Seconds())
	s.logger.Info("Retry sweep finished",
		zap.Int("candidates", sweep.Candidates),
		zap.Int("succeeded", sweep.Succeeded),
		zap.Int("skipped", sweep.Skipped),
		zap.Int("retry_scheduled", sweep.RetryScheduled),
		zap.Int("manual_review", sweep.ManualReview),
	)
	return sweep, nil
}

func (s *SyncRetryService) retryOrder(ctx context.Context, order *domain.Order, now time.Time) domain.RetryResultDTO {
	result := domain.RetryResultDTO{
		OrderID:  order.ID,
		JobRef:   order.JobRef,
		Attempts: order.SyncAttempts,
	}

	if order.LastSyncAt != nil {
		dueAt := order.LastSyncAt.Add(Backoff(order.SyncAttempts))
		if now.Before(dueAt) {
			result.Outcome = domain.RetryOutcomeSkipped
			result.WaitSeconds = int64(dueAt.Sub(now).Round(time.Second) / time.Second)
			return result
		}
	}

	attempts := order.SyncAttempts + 1
	result.Attempts = attempts

	log := logger.WithOrder(s.logger, order.ID.String(), order.JobRef).With(zap.Int("attempts", attempts))

	var (
		resume domain.SyncStatus
		err    error
	)
	if order.HasJob() {
		result.Path = retryPathPhoto
		resume, err = s.retryPhotos(ctx, order)
	} else {
		result.Path = retryPathJob
		resume, err = s.retryJob(ctx, order, now, attempts)
	}

	if err == nil {
		if recErr := s.orders.UpdateSyncState(ctx, order.ID, repository.SyncState{
			SyncStatus:   domain.SyncStatusSubmitted,
			SyncAttempts: &attempts,
			LastSyncAt:   now,
		}); recErr != nil {
			log.Error("failed to record retry success", zap.Error(recErr))
			result.Outcome = domain.RetryOutcomeRetryScheduled
			result.Error = recErr.Error()
			return result
		}
		log.Info("Retry succeeded", zap.String("path", result.Path))
		result.Outcome = domain.RetryOutcomeSuccess
		return result
	}

	status := resume
	if attempts >= domain.MaxSyncAttempts || needsManualReview(err) {
		status = domain.SyncStatusRequiresReview
	}

	if recErr := s.orders.UpdateSyncState(ctx, order.ID, repository.SyncState{
		SyncStatus:    status,
		SyncAttempts:  &attempts,
		LastSyncAt:    now,
		LastSyncError: syncErrorText(err),
	}); recErr != nil {
		log.Error("failed to record retry failure", zap.Error(recErr))
	}

	result.Error = err.Error()
	if status == domain.SyncStatusRequiresReview {
		log.Warn("Retry failed, order needs manual review", zap.String("path", result.Path), zap.Error(err))
		result.Outcome = domain.RetryOutcomeManualReview
	} else {
		log.Warn("Retry failed, will retry", zap.String("path", result.Path), zap.Error(err))
		result.Outcome = domain.RetryOutcomeRetryScheduled
	}
	return result
}

// retryJob re-runs job creation and, when it succeeds, the photo upload.
// It returns the failed status the order should resume from.
func (s *SyncRetryService) retryJob(ctx context.Context, order *domain.Order, now time.Time, attempts int) (domain.SyncStatus, error) {
	job, err := s.jobs.createJob(ctx, order)
	if err != nil {
		return domain.SyncStatusFailed, err
	}
	if err := s.jobs.recordJob(ctx, order, job, now, &attempts); err != nil {
		return domain.SyncStatusFailed, err
	}

	return s.retryPhotos(ctx, order)
}

func (s *SyncRetryService) retryPhotos(ctx context.Context, order *domain.Order) (domain.SyncStatus, error) {
	report, err := s.photos.upload(ctx, order)
	if err != nil {
		return domain.SyncStatusPhotoUploadFailed, err
	}
	return report.SyncStatus(), report.Err()
}
