package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/acculynx"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/metrics"
	"github.com/ridgeline-exteriors/booking-api/internal/repository"
	"github.com/ridgeline-exteriors/booking-api/internal/storage"
	"go.uber.org/zap"
)

// PhotoResult is the outcome of pushing one photo
type PhotoResult struct {
	PhotoID  uuid.UUID
	FileName string
	FileID   string
	Err      error
}

// PhotoUploadReport collects the per-photo results of one upload batch
type PhotoUploadReport struct {
	Results []PhotoResult
}

func (r *PhotoUploadReport) Attempted() int {
	return len(r.Results)
}

func (r *PhotoUploadReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

func (r *PhotoUploadReport) Failures() []PhotoResult {
	var failed []PhotoResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// FirstError returns the first per-photo error, or nil
func (r *PhotoUploadReport) FirstError() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// SyncStatus reduces the batch into the order's sync status. A partial batch
// keeps the order in failed; since the job id is set, retries resume with
// the remaining photos rather than job creation.
func (r *PhotoUploadReport) SyncStatus() domain.SyncStatus {
	switch succeeded := r.Succeeded(); {
	case succeeded == r.Attempted():
		return domain.SyncStatusSubmitted
	case succeeded > 0:
		return domain.SyncStatusFailed
	default:
		return domain.SyncStatusPhotoUploadFailed
	}
}

// Summary renders the human-readable batch result stored in last_sync_error
func (r *PhotoUploadReport) Summary() string {
	failures := r.Failures()
	if len(failures) == 0 {
		return fmt.Sprintf("Uploaded %d/%d photos", r.Succeeded(), r.Attempted())
	}

	msgs := make([]string, 0, len(failures))
	for _, f := range failures {
		msgs = append(msgs, fmt.Sprintf("%s: %v", f.FileName, f.Err))
	}
	errs := strings.Join(msgs, "; ")

	if r.Succeeded() > 0 {
		return fmt.Sprintf("Partial upload: %d/%d succeeded. Errors: %s", r.Succeeded(), r.Attempted(), errs)
	}
	return fmt.Sprintf("All %d photo uploads failed. Errors: %s", r.Attempted(), errs)
}

// Err returns a *PhotoUploadError when any photo failed
func (r *PhotoUploadReport) Err() error {
	if len(r.Failures()) == 0 {
		return nil
	}
	return &PhotoUploadError{Report: r}
}

// PhotoUploadService pushes an order's pending photos to its AccuLynx job
type PhotoUploadService struct {
	orders  orderStore
	photos  photoStore
	store   storage.Storage
	crm     crmClient
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewPhotoUploadService(orders orderStore, photos photoStore, store storage.Storage, crm crmClient, m *metrics.Metrics, logger *zap.Logger) *PhotoUploadService {
	return &PhotoUploadService{
		orders:  orders,
		photos:  photos,
		store:   store,
		crm:     crm,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// UploadPending uploads the order's not-yet-uploaded photos and records the
// aggregate result on the order without touching sync_attempts
func (s *PhotoUploadService) UploadPending(ctx context.Context, order *domain.Order) (*PhotoUploadReport, error) {
	report, err := s.upload(ctx, order)
	if err != nil {
		if recErr := s.orders.UpdateSyncState(ctx, order.ID, repository.SyncState{
			SyncStatus:    domain.SyncStatusPhotoUploadFailed,
			LastSyncAt:    s.now().UTC(),
			LastSyncError: syncErrorText(err),
		}); recErr != nil {
			s.logger.Error("failed to record photo upload failure", zap.String("order_id", order.ID.String()), zap.Error(recErr))
		}
		return nil, err
	}

	state := repository.SyncState{
		SyncStatus: report.SyncStatus(),
		LastSyncAt: s.now().UTC(),
	}
	batchErr := report.Err()
	if batchErr != nil {
		state.LastSyncError = syncErrorText(batchErr)
	}
	if err := s.orders.UpdateSyncState(ctx, order.ID, state); err != nil {
		return report, fmt.Errorf("failed to record photo upload result: %w", err)
	}

	s.metrics.SyncAttempt("photo_upload", string(state.SyncStatus))
	return report, batchErr
}

// upload pushes every pending photo, continuing past individual failures.
// Only a missing job or a failed photo query aborts the batch.
func (s *PhotoUploadService) upload(ctx context.Context, order *domain.Order) (*PhotoUploadReport, error) {
	if !order.HasJob() {
		return nil, ErrNoAccuLynxJob
	}
	jobID := *order.AccuLynxJobID

	pending, err := s.photos.ListPendingUpload(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending photos: %w", err)
	}

	report := &PhotoUploadReport{Results: make([]PhotoResult, 0, len(pending))}
	for i := range pending {
		result := s.uploadOne(ctx, jobID, &pending[i])
		s.metrics.PhotoUpload(result.Err == nil)
		report.Results = append(report.Results, result)
	}

	s.logger.Info("Photo upload batch finished",
		zap.String("order_id", order.ID.String()),
		zap.String("job_ref", order.JobRef),
		zap.Int("attempted", report.Attempted()),
		zap.Int("succeeded", report.Succeeded()),
	)
	return report, nil
}

func (s *PhotoUploadService) uploadOne(ctx context.Context, jobID string, photo *domain.Photo) PhotoResult {
	fileName := path.Base(photo.StoragePath)
	if photo.FileName != nil && strings.TrimSpace(*photo.FileName) != "" {
		fileName = strings.TrimSpace(*photo.FileName)
	}
	result := PhotoResult{PhotoID: photo.ID, FileName: fileName}

	data, err := storage.ReadObject(ctx, s.store, photo.StoragePath, storage.MaxPhotoBytes)
	if err != nil {
		result.Err = fmt.Errorf("download failed: %w", err)
		s.logger.Warn("Photo download failed", zap.String("photo_id", photo.ID.String()), zap.Error(err))
		return result
	}

	description := fileName
	if photo.Caption != nil && strings.TrimSpace(*photo.Caption) != "" {
		description = strings.TrimSpace(*photo.Caption)
	}

	uploaded, err := s.crm.UploadPhoto(ctx, acculynx.UploadPhotoRequest{
		JobID:       jobID,
		FileName:    fileName,
		Description: description,
		Data:        data,
	})
	if err != nil {
		result.Err = err
		s.logger.Warn("Photo upload failed", zap.String("photo_id", photo.ID.String()), zap.Error(err))
		return result
	}

	if err := s.photos.MarkUploaded(ctx, photo.ID, uploaded.ID); err != nil {
		// the next retry will upload this photo again
		result.Err = fmt.Errorf("uploaded as %s but flag not saved: %w", uploaded.ID, err)
		s.logger.Error("Photo uploaded but not marked", zap.String("photo_id", photo.ID.String()), zap.Error(err))
		return result
	}

	result.FileID = uploaded.ID
	return result
}
