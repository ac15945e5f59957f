package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/acculynx"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/storage"
)

var (
	// ErrOrderNotFound is returned when the order does not exist locally
	ErrOrderNotFound = errors.New("order not found")

	// ErrProfileNotFound is returned when the order owner has no profile
	ErrProfileNotFound = errors.New("profile not found")

	// ErrIncompleteProfile is returned when a profile lacks the fields a contact needs
	ErrIncompleteProfile = errors.New("profile needs a name and a phone number or email")

	// ErrAddressNotFound is returned when neither a live address nor a snapshot exists
	ErrAddressNotFound = errors.New("order has no resolvable address")

	// ErrNoAccuLynxJob is returned when photos are pushed before the job exists
	ErrNoAccuLynxJob = errors.New("order has no AccuLynx job")

	// ErrRequiresManualReview is returned when automatic sync has been given up
	ErrRequiresManualReview = errors.New("order requires manual review")

	// ErrInvalidWebhookPayload is returned when the webhook body is not valid JSON
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")

	// ErrMissingWebhookFields is returned when job_id or milestone_type is absent
	ErrMissingWebhookFields = errors.New("job_id and milestone_type are required")

	// ErrWebhookOrderNotFound is returned when no order references the webhook's job
	ErrWebhookOrderNotFound = errors.New("no order for job")
)

// ContactNotPersistedError means the contact was created in AccuLynx but its
// id could not be saved on the profile. Creating the contact again would
// duplicate it, so the order needs manual reconciliation.
type ContactNotPersistedError struct {
	UserID    uuid.UUID
	ContactID string
	Err       error
}

func (e *ContactNotPersistedError) Error() string {
	return fmt.Sprintf("AccuLynx contact %s created but not saved on profile for user %s: %v", e.ContactID, e.UserID, e.Err)
}

func (e *ContactNotPersistedError) Unwrap() error {
	return e.Err
}

// JobNotPersistedError means the job was created in AccuLynx but its id could
// not be saved on the order. Another creation would duplicate the job, so the
// order needs manual reconciliation.
type JobNotPersistedError struct {
	OrderID uuid.UUID
	JobID   string
	Err     error
}

func (e *JobNotPersistedError) Error() string {
	return fmt.Sprintf("AccuLynx job %s created but not saved on order %s: %v", e.JobID, e.OrderID, e.Err)
}

func (e *JobNotPersistedError) Unwrap() error {
	return e.Err
}

// needsManualReview reports whether err leaves a remote record the order
// does not know about
func needsManualReview(err error) bool {
	var (
		contactErr *ContactNotPersistedError
		jobErr     *JobNotPersistedError
	)
	return errors.As(err, &contactErr) || errors.As(err, &jobErr)
}

// PhotoUploadError is returned when at least one photo in a batch failed
type PhotoUploadError struct {
	Report *PhotoUploadReport
}

func (e *PhotoUploadError) Error() string {
	return e.Report.Summary()
}

// Partial reports whether some photos succeeded
func (e *PhotoUploadError) Partial() bool {
	return e.Report.Succeeded() > 0
}

// ClassifySyncError maps an error onto the code stored with last_sync_error
func ClassifySyncError(err error) domain.SyncErrorCode {
	var (
		transportErr *acculynx.TransportError
		apiErr       *acculynx.APIError
		invalidErr   *acculynx.InvalidResponseError
		contactErr   *ContactNotPersistedError
		jobErr       *JobNotPersistedError
		photoErr     *PhotoUploadError
	)

	switch {
	case errors.As(err, &contactErr), errors.As(err, &jobErr):
		return domain.SyncErrorPartialSuccess
	case errors.As(err, &photoErr):
		if photoErr.Partial() {
			return domain.SyncErrorPartialSuccess
		}
		return ClassifySyncError(photoErr.Report.FirstError())
	case errors.Is(err, acculynx.ErrMissingCredentials):
		return domain.SyncErrorConfig
	case errors.As(err, &transportErr):
		return domain.SyncErrorNetwork
	case errors.As(err, &apiErr):
		return domain.SyncErrorRejected
	case errors.As(err, &invalidErr):
		return domain.SyncErrorInvalidResponse
	case errors.Is(err, ErrIncompleteProfile):
		return domain.SyncErrorRejected
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrAddressNotFound),
		errors.Is(err, ErrNoAccuLynxJob),
		errors.Is(err, storage.ErrNotFound):
		return domain.SyncErrorNotFound
	default:
		return domain.SyncErrorInternal
	}
}

// syncErrorText renders err for last_sync_error
func syncErrorText(err error) *string {
	text := domain.FormatSyncError(ClassifySyncError(err), err.Error())
	return &text
}
