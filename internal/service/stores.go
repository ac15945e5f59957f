package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/acculynx"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/repository"
)

// The sync services depend on these narrow views of the repositories and
// the AccuLynx client; *repository.XRepository and *acculynx.Client satisfy them.

type orderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByAccuLynxJobID(ctx context.Context, jobID string) (*domain.Order, error)
	ListRetryCandidates(ctx context.Context, maxAttempts int) ([]domain.Order, error)
	UpdateSyncState(ctx context.Context, id uuid.UUID, state repository.SyncState) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

type photoStore interface {
	ListPendingUpload(ctx context.Context, orderID uuid.UUID) ([]domain.Photo, error)
	MarkUploaded(ctx context.Context, id uuid.UUID, fileID string) error
	CountByOrder(ctx context.Context, orderID uuid.UUID) (total int64, uploaded int64, err error)
}

type profileStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	SetAccuLynxContactID(ctx context.Context, userID uuid.UUID, contactID string) error
}

type addressStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Address, error)
}

type webhookLogStore interface {
	Create(ctx context.Context, log *domain.WebhookLog) error
}

type notificationStore interface {
	Create(ctx context.Context, notification *domain.Notification) error
}

type crmClient interface {
	CreateContact(ctx context.Context, req acculynx.CreateContactRequest) (*acculynx.ContactCreated, error)
	CreateJob(ctx context.Context, req acculynx.CreateJobRequest, idempotencyKey string) (*acculynx.JobCreated, error)
	UploadPhoto(ctx context.Context, req acculynx.UploadPhotoRequest) (*acculynx.PhotoUploaded, error)
	NewAddress(street, city, zip string) acculynx.Address
	LeadSource() *acculynx.Ref
}

var (
	_ orderStore        = (*repository.OrderRepository)(nil)
	_ photoStore        = (*repository.PhotoRepository)(nil)
	_ profileStore      = (*repository.ProfileRepository)(nil)
	_ addressStore      = (*repository.AddressRepository)(nil)
	_ webhookLogStore   = (*repository.WebhookLogRepository)(nil)
	_ notificationStore = (*repository.NotificationRepository)(nil)
	_ crmClient         = (*acculynx.Client)(nil)
)
