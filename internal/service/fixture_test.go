package service_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/acculynx"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/metrics"
	"github.com/ridgeline-exteriors/booking-api/internal/repository"
	"github.com/ridgeline-exteriors/booking-api/internal/service"
	"github.com/ridgeline-exteriors/booking-api/internal/storage"
	"github.com/ridgeline-exteriors/booking-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// countingStorage records how often each object is downloaded
type countingStorage struct {
	storage.Storage

	mu        sync.Mutex
	downloads map[string]int
}

func (s *countingStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	s.mu.Lock()
	s.downloads[storagePath]++
	s.mu.Unlock()
	return s.Storage.Download(ctx, storagePath)
}

func (s *countingStorage) count(storagePath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads[storagePath]
}

type syncFixture struct {
	db       *gorm.DB
	crm      *testutil.FakeAccuLynx
	store    *countingStorage
	client   *acculynx.Client
	metrics  *metrics.Metrics
	orders   *repository.OrderRepository
	photos   *repository.PhotoRepository
	profiles *repository.ProfileRepository
	contacts *service.ContactService
	uploads  *service.PhotoUploadService
	jobs     *service.JobSyncService
	retry    *service.SyncRetryService
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	failContactSave bool
	failJobSave     bool
}

// withFailingContactSave makes saving the AccuLynx contact id on the profile fail
func withFailingContactSave() fixtureOption {
	return func(d *fixtureDeps) { d.failContactSave = true }
}

// withFailingJobSave makes saving the AccuLynx job id on the order fail
func withFailingJobSave() fixtureOption {
	return func(d *fixtureDeps) { d.failJobSave = true }
}

func newSyncFixture(t *testing.T, opts ...fixtureOption) *syncFixture {
	t.Helper()

	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)
	crm := testutil.NewFakeAccuLynx(t)

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := &countingStorage{Storage: local, downloads: make(map[string]int)}

	client := acculynx.NewClient(acculynx.Config{
		BaseURL:      crm.URL(),
		APIKey:       crm.APIKey,
		LeadSourceID: "lead-source-web",
		StateID:      47,
		CountryID:    1,
		Timeout:      5 * time.Second,
	}, logger)

	m := metrics.New()
	orders := repository.NewOrderRepository(db)
	photos := repository.NewPhotoRepository(db)
	profiles := repository.NewProfileRepository(db)
	addresses := repository.NewAddressRepository(db)

	deps := &fixtureDeps{}
	for _, opt := range opts {
		opt(deps)
	}

	contacts := service.NewContactService(profiles, client, logger)
	if deps.failContactSave {
		contacts = service.NewContactService(failingProfiles{profiles}, client, logger)
	}
	var syncOrders orderRepo = orders
	if deps.failJobSave {
		syncOrders = failingJobOrders{orders}
	}
	uploads := service.NewPhotoUploadService(syncOrders, photos, store, client, m, logger)
	jobs := service.NewJobSyncService(syncOrders, addresses, contacts, client, uploads, m, logger)
	retry := service.NewSyncRetryService(syncOrders, jobs, uploads, m, logger)

	return &syncFixture{
		db:       db,
		crm:      crm,
		store:    store,
		client:   client,
		metrics:  m,
		orders:   orders,
		photos:   photos,
		profiles: profiles,
		contacts: contacts,
		uploads:  uploads,
		jobs:     jobs,
		retry:    retry,
	}
}

// putPhoto stores an object and creates its pending photo row
func (f *syncFixture) putPhoto(t *testing.T, orderID uuid.UUID, name string) *domain.Photo {
	t.Helper()
	_, err := f.store.Upload(context.Background(), name, "image/jpeg", bytes.NewReader([]byte("jpeg:"+name)))
	require.NoError(t, err)
	return testutil.CreateTestPhoto(t, f.db, orderID, name, false)
}

// failingProfiles accepts reads but cannot save the contact id
type failingProfiles struct {
	*repository.ProfileRepository
}

func (p failingProfiles) SetAccuLynxContactID(ctx context.Context, userID uuid.UUID, contactID string) error {
	return gorm.ErrInvalidDB
}

// orderRepo is what the sync services need from the order repository
type orderRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByAccuLynxJobID(ctx context.Context, jobID string) (*domain.Order, error)
	ListRetryCandidates(ctx context.Context, maxAttempts int) ([]domain.Order, error)
	UpdateSyncState(ctx context.Context, id uuid.UUID, state repository.SyncState) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

// failingJobOrders cannot save the AccuLynx job id on an order
type failingJobOrders struct {
	*repository.OrderRepository
}

func (o failingJobOrders) UpdateSyncState(ctx context.Context, id uuid.UUID, state repository.SyncState) error {
	if state.JobID != nil {
		return gorm.ErrInvalidDB
	}
	return o.OrderRepository.UpdateSyncState(ctx, id, state)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
