package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/database"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB returns a migrated database for one test.
// TEST_DATABASE_DSN selects a PostgreSQL database; otherwise a private
// in-memory SQLite database is used.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	if dsn := os.Getenv("TEST_DATABASE_DSN"); dsn != "" {
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		require.NoError(t, err, "Failed to connect to test database. Ensure PostgreSQL is running.")
		t.Cleanup(func() { CleanupTestData(t, db) })
	} else {
		name := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		db, err = gorm.Open(sqlite.Open(name), gormCfg)
		require.NoError(t, err)

		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CleanupTestData removes rows written by a test, children first
func CleanupTestData(t *testing.T, db *gorm.DB) {
	tables := []string{"notifications", "webhook_logs", "order_photos", "orders", "addresses", "profiles"}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			t.Logf("Note: Could not clean table %s: %v", table, err)
		}
	}
}

// CreateTestProfile creates a profile without an AccuLynx contact
func CreateTestProfile(t *testing.T, db *gorm.DB) *domain.Profile {
	email := "jane.doe@example.com"
	phone := "(801) 555-0142"
	profile := &domain.Profile{
		UserID:    uuid.New(),
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     &email,
		Phone:     &phone,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

// CreateTestAddress creates a saved address for the user
func CreateTestAddress(t *testing.T, db *gorm.DB, userID uuid.UUID) *domain.Address {
	address := &domain.Address{
		UserID: userID,
		Street: "123 Canyon Rd",
		City:   "Provo",
		State:  "UT",
		Zip:    "84604",
	}
	require.NoError(t, db.Create(address).Error)
	return address
}

// OrderOption customizes a test order before it is inserted
type OrderOption func(*domain.Order)

// CreateTestOrder creates an order for the profile's user at the given address
func CreateTestOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, address *domain.Address, opts ...OrderOption) *domain.Order {
	order := &domain.Order{
		JobRef:       "SR-" + uuid.NewString()[:8],
		UserID:       userID,
		Status:       domain.OrderStatusReceived,
		PropertyType: domain.PropertyTypeResidential,
	}
	if address != nil {
		snapshot := address.Snapshot()
		order.AddressID = &address.ID
		order.AddressSnapshot = &snapshot
	}
	for _, opt := range opts {
		opt(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

// WithSyncState sets the integration lifecycle fields of a test order
func WithSyncState(status domain.SyncStatus, attempts int, lastSyncAt *time.Time) OrderOption {
	return func(o *domain.Order) {
		o.SyncStatus = status
		o.SyncAttempts = attempts
		o.LastSyncAt = lastSyncAt
	}
}

// WithJobID marks the test order as already created in AccuLynx
func WithJobID(jobID string) OrderOption {
	return func(o *domain.Order) {
		o.AccuLynxJobID = &jobID
	}
}

// WithStatus sets the customer-facing status of a test order
func WithStatus(status domain.OrderStatus) OrderOption {
	return func(o *domain.Order) {
		o.Status = status
	}
}

// WithServiceCategory sets the service category of a test order
func WithServiceCategory(category string) OrderOption {
	return func(o *domain.Order) {
		o.ServiceCategory = &category
	}
}

// CreateTestPhoto creates a photo row for the order pointing at storagePath
func CreateTestPhoto(t *testing.T, db *gorm.DB, orderID uuid.UUID, storagePath string, uploaded bool) *domain.Photo {
	fileName := storagePath
	photo := &domain.Photo{
		OrderID:            orderID,
		StoragePath:        storagePath,
		FileName:           &fileName,
		UploadedToAccuLynx: uploaded,
	}
	if uploaded {
		fileID := "file-" + uuid.NewString()[:8]
		photo.AccuLynxFileID = &fileID
	}
	require.NoError(t, db.Create(photo).Error)
	return photo
}

// ReloadOrder reads the order back from the database
func ReloadOrder(t *testing.T, db *gorm.DB, id uuid.UUID) *domain.Order {
	var order domain.Order
	require.NoError(t, db.First(&order, "id = ?", id).Error)
	return &order
}
