package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel carries the common identity and timestamp columns
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a client-side UUID when none is set
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// OrderStatus is the customer-facing lifecycle of an order
type OrderStatus string

const (
	OrderStatusReceived    OrderStatus = "received"
	OrderStatusScheduled   OrderStatus = "scheduled"
	OrderStatusInProgress  OrderStatus = "in_progress"
	OrderStatusJobComplete OrderStatus = "job_complete"
	OrderStatusFinished    OrderStatus = "finished"
	OrderStatusCancelled   OrderStatus = "cancelled"
)

// IsTerminal reports whether no further milestone may change the status
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled
}

var orderStatusRank = map[OrderStatus]int{
	OrderStatusReceived:    1,
	OrderStatusScheduled:   2,
	OrderStatusInProgress:  3,
	OrderStatusJobComplete: 4,
	OrderStatusFinished:    5,
}

// Precedes reports whether s comes strictly before other in the forward
// lifecycle. Unknown statuses and cancelled are never ordered.
func (s OrderStatus) Precedes(other OrderStatus) bool {
	a, okA := orderStatusRank[s]
	b, okB := orderStatusRank[other]
	return okA && okB && a < b
}

// SyncStatus tracks how far an order has been pushed to AccuLynx
type SyncStatus string

const (
	SyncStatusNone               SyncStatus = ""
	SyncStatusPendingPhotoUpload SyncStatus = "pending_photo_upload"
	SyncStatusSubmitted          SyncStatus = "submitted"
	SyncStatusFailed             SyncStatus = "failed"
	SyncStatusPhotoUploadFailed  SyncStatus = "photo_upload_failed"
	SyncStatusRequiresReview     SyncStatus = "requires_manual_review"
)

// MaxSyncAttempts is the retry ceiling after which an order needs manual review
const MaxSyncAttempts = 3

// PropertyType is the kind of property the work is booked for
type PropertyType string

const (
	PropertyTypeResidential PropertyType = "residential"
	PropertyTypeCommercial  PropertyType = "commercial"
)

// AddressSnapshot is the address as it was when the order was booked
type AddressSnapshot struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Order is a booked unit of work and its AccuLynx sync state
type Order struct {
	BaseModel
	JobRef             string           `gorm:"type:varchar(32);not null;uniqueIndex;column:job_ref"`
	UserID             uuid.UUID        `gorm:"type:uuid;not null;index;column:user_id"`
	Status             OrderStatus      `gorm:"type:varchar(32);not null;default:'received'"`
	ServiceCategory    *string          `gorm:"type:varchar(64);column:service_category"`
	PropertyType       PropertyType     `gorm:"type:varchar(32);column:property_type"`
	ScheduledAt        *time.Time       `gorm:"column:scheduled_at"`
	PreferredWindow    *string          `gorm:"type:varchar(64);column:preferred_window"`
	Notes              *string          `gorm:"type:text"`
	AddressID          *uuid.UUID       `gorm:"type:uuid;column:address_id"`
	AddressSnapshot    *AddressSnapshot `gorm:"type:jsonb;serializer:json;column:address_snapshot"`
	SyncStatus         SyncStatus       `gorm:"type:varchar(32);not null;default:'';index;column:sync_status"`
	SyncAttempts       int              `gorm:"not null;default:0;column:sync_attempts"`
	LastSyncAt         *time.Time       `gorm:"column:last_sync_at"`
	LastSyncError      *string          `gorm:"type:text;column:last_sync_error"`
	AccuLynxContactID  *string          `gorm:"type:varchar(64);column:acculynx_contact_id"`
	AccuLynxJobID      *string          `gorm:"type:varchar(64);index;column:acculynx_job_id"`
	AccuLynxMilestone  *string          `gorm:"type:varchar(64);column:acculynx_milestone"`
	CancellationReason *string          `gorm:"type:text;column:cancellation_reason"`
	Photos             []Photo          `gorm:"foreignKey:OrderID"`
}

// HasJob reports whether the AccuLynx job was already created
func (o *Order) HasJob() bool {
	return o.AccuLynxJobID != nil && *o.AccuLynxJobID != ""
}

// Photo is a booking attachment pushed to the AccuLynx job
type Photo struct {
	BaseModel
	OrderID            uuid.UUID `gorm:"type:uuid;not null;index;column:order_id"`
	StoragePath        string    `gorm:"type:varchar(500);not null;column:storage_path"`
	FileName           *string   `gorm:"type:varchar(255);column:file_name"`
	Caption            *string   `gorm:"type:text"`
	UploadedToAccuLynx bool      `gorm:"not null;default:false;column:uploaded_to_acculynx"`
	AccuLynxFileID     *string   `gorm:"type:varchar(64);column:acculynx_file_id"`
}

func (Photo) TableName() string {
	return "order_photos"
}

// Profile is the customer record owned by the booking app
type Profile struct {
	BaseModel
	UserID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id"`
	FirstName         string    `gorm:"type:varchar(100);column:first_name"`
	LastName          string    `gorm:"type:varchar(100);column:last_name"`
	Email             *string   `gorm:"type:varchar(255)"`
	Phone             *string   `gorm:"type:varchar(50)"`
	MailingStreet     *string   `gorm:"type:varchar(255);column:mailing_street"`
	MailingCity       *string   `gorm:"type:varchar(100);column:mailing_city"`
	MailingState      *string   `gorm:"type:varchar(50);column:mailing_state"`
	MailingZip        *string   `gorm:"type:varchar(20);column:mailing_zip"`
	AccuLynxContactID *string   `gorm:"type:varchar(64);column:acculynx_contact_id"`
}

// Address is a saved service address; mutable and deletable by the user
type Address struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;not null;index;column:user_id"`
	Street string    `gorm:"type:varchar(255);not null"`
	City   string    `gorm:"type:varchar(100);not null"`
	State  string    `gorm:"type:varchar(50);not null"`
	Zip    string    `gorm:"type:varchar(20);not null"`
}

// Snapshot copies the address into its immutable booking form
func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip}
}

// WebhookLog is an append-only record of an inbound webhook call
type WebhookLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Source       string     `gorm:"type:varchar(50);not null"`
	EventType    string     `gorm:"type:varchar(100);column:event_type"`
	Payload      string     `gorm:"type:text"`
	OrderID      *uuid.UUID `gorm:"type:uuid;index;column:order_id"`
	Processed    bool       `gorm:"not null;default:false"`
	ErrorMessage *string    `gorm:"type:text;column:error_message"`
	CreatedAt    time.Time  `gorm:"not null"`
}

func (w *WebhookLog) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// NotificationType identifies the status change a notification announces
type NotificationType string

const (
	NotificationTypeScheduled   NotificationType = "scheduled"
	NotificationTypeWorkBegun   NotificationType = "work_begun"
	NotificationTypeJobComplete NotificationType = "job_complete"
	NotificationTypeInvoiceSent NotificationType = "invoice_sent"
	NotificationTypeCancelled   NotificationType = "cancelled"
)

// Notification is a user-facing message produced by an order status change
type Notification struct {
	BaseModel
	UserID  uuid.UUID        `gorm:"type:uuid;not null;index;column:user_id"`
	OrderID *uuid.UUID       `gorm:"type:uuid;index;column:order_id"`
	Type    NotificationType `gorm:"type:varchar(50);not null"`
	Title   string           `gorm:"type:varchar(200);not null"`
	Message string           `gorm:"type:text;not null"`
	Read    bool             `gorm:"not null;default:false"`
}
