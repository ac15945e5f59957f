package domain

import (
	"time"

	"github.com/google/uuid"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// AccuLynxWebhookRequest is the milestone notification sent by AccuLynx.
// Field names follow the CRM's payload, not this API's camelCase.
type AccuLynxWebhookRequest struct {
	JobID          string `json:"job_id"`
	MilestoneType  string `json:"milestone_type"`
	LeadDeadReason string `json:"lead_dead_reason,omitempty"`
}

// WebhookResponse is returned for an accepted webhook call
type WebhookResponse struct {
	Success bool        `json:"success"`
	Status  OrderStatus `json:"status"`
}

// WebhookErrorResponse is returned for a rejected webhook call
type WebhookErrorResponse struct {
	Error string `json:"error"`
}

// OrderSyncDTO exposes an order's AccuLynx sync state
type OrderSyncDTO struct {
	OrderID           uuid.UUID     `json:"orderId"`
	JobRef            string        `json:"jobRef"`
	Status            OrderStatus   `json:"status"`
	SyncStatus        SyncStatus    `json:"syncStatus"`
	SyncAttempts      int           `json:"syncAttempts"`
	LastSyncAt        *time.Time    `json:"lastSyncAt,omitempty"`
	LastSyncError     string        `json:"lastSyncError,omitempty"`
	LastSyncErrorCode SyncErrorCode `json:"lastSyncErrorCode,omitempty"`
	AccuLynxContactID string        `json:"acculynxContactId,omitempty"`
	AccuLynxJobID     string        `json:"acculynxJobId,omitempty"`
	AccuLynxMilestone string        `json:"acculynxMilestone,omitempty"`
	PhotosTotal       int           `json:"photosTotal"`
	PhotosUploaded    int           `json:"photosUploaded"`
}

// RetryOutcome is the per-order result of a retry sweep
type RetryOutcome string

const (
	RetryOutcomeSuccess        RetryOutcome = "success"
	RetryOutcomeSkipped        RetryOutcome = "skipped"
	RetryOutcomeRetryScheduled RetryOutcome = "retry_scheduled"
	RetryOutcomeManualReview   RetryOutcome = "requires_manual_review"
)

// RetryResultDTO describes what a sweep did with one order
type RetryResultDTO struct {
	OrderID     uuid.UUID    `json:"orderId"`
	JobRef      string       `json:"jobRef"`
	Outcome     RetryOutcome `json:"outcome"`
	Path        string       `json:"path,omitempty"`
	Attempts    int          `json:"attempts"`
	WaitSeconds int64        `json:"waitSeconds,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// RetrySweepDTO summarizes one retry sweep
type RetrySweepDTO struct {
	StartedAt      time.Time        `json:"startedAt"`
	Candidates     int              `json:"candidates"`
	Succeeded      int              `json:"succeeded"`
	Skipped        int              `json:"skipped"`
	RetryScheduled int              `json:"retryScheduled"`
	ManualReview   int              `json:"manualReview"`
	Results        []RetryResultDTO `json:"results"`
}
