package domain

import (
	"fmt"
	"strings"
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages maps validator tags to user-facing messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"uuid":     "Must be a valid UUID",
	"oneof":    "Must be one of the allowed values",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeInternal     = "internal_error"
)

// SyncErrorCode classifies a recorded sync failure
type SyncErrorCode string

const (
	SyncErrorConfig          SyncErrorCode = "config_error"
	SyncErrorNetwork         SyncErrorCode = "network_error"
	SyncErrorRejected        SyncErrorCode = "rejected"
	SyncErrorInvalidResponse SyncErrorCode = "invalid_response"
	SyncErrorPartialSuccess  SyncErrorCode = "partial_success"
	SyncErrorNotFound        SyncErrorCode = "not_found"
	SyncErrorInternal        SyncErrorCode = "internal_error"
)

// FormatSyncError renders the value stored in last_sync_error
func FormatSyncError(code SyncErrorCode, message string) string {
	return fmt.Sprintf("[%s] %s", code, message)
}

// ParseSyncError splits a stored last_sync_error into code and message.
// Values without a code prefix come back with an empty code.
func ParseSyncError(stored string) (SyncErrorCode, string) {
	if !strings.HasPrefix(stored, "[") {
		return "", stored
	}
	end := strings.Index(stored, "] ")
	if end < 0 {
		return "", stored
	}
	return SyncErrorCode(stored[1:end]), stored[end+2:]
}
