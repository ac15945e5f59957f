package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/service"
	"go.uber.org/zap"
)

const (
	webhookSecretHeader = "x-webhook-secret"
	maxWebhookBodyBytes = 64 << 10
)

// WebhookHandler receives AccuLynx milestone notifications
type WebhookHandler struct {
	webhooks *service.WebhookService
	logger   *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(webhooks *service.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhooks: webhooks,
		logger:   logger,
	}
}

// AccuLynx handles POST /api/v1/webhooks/acculynx
func (h *WebhookHandler) AccuLynx(w http.ResponseWriter, r *http.Request) {
	if !h.webhooks.Authenticate(r.Header.Get(webhookSecretHeader)) {
		h.logger.Warn("webhook rejected: bad secret", zap.String("remote_addr", r.RemoteAddr))
		respondJSON(w, http.StatusUnauthorized, domain.WebhookErrorResponse{Error: "Unauthorized"})
		return
	}

	var status domain.OrderStatus
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		err = h.webhooks.RejectUnreadable(r.Context(), body, err)
	} else {
		status, err = h.webhooks.Process(r.Context(), body)
	}

	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, domain.WebhookResponse{Success: true, Status: status})
	case errors.Is(err, service.ErrInvalidWebhookPayload):
		respondJSON(w, http.StatusBadRequest, domain.WebhookErrorResponse{Error: "Invalid JSON payload"})
	case errors.Is(err, service.ErrMissingWebhookFields):
		respondJSON(w, http.StatusBadRequest, domain.WebhookErrorResponse{Error: "Missing job_id or milestone_type"})
	case errors.Is(err, service.ErrWebhookOrderNotFound):
		respondJSON(w, http.StatusNotFound, domain.WebhookErrorResponse{Error: "Order not found"})
	default:
		h.logger.Error("webhook processing failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, domain.WebhookErrorResponse{Error: "Internal server error"})
	}
}
