package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/logger"
	"github.com/ridgeline-exteriors/booking-api/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSourceAccuLynx = "acculynx"

// WebhookService applies AccuLynx milestone callbacks to local orders
type WebhookService struct {
	secret   string
	orders   orderStore
	logs     webhookLogStore
	notifier *NotificationService
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewWebhookService(
	secret string,
	orders orderStore,
	logs webhookLogStore,
	notifier *NotificationService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		secret:   secret,
		orders:   orders,
		logs:     logs,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Authenticate compares the provided shared secret in constant time. An
// unconfigured secret rejects every call.
func (s *WebhookService) Authenticate(provided string) bool {
	if s.secret == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.secret), []byte(provided)) == 1
}

// Process parses one authenticated webhook body and applies it to the
// referenced order, returning the order's resulting status
func (s *WebhookService) Process(ctx context.Context, raw []byte) (domain.OrderStatus, error) {
	entry := &domain.WebhookLog{
		Source:  webhookSourceAccuLynx,
		Payload: string(raw),
	}

	var req domain.AccuLynxWebhookRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.finish(ctx, entry, "invalid", ErrInvalidWebhookPayload)
		return "", ErrInvalidWebhookPayload
	}
	req.JobID = strings.TrimSpace(req.JobID)
	req.MilestoneType = strings.TrimSpace(req.MilestoneType)
	entry.EventType = req.MilestoneType

	if req.JobID == "" || req.MilestoneType == "" {
		s.finish(ctx, entry, "invalid", ErrMissingWebhookFields)
		return "", ErrMissingWebhookFields
	}

	order, err := s.orders.GetByAccuLynxJobID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.finish(ctx, entry, "not_found", ErrWebhookOrderNotFound)
			return "", ErrWebhookOrderNotFound
		}
		err = fmt.Errorf("failed to load order for job %s: %w", req.JobID, err)
		s.finish(ctx, entry, "error", err)
		return "", err
	}
	entry.OrderID = &order.ID

	status, err := s.apply(ctx, order, req)
	if err != nil {
		s.finish(ctx, entry, "error", err)
		return "", err
	}

	entry.Processed = true
	s.finish(ctx, entry, "applied", nil)
	return status, nil
}

// RejectUnreadable records an authenticated call whose body could not be read
// (too large or cut short) and returns ErrInvalidWebhookPayload
func (s *WebhookService) RejectUnreadable(ctx context.Context, partial []byte, readErr error) error {
	err := fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, readErr)
	s.finish(ctx, &domain.WebhookLog{
		Source:  webhookSourceAccuLynx,
		Payload: string(partial),
	}, "invalid", err)
	return err
}

func (s *WebhookService) apply(ctx context.Context, order *domain.Order, req domain.AccuLynxWebhookRequest) (domain.OrderStatus, error) {
	log := logger.WithOrder(s.logger, order.ID.String(), order.JobRef).With(zap.String("milestone", req.MilestoneType))

	previous := order.Status
	t := ApplyMilestone(previous, req.MilestoneType, req.LeadDeadReason)
	milestone := strings.ToUpper(req.MilestoneType)

	switch {
	case t.Ignored:
		log.Info("Milestone ignored for cancelled order")
		return order.Status, nil

	case t.Unchanged:
		if err := s.orders.UpdateFields(ctx, order.ID, map[string]interface{}{
			"acculynx_milestone": milestone,
		}); err != nil {
			return "", fmt.Errorf("failed to update milestone: %w", err)
		}
		return order.Status, nil

	case t.Cancel:
		if err := s.orders.UpdateFields(ctx, order.ID, map[string]interface{}{
			"status":              domain.OrderStatusCancelled,
			"cancellation_reason": t.Reason,
			"acculynx_milestone":  milestone,
		}); err != nil {
			return "", fmt.Errorf("failed to cancel order: %w", err)
		}
		order.Status = domain.OrderStatusCancelled
		order.CancellationReason = &t.Reason
		log.Info("Order cancelled by AccuLynx", zap.String("reason", t.Reason))
		s.notify(ctx, order, t.Notify)
		return order.Status, nil
	}

	if t.Intermediate != "" {
		now := s.now().UTC()
		if err := s.orders.UpdateFields(ctx, order.ID, map[string]interface{}{
			"status":             t.Intermediate,
			"scheduled_at":       now,
			"acculynx_milestone": milestone,
		}); err != nil {
			return "", fmt.Errorf("failed to update order status: %w", err)
		}
		order.Status = t.Intermediate
		order.ScheduledAt = &now

		if err := s.orders.UpdateFields(ctx, order.ID, map[string]interface{}{
			"status": t.Final,
		}); err != nil {
			log.Error("auto-advance failed, order stays scheduled",
				zap.String("target_status", string(t.Final)),
				zap.Error(err),
			)
			s.notify(ctx, order, t.NotifyIntermediate)
			return order.Status, nil
		}
	} else if err := s.orders.UpdateFields(ctx, order.ID, map[string]interface{}{
		"status":             t.Final,
		"acculynx_milestone": milestone,
	}); err != nil {
		return "", fmt.Errorf("failed to update order status: %w", err)
	}

	log.Info("Order status updated from milestone",
		zap.String("previous_status", string(previous)),
		zap.String("status", string(t.Final)),
	)
	order.Status = t.Final
	s.notify(ctx, order, t.Notify)
	return order.Status, nil
}

// notify sends each notification; failures are logged and never fail the webhook
func (s *WebhookService) notify(ctx context.Context, order *domain.Order, types []domain.NotificationType) {
	for _, nt := range types {
		if err := s.notifier.Notify(ctx, order, nt); err != nil {
			s.logger.Warn("notification not sent",
				zap.String("order_id", order.ID.String()),
				zap.String("type", string(nt)),
				zap.Error(err),
			)
		}
	}
}

// finish records the call in webhook_logs. The write survives request
// cancellation and its failure is only logged.
func (s *WebhookService) finish(ctx context.Context, entry *domain.WebhookLog, result string, procErr error) {
	s.metrics.WebhookEvent(result)

	if procErr != nil {
		msg := procErr.Error()
		entry.ErrorMessage = &msg
	}

	if err := s.logs.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to write webhook log",
			zap.String("event_type", entry.EventType),
			zap.String("result", result),
			zap.Error(err),
		)
	}
}
