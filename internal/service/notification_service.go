package service

import (
	"context"
	"fmt"

	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"go.uber.org/zap"
)

// NotificationService writes user-facing notifications for order status changes
type NotificationService struct {
	notifications notificationStore
	logger        *zap.Logger
}

func NewNotificationService(notifications notificationStore, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		logger:        logger,
	}
}

// Notify creates the notification of the given type for the order's owner
func (s *NotificationService) Notify(ctx context.Context, order *domain.Order, notificationType domain.NotificationType) error {
	title, message := notificationText(order, notificationType)
	notification := &domain.Notification{
		UserID:  order.UserID,
		OrderID: &order.ID,
		Type:    notificationType,
		Title:   title,
		Message: message,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Error("failed to create notification",
			zap.String("order_id", order.ID.String()),
			zap.String("type", string(notificationType)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func notificationText(order *domain.Order, notificationType domain.NotificationType) (string, string) {
	switch notificationType {
	case domain.NotificationTypeScheduled:
		return "Your service is scheduled", fmt.Sprintf("Order %s has been approved and scheduled.", order.JobRef)
	case domain.NotificationTypeWorkBegun:
		return "Work has begun", fmt.Sprintf("Our crew has started work on order %s.", order.JobRef)
	case domain.NotificationTypeJobComplete:
		return "Job complete", fmt.Sprintf("Work on order %s is complete.", order.JobRef)
	case domain.NotificationTypeInvoiceSent:
		return "Invoice sent", fmt.Sprintf("The invoice for order %s has been sent.", order.JobRef)
	case domain.NotificationTypeCancelled:
		msg := fmt.Sprintf("Order %s has been cancelled.", order.JobRef)
		if order.CancellationReason != nil && *order.CancellationReason != "" {
			msg += " Reason: " + *order.CancellationReason
		}
		return "Order cancelled", msg
	default:
		return "Order update", fmt.Sprintf("Order %s has been updated.", order.JobRef)
	}
}
