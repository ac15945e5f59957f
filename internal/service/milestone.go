package service

import (
	"strings"

	"github.com/ridgeline-exteriors/booking-api/internal/domain"
)

// Transition is the effect of one AccuLynx milestone on an order
type Transition struct {
	// Intermediate is written before Final when set (APPROVED passes through scheduled)
	Intermediate domain.OrderStatus
	Final        domain.OrderStatus
	Cancel       bool
	Reason       string
	// Unchanged means the status stays as it is; only the milestone is refreshed
	Unchanged bool
	// Ignored means the order is cancelled and no longer follows AccuLynx
	Ignored bool
	// Notify is sent once Final is written
	Notify []domain.NotificationType
	// NotifyIntermediate is sent instead of Notify when only Intermediate was written
	NotifyIntermediate []domain.NotificationType
}

var milestoneStatus = map[string]domain.OrderStatus{
	"UNASSIGNED_LEAD": domain.OrderStatusReceived,
	"LEAD":            domain.OrderStatusReceived,
	"PROSPECT":        domain.OrderStatusReceived,
	"APPROVED":        domain.OrderStatusInProgress,
	"COMPLETED":       domain.OrderStatusJobComplete,
	"INVOICED":        domain.OrderStatusFinished,
}

var statusNotification = map[domain.OrderStatus]domain.NotificationType{
	domain.OrderStatusScheduled:   domain.NotificationTypeScheduled,
	domain.OrderStatusInProgress:  domain.NotificationTypeWorkBegun,
	domain.OrderStatusJobComplete: domain.NotificationTypeJobComplete,
	domain.OrderStatusFinished:    domain.NotificationTypeInvoiceSent,
	domain.OrderStatusCancelled:   domain.NotificationTypeCancelled,
}

// ApplyMilestone computes the status transition for a milestone. A non-empty
// deadReason cancels the order whatever the milestone says. Unknown
// milestones map to received. Status only moves forward: a milestone that maps
// behind the current status leaves it in place.
func ApplyMilestone(current domain.OrderStatus, milestone, deadReason string) Transition {
	if current.IsTerminal() {
		return Transition{Final: current, Unchanged: true, Ignored: true}
	}

	if reason := strings.TrimSpace(deadReason); reason != "" {
		return Transition{
			Final:  domain.OrderStatusCancelled,
			Cancel: true,
			Reason: reason,
			Notify: []domain.NotificationType{domain.NotificationTypeCancelled},
		}
	}

	final, ok := milestoneStatus[strings.ToUpper(strings.TrimSpace(milestone))]
	if !ok {
		final = domain.OrderStatusReceived
	}

	if final == current || final.Precedes(current) {
		return Transition{Final: current, Unchanged: true}
	}

	t := Transition{Final: final}

	if final == domain.OrderStatusInProgress {
		t.Intermediate = domain.OrderStatusScheduled
		t.NotifyIntermediate = []domain.NotificationType{domain.NotificationTypeScheduled}
	}
	if n, ok := statusNotification[final]; ok {
		t.Notify = []domain.NotificationType{n}
	}
	return t
}
