// Package notifications publishes booking lifecycle events. Delivery is best
// effort: a failed publish is logged and never fails the state change that
// produced it.
package notifications

import (
	"context"

	"staybook/pkg/logger"
)

const (
	EventBookingCreated        = "booking.created"
	EventBookingConfirmed      = "booking.confirmed"
	EventBookingCancelled      = "booking.cancelled"
	EventBookingExpired        = "booking.expired"
	EventBookingCheckedIn      = "booking.checked_in"
	EventBookingCompleted      = "booking.completed"
	EventBookingReminder       = "booking.reminder"
	EventPaymentFailed         = "payment.failed"
	EventPaymentRefundRequired = "payment.refund_required"
)

type Notifier interface {
	// Notify hands the event off and returns immediately.
	Notify(ctx context.Context, eventType string, key string, payload any)
	Close() error
}

type logNotifier struct {
	log *logger.Logger
}

// NewLogNotifier records events in the service log only.
func NewLogNotifier(log *logger.Logger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) Notify(ctx context.Context, eventType string, key string, payload any) {
	n.log.Info("Booking event", "event_type", eventType, "key", key)
}

func (n *logNotifier) Close() error {
	return nil
}
