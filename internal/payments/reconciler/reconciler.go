// Package reconciler turns externally reported payment outcomes into booking
// transitions. Outcomes arrive from the payments topic, the signed webhook, or
// by polling the gateway for bookings still awaiting payment. Applying the same
// outcome twice is harmless: a payment the booking already accounts for is
// neither confirmed again nor refunded again.
package reconciler

import (
	"context"
	"errors"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/validator"
	"staybook/internal/notifications"
	"staybook/internal/payments/gateway"
	"staybook/pkg/clock"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/kafka"
	"staybook/pkg/model"
)

// Bookings is the part of the booking service the reconciler drives.
type Bookings interface {
	ConfirmOnPayment(ctx context.Context, id string, paymentID string) (*model.Booking, error)
	RecordPaymentFailure(ctx context.Context, id string, paymentID string) (*model.Booking, error)
}

// Finder lists bookings with an open payment.
type Finder interface {
	FindAwaitingPayment(ctx context.Context, limit int) ([]*model.Booking, error)
}

// RefundRequest is published when money arrived for a booking that can no
// longer be confirmed.
type RefundRequest struct {
	BookingID string    `json:"booking_id"`
	PaymentID string    `json:"payment_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

const (
	refundReasonHoldExpired   = "hold_expired"
	refundReasonBookingClosed = "booking_closed"
)

type Reconciler struct {
	bookings  Bookings
	finder    Finder
	gateway   gateway.Gateway
	notifier  notifications.Notifier
	validator *validator.BookingValidator
	clock     clock.Clock
	cfg       *config.Config
}

type Dependencies struct {
	Bookings  Bookings
	Finder    Finder
	Gateway   gateway.Gateway
	Notifier  notifications.Notifier
	Validator *validator.BookingValidator
	Clock     clock.Clock
}

func New(deps Dependencies, cfg *config.Config) *Reconciler {
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewLogNotifier(cfg.Log)
	}
	return &Reconciler{
		bookings:  deps.Bookings,
		finder:    deps.Finder,
		gateway:   deps.Gateway,
		notifier:  deps.Notifier,
		validator: deps.Validator,
		clock:     deps.Clock,
		cfg:       cfg,
	}
}

// Apply acts on a single outcome. A successful payment for a booking that can
// no longer be confirmed is not an error: a refund request is published the
// first time the payment is seen.
func (r *Reconciler) Apply(ctx context.Context, outcome *model.PaymentOutcome) error {
	if r.validator != nil {
		if err := r.validator.ValidatePaymentOutcome(outcome); err != nil {
			r.cfg.Log.Warn("Payment outcome validation failed", "payment_id", outcome.PaymentID, "error", err)
			return apperrors.Validation("Payment outcome validation failed", map[string]any{"error": err.Error()})
		}
	}

	switch outcome.Status {
	case model.PaymentStatusSuccessful:
		booking, err := r.bookings.ConfirmOnPayment(ctx, outcome.BookingID, outcome.PaymentID)
		switch {
		case errors.Is(err, bookingserrors.ErrPaymentSettled):
			r.cfg.Log.Info("Payment outcome already applied",
				"booking_id", outcome.BookingID,
				"payment_id", outcome.PaymentID,
			)
			return nil
		case errors.Is(err, bookingserrors.ErrRefundDue):
			r.requestRefund(ctx, outcome, refundReason(err))
			return nil
		case err != nil:
			return err
		}
		r.cfg.Log.Info("Payment reconciled",
			"booking_id", booking.ID,
			"payment_id", outcome.PaymentID,
			"status", booking.Status,
		)
		return nil

	case model.PaymentStatusFailed:
		if _, err := r.bookings.RecordPaymentFailure(ctx, outcome.BookingID, outcome.PaymentID); err != nil {
			return err
		}
		return nil

	default:
		return nil
	}
}

func refundReason(err error) string {
	if errors.Is(err, bookingserrors.ErrHoldExpired) {
		return refundReasonHoldExpired
	}
	return refundReasonBookingClosed
}

func (r *Reconciler) requestRefund(ctx context.Context, outcome *model.PaymentOutcome, reason string) {
	r.cfg.Log.Warn("Payment cannot confirm booking, refund required",
		"booking_id", outcome.BookingID,
		"payment_id", outcome.PaymentID,
		"amount", outcome.Amount,
		"reason", reason,
	)
	r.notifier.Notify(ctx, notifications.EventPaymentRefundRequired, outcome.BookingID, &RefundRequest{
		BookingID: outcome.BookingID,
		PaymentID: outcome.PaymentID,
		Amount:    outcome.Amount,
		Reason:    reason,
		At:        r.clock.Now(),
	})
}

// HandleMessage is the kafka.MessageHandler for the payment outcomes topic.
// Busy and store failures are retried; malformed or rejected outcomes go to the DLQ.
func (r *Reconciler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var outcome model.PaymentOutcome
	if err := msg.DecodeValue(&outcome); err != nil {
		return kafka.NewPermanentError("deserialization failed", err)
	}

	err := r.Apply(ctx, &outcome)
	if err == nil {
		return nil
	}

	appErr := apperrors.AsAppError(err)
	switch {
	case appErr.Retryable(), appErr.Code == apperrors.CodeInternal:
		return kafka.NewTransientError("payment outcome not applied", err).
			WithDetail("booking_id", outcome.BookingID)
	case appErr.Code == apperrors.CodeInvalidTransition:
		return kafka.NewBusinessError("payment outcome rejected", err).
			WithDetail("booking_id", outcome.BookingID)
	default:
		return kafka.NewPermanentError("invalid message", err).
			WithDetail("booking_id", outcome.BookingID)
	}
}

// ReconcilePending asks the gateway about every booking still awaiting payment
// and applies settled outcomes. It returns how many outcomes were applied.
func (r *Reconciler) ReconcilePending(ctx context.Context) (int, error) {
	if r.gateway == nil {
		return 0, nil
	}

	awaiting, err := r.finder.FindAwaitingPayment(ctx, r.cfg.SweepBatchSize)
	if err != nil {
		r.cfg.Log.Error("Failed to list bookings awaiting payment", "error", err)
		return 0, err
	}

	applied := 0
	for _, b := range awaiting {
		if ctx.Err() != nil {
			return applied, ctx.Err()
		}

		state, err := r.gateway.CheckStatus(ctx, b.PaymentID)
		if err != nil {
			r.cfg.Log.Warn("Failed to check payment status", "booking_id", b.ID, "payment_id", b.PaymentID, "error", err)
			continue
		}
		if state.Status == model.PaymentStatusPending {
			continue
		}

		outcome := &model.PaymentOutcome{
			PaymentID:  b.PaymentID,
			BookingID:  b.ID,
			Status:     state.Status,
			Amount:     state.Amount,
			ReportedAt: r.clock.Now(),
		}
		if err := r.Apply(ctx, outcome); err != nil {
			r.cfg.Log.Warn("Failed to apply polled payment outcome", "booking_id", b.ID, "payment_id", b.PaymentID, "error", err)
			continue
		}
		applied++
	}
	return applied, nil
}

// Start polls the gateway every ReconcileInterval until ctx is done.
func (r *Reconciler) Start(ctx context.Context) {
	if r.gateway == nil || r.cfg.ReconcileInterval <= 0 {
		r.cfg.Log.Info("Payment polling disabled")
		return
	}

	r.cfg.Log.Info("Payment reconciler started", "interval", r.cfg.ReconcileInterval)
	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.cfg.Log.Info("Payment reconciler stopped")
			return
		case <-ticker.C:
			if n, err := r.ReconcilePending(ctx); err == nil && n > 0 {
				r.cfg.Log.Info("Reconciled pending payments", "applied", n)
			}
		}
	}
}
