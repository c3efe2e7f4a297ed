package service

import (
	"context"
	"errors"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/notifications"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"
)

func (s *bookingService) InitiatePayment(ctx context.Context, id string) (*model.PaymentSession, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if s.gateway == nil {
		return nil, apperrors.Unavailable("Payment gateway")
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.HoldLive(s.clock.Now()) {
		if booking.Status == model.StatusPendingPayment || booking.Status == model.StatusExpired {
			return nil, holdExpired(booking)
		}
		return nil, invalidTransition(booking.Status, model.StatusConfirmed)
	}

	session, err := s.gateway.InitiatePayment(ctx, booking.ID, booking.TotalPrice, booking.Currency)
	if err != nil {
		s.cfg.Log.Error("Payment gateway rejected initiation",
			"id", booking.ID,
			"amount", booking.TotalPrice,
			"currency", booking.Currency,
			"error", err,
		)
		return nil, apperrors.Gateway("Payment provider is unavailable, please retry", err).WithCause(bookingserrors.ErrGateway)
	}

	if _, err := s.repo.SetPayment(ctx, booking.ID, session.PaymentID, model.PaymentStatusPending); err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return nil, apperrors.Conflict("Booking was modified while initiating payment").WithCause(err)
		}
		return nil, apperrors.Internal("Failed to record payment", err)
	}

	s.cfg.Log.Info("Payment initiated",
		"id", booking.ID,
		"payment_id", session.PaymentID,
		"amount", session.Amount,
	)
	return session, nil
}

// RecordPaymentFailure marks the payment failed. The hold stays in place so the
// guest can retry until it expires.
func (s *bookingService) RecordPaymentFailure(ctx context.Context, id string, paymentID string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	paymentID = sanitizer.SanitizeID(paymentID)

	booking, err := s.repo.SetPayment(ctx, id, paymentID, model.PaymentStatusFailed)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			s.cfg.Log.Info("Ignoring payment failure for settled booking", "id", id, "payment_id", paymentID)
			return s.load(ctx, id)
		}
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to record payment failure", err)
	}

	s.cfg.Log.Warn("Payment failed", "id", booking.ID, "payment_id", paymentID)
	s.publish(ctx, notifications.EventPaymentFailed, booking)
	return booking, nil
}
