package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/notifications"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/lock"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"
)

const maxCancelReasonRunes = 500

// txFunc receives the booking as re-read under the property lock.
type txFunc func(ctx context.Context, current *model.Booking, now time.Time) (*model.Booking, error)

func (s *bookingService) ConfirmOnPayment(ctx context.Context, id string, paymentID string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	paymentID = sanitizer.SanitizeID(paymentID)

	var late *model.Booking
	lapsed, confirmedNow := false, false
	booking, err := s.mutate(ctx, id, func(txCtx context.Context, current *model.Booking, now time.Time) (*model.Booking, error) {
		if current.Status != model.StatusPendingPayment && current.PaymentSettled(paymentID) {
			switch current.Status {
			case model.StatusConfirmed, model.StatusInProgress, model.StatusCompleted:
				return current, nil
			}
			return nil, refundError(current, bookingserrors.ErrPaymentSettled)
		}

		switch current.Status {
		case model.StatusConfirmed:
			return current, nil
		case model.StatusPendingPayment:
		case model.StatusExpired, model.StatusCancelledByGuest, model.StatusCancelledByHost, model.StatusCompleted:
			if paymentID == "" {
				return nil, refundError(current, nil)
			}
			recorded, err := s.repo.RecordLatePayment(txCtx, current.ID, current.Status, paymentID, now)
			if err != nil {
				if errors.Is(err, bookingserrors.ErrStatusChanged) {
					return nil, apperrors.Conflict("Booking was modified concurrently, please retry").WithCause(err)
				}
				return nil, apperrors.Internal("Failed to record late payment", err)
			}
			late = recorded
			return recorded, nil
		default:
			return nil, invalidTransition(current.Status, model.StatusConfirmed)
		}

		if !current.HoldLive(now) {
			lapsed = true
			return s.expire(txCtx, current, now, paymentID)
		}

		confirmed, err := s.apply(txCtx, current, model.StatusChange{
			From:            model.StatusPendingPayment,
			To:              model.StatusConfirmed,
			At:              now,
			RequireHoldLive: true,
			PaymentID:       paymentID,
			PaymentStatus:   model.PaymentStatusSuccessful,
		})
		if err != nil {
			return nil, err
		}
		if err := s.calendar.ReplaceBlockKind(txCtx, confirmed.BlockID, model.BlockConfirmed); err != nil {
			return nil, apperrors.Internal("Failed to confirm calendar block", err)
		}
		confirmedNow = true
		return confirmed, nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case lapsed:
		s.cfg.Log.Warn("Payment arrived after hold expiry, booking expired",
			"id", booking.ID,
			"payment_id", paymentID,
			"refund_amount", booking.TotalPrice,
		)
		s.publish(ctx, notifications.EventBookingExpired, booking)
		if paymentID == "" {
			return nil, refundError(booking, nil)
		}
		return nil, refundError(booking, bookingserrors.ErrRefundDue)
	case late != nil:
		s.cfg.Log.Warn("Payment arrived for a closed booking",
			"id", late.ID,
			"status", late.Status,
			"payment_id", paymentID,
			"refund_amount", late.TotalPrice,
		)
		return nil, refundError(late, bookingserrors.ErrRefundDue)
	case confirmedNow:
		s.cfg.Log.Info("Booking confirmed", "id", booking.ID, "payment_id", booking.PaymentID)
		s.publish(ctx, notifications.EventBookingConfirmed, booking)
	}
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, id string, req *model.CancelBookingRequest) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if err := s.validator.ValidateCancel(req); err != nil {
		s.cfg.Log.Warn("Cancel validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Cancel validation failed", map[string]any{"error": err.Error()})
	}
	reason := sanitizer.SanitizeFreeText(req.Reason, maxCancelReasonRunes)
	target := req.Actor.CancelStatus()

	booking, err := s.mutate(ctx, id, func(txCtx context.Context, current *model.Booking, now time.Time) (*model.Booking, error) {
		if !current.Status.CanTransitionTo(target) {
			return nil, invalidTransition(current.Status, target)
		}

		var fee, refund int64
		if current.Status == model.StatusConfirmed {
			refund = current.TotalPrice
			if req.Actor == model.ActorGuest {
				property, err := s.propertyFor(txCtx, current.PropertyID)
				if err != nil {
					return nil, err
				}
				fee = min(max(s.fees.Fee(property, current, now), 0), current.TotalPrice)
				refund = current.TotalPrice - fee
			}
		}

		cancelled, err := s.apply(txCtx, current, model.StatusChange{
			From:            current.Status,
			To:              target,
			At:              now,
			CancelledBy:     req.Actor,
			CancelReason:    reason,
			CancellationFee: fee,
			RefundAmount:    refund,
		})
		if err != nil {
			return nil, err
		}
		if err := s.releaseBlock(txCtx, cancelled); err != nil {
			return nil, err
		}
		return cancelled, nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking cancelled",
		"id", booking.ID,
		"cancelled_by", booking.CancelledBy,
		"cancellation_fee", booking.CancellationFee,
		"refund_amount", booking.RefundAmount,
	)
	s.publish(ctx, notifications.EventBookingCancelled, booking)
	return booking, nil
}

func (s *bookingService) CheckIn(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.mutate(ctx, id, func(txCtx context.Context, current *model.Booking, now time.Time) (*model.Booking, error) {
		if !current.Status.CanTransitionTo(model.StatusInProgress) {
			return nil, invalidTransition(current.Status, model.StatusInProgress)
		}

		today, err := s.propertyToday(txCtx, current.PropertyID, now)
		if err != nil {
			return nil, err
		}
		if today.Before(current.Range.Start) || !today.Before(current.Range.End) {
			return nil, apperrors.Validation(
				fmt.Sprintf("Check-in is only possible during the stay %s", current.Range),
				map[string]any{"reason": "check_in_window", "today": today.Format(model.DateLayout)},
			).WithCause(bookingserrors.ErrPolicyViolation)
		}

		return s.apply(txCtx, current, model.StatusChange{
			From: model.StatusConfirmed,
			To:   model.StatusInProgress,
			At:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Guest checked in", "id", booking.ID, "property_id", booking.PropertyID)
	s.publish(ctx, notifications.EventBookingCheckedIn, booking)
	return booking, nil
}

func (s *bookingService) Complete(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.mutate(ctx, id, func(txCtx context.Context, current *model.Booking, now time.Time) (*model.Booking, error) {
		if !current.Status.CanTransitionTo(model.StatusCompleted) {
			return nil, invalidTransition(current.Status, model.StatusCompleted)
		}
		completed, err := s.apply(txCtx, current, model.StatusChange{
			From: model.StatusInProgress,
			To:   model.StatusCompleted,
			At:   now,
		})
		if err != nil {
			return nil, err
		}
		if err := s.releaseBlock(txCtx, completed); err != nil {
			return nil, err
		}
		return completed, nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Stay completed", "id", booking.ID, "property_id", booking.PropertyID)
	s.publish(ctx, notifications.EventBookingCompleted, booking)
	return booking, nil
}

func (s *bookingService) ExpireHold(ctx context.Context, id string) (bool, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	if current.Status != model.StatusPendingPayment || current.HoldLive(s.clock.Now()) {
		return false, nil
	}

	var expired *model.Booking
	_, err = s.mutate(ctx, id, func(txCtx context.Context, current *model.Booking, now time.Time) (*model.Booking, error) {
		if current.Status != model.StatusPendingPayment || current.HoldLive(now) {
			return current, nil
		}
		b, err := s.expire(txCtx, current, now, "")
		if err != nil {
			return nil, err
		}
		expired = b
		return b, nil
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return false, nil
		}
		return false, err
	}
	if expired == nil {
		return false, nil
	}

	s.cfg.Log.Info("Booking hold expired", "id", expired.ID, "property_id", expired.PropertyID)
	s.publish(ctx, notifications.EventBookingExpired, expired)
	return true, nil
}

func (s *bookingService) StartStay(ctx context.Context, id string) (bool, error) {
	var started *model.Booking
	_, err := s.mutate(ctx, id, func(txCtx context.Context, current *model.Booking, now time.Time) (*model.Booking, error) {
		if current.Status != model.StatusConfirmed {
			return current, nil
		}
		today, err := s.propertyToday(txCtx, current.PropertyID, now)
		if err != nil {
			return nil, err
		}
		if today.Before(current.Range.Start) {
			return current, nil
		}
		b, err := s.apply(txCtx, current, model.StatusChange{
			From: model.StatusConfirmed,
			To:   model.StatusInProgress,
			At:   now,
		})
		if err != nil {
			return nil, err
		}
		started = b
		return b, nil
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return false, nil
		}
		return false, err
	}
	if started == nil {
		return false, nil
	}

	s.cfg.Log.Info("Stay started", "id", started.ID, "property_id", started.PropertyID)
	s.publish(ctx, notifications.EventBookingCheckedIn, started)
	return true, nil
}

func (s *bookingService) SendReminder(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.MarkReminderSent(ctx, id, s.clock.Now())
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrStatusChanged):
			return false, nil
		case errors.Is(err, bookingserrors.ErrNotFound):
			return false, apperrors.NotFoundWithID("Booking", id)
		}
		return false, apperrors.Internal("Failed to mark reminder", err)
	}

	s.cfg.Log.Info("Arrival reminder sent", "id", booking.ID, "check_in", booking.Range.Start.Format(model.DateLayout))
	s.publish(ctx, notifications.EventBookingReminder, booking)
	return true, nil
}

// --- Transition helpers ---

// mutate runs fn under the booking's property lock, inside a transaction,
// against a fresh read of the booking.
func (s *bookingService) mutate(ctx context.Context, id string, fn txFunc) (*model.Booking, error) {
	snapshot, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	release, err := s.acquirePropertyLock(ctx, snapshot.PropertyID)
	if err != nil {
		return nil, err
	}
	defer release()

	leaseCtx, cancel := lock.Lease(ctx, s.cfg.LockTTL)
	defer cancel()

	var result *model.Booking
	err = s.tx.ExecuteTransaction(leaseCtx, func(txCtx context.Context) error {
		current, err := s.load(txCtx, id)
		if err != nil {
			return err
		}
		result, err = fn(txCtx, current, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// apply performs the compare-and-transition. A miss means another writer
// changed the booking after it was read.
func (s *bookingService) apply(ctx context.Context, current *model.Booking, change model.StatusChange) (*model.Booking, error) {
	if !current.Status.CanTransitionTo(change.To) {
		return nil, invalidTransition(current.Status, change.To)
	}

	updated, err := s.repo.Transition(ctx, current.ID, change)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			s.cfg.Log.Warn("Booking changed concurrently",
				"id", current.ID,
				"from", change.From,
				"to", change.To,
			)
			return nil, apperrors.Conflict("Booking was modified concurrently, please retry").WithCause(err)
		}
		return nil, apperrors.Internal("Failed to update booking status", err)
	}
	return updated, nil
}

// expire moves a lapsed hold to expired and frees its dates. A late payment is
// recorded on the booking so the refund can be traced.
func (s *bookingService) expire(ctx context.Context, current *model.Booking, now time.Time, paymentID string) (*model.Booking, error) {
	change := model.StatusChange{
		From:               model.StatusPendingPayment,
		To:                 model.StatusExpired,
		At:                 now,
		RequireHoldExpired: true,
	}
	if paymentID != "" {
		change.PaymentID = paymentID
		change.PaymentStatus = model.PaymentStatusSuccessful
	}

	expired, err := s.apply(ctx, current, change)
	if err != nil {
		return nil, err
	}
	if err := s.releaseBlock(ctx, expired); err != nil {
		return nil, err
	}
	return expired, nil
}

func (s *bookingService) releaseBlock(ctx context.Context, b *model.Booking) error {
	if b.BlockID == "" {
		return nil
	}
	if err := s.calendar.ReleaseBlock(ctx, b.BlockID); err != nil {
		return apperrors.Internal("Failed to release calendar block", err)
	}
	return nil
}

// propertyFor tolerates a property that has left the catalog; callers fall
// back to UTC and the flexible policy.
func (s *bookingService) propertyFor(ctx context.Context, propertyID string) (*model.Property, error) {
	property, err := s.catalog.GetProperty(ctx, propertyID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrPropertyNotFound) {
			s.cfg.Log.Warn("Property missing from catalog", "property_id", propertyID)
			return nil, nil
		}
		return nil, apperrors.Internal("Failed to load property", err)
	}
	return property, nil
}

// propertyToday is the civil date at now in the property's timezone.
func (s *bookingService) propertyToday(ctx context.Context, propertyID string, now time.Time) (time.Time, error) {
	property, err := s.propertyFor(ctx, propertyID)
	if err != nil {
		return time.Time{}, err
	}
	loc := time.UTC
	if property != nil {
		loc = property.Location()
	}
	return model.Day(now.In(loc)), nil
}

func invalidTransition(from, to model.BookingStatus) *apperrors.AppError {
	return apperrors.InvalidTransition(
		fmt.Sprintf("Cannot move booking from %s to %s", from, to),
		bookingserrors.ErrInvalidTransition,
	).WithDetails(map[string]any{"status": from, "target": to})
}

func holdExpired(b *model.Booking) *apperrors.AppError {
	return apperrors.HoldExpired("Booking hold has expired", bookingserrors.ErrHoldExpired).
		WithDetails(map[string]any{"booking_id": b.ID})
}

// refundError reports a payment that cannot confirm b. An expired booking maps
// to HOLD_EXPIRED, any other status to INVALID_TRANSITION; reason, when set,
// tells the payment consumer whether a refund is still owed.
func refundError(b *model.Booking, reason error) *apperrors.AppError {
	details := map[string]any{
		"booking_id":    b.ID,
		"status":        b.Status,
		"refund_amount": b.TotalPrice,
	}

	if b.Status == model.StatusExpired {
		var cause error = bookingserrors.ErrHoldExpired
		if reason != nil {
			cause = fmt.Errorf("%w: %w", bookingserrors.ErrHoldExpired, reason)
		}
		return apperrors.HoldExpired("Booking hold has expired, the payment must be refunded", cause).WithDetails(details)
	}

	var cause error = bookingserrors.ErrInvalidTransition
	if reason != nil {
		cause = fmt.Errorf("%w: %w", bookingserrors.ErrInvalidTransition, reason)
	}
	return apperrors.InvalidTransition(
		fmt.Sprintf("Booking is %s, the payment must be refunded", b.Status),
		cause,
	).WithDetails(details)
}
