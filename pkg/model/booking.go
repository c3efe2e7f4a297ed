package model

import (
	"slices"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusNone       PaymentStatus = ""
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s == PaymentStatusSuccessful || s == PaymentStatusFailed
}

type Booking struct {
	ID              string        `json:"id" bson:"_id"`
	Code            string        `json:"code" bson:"code"`
	PropertyID      string        `json:"property_id" bson:"property_id"`
	GuestID         string        `json:"guest_id" bson:"guest_id"`
	Range           DateRange     `json:"range" bson:"range"`
	Status          BookingStatus `json:"status" bson:"status"`
	GuestCount      int           `json:"guest_count" bson:"guest_count"`
	TotalPrice      int64         `json:"total_price" bson:"total_price"`
	Currency        string        `json:"currency" bson:"currency"`
	BlockID         string        `json:"block_id,omitempty" bson:"block_id,omitempty"`
	HoldExpiresAt   *time.Time    `json:"hold_expires_at,omitempty" bson:"hold_expires_at,omitempty"`
	PaymentID       string        `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	PaymentStatus   PaymentStatus `json:"payment_status,omitempty" bson:"payment_status,omitempty"`
	CancelledBy     Actor         `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CancelReason    string        `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CancellationFee int64         `json:"cancellation_fee,omitempty" bson:"cancellation_fee,omitempty"`
	RefundAmount    int64         `json:"refund_amount,omitempty" bson:"refund_amount,omitempty"`
	LatePaymentIDs  []string      `json:"late_payment_ids,omitempty" bson:"late_payment_ids,omitempty"`
	ReminderSentAt  *time.Time    `json:"reminder_sent_at,omitempty" bson:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" bson:"updated_at"`
	ConfirmedAt     *time.Time    `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	CheckedInAt     *time.Time    `json:"checked_in_at,omitempty" bson:"checked_in_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	ExpiredAt       *time.Time    `json:"expired_at,omitempty" bson:"expired_at,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

// HoldLive reports whether the payment hold is still valid at now.
func (b *Booking) HoldLive(now time.Time) bool {
	return b.Status == StatusPendingPayment && b.HoldExpiresAt != nil && b.HoldExpiresAt.After(now)
}

// PaymentSettled reports whether paymentID has already been accounted for,
// either as the payment of the stay or as a late payment owed back.
func (b *Booking) PaymentSettled(paymentID string) bool {
	if paymentID == "" {
		return false
	}
	if b.PaymentID == paymentID && b.PaymentStatus == PaymentStatusSuccessful {
		return true
	}
	return slices.Contains(b.LatePaymentIDs, paymentID)
}

type CreateBookingRequest struct {
	PropertyID string `json:"property_id" validate:"required,max=64"`
	GuestID    string `json:"guest_id" validate:"required,max=64"`
	CheckIn    string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut   string `json:"check_out" validate:"required,datetime=2006-01-02"`
	GuestCount int    `json:"guest_count" validate:"required,min=1,max=50"`
}

type CancelBookingRequest struct {
	Actor  Actor  `json:"actor" validate:"required,oneof=guest host"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type ConfirmBookingRequest struct {
	PaymentID string `json:"payment_id" validate:"omitempty,max=128"`
}

// StatusChange is a compare-and-transition request. It applies only when the
// booking is currently in From and, for pending holds, the expiry condition holds.
type StatusChange struct {
	From               BookingStatus
	To                 BookingStatus
	At                 time.Time
	RequireHoldLive    bool
	RequireHoldExpired bool

	PaymentID       string
	PaymentStatus   PaymentStatus
	CancelledBy     Actor
	CancelReason    string
	CancellationFee int64
	RefundAmount    int64
}

// Matches reports whether b satisfies the change's precondition.
func (c StatusChange) Matches(b *Booking) bool {
	if b.Status != c.From {
		return false
	}
	if c.RequireHoldLive && (b.HoldExpiresAt == nil || !b.HoldExpiresAt.After(c.At)) {
		return false
	}
	if c.RequireHoldExpired && (b.HoldExpiresAt == nil || b.HoldExpiresAt.After(c.At)) {
		return false
	}
	return true
}

// ApplyTo mutates b into the target state. Callers check Matches first.
func (c StatusChange) ApplyTo(b *Booking) {
	at := c.At
	b.Status = c.To
	b.UpdatedAt = at
	if c.From == StatusPendingPayment {
		b.HoldExpiresAt = nil
	}
	if c.PaymentID != "" {
		b.PaymentID = c.PaymentID
	}
	if c.PaymentStatus != PaymentStatusNone {
		b.PaymentStatus = c.PaymentStatus
	}
	switch c.To {
	case StatusConfirmed:
		b.ConfirmedAt = &at
	case StatusInProgress:
		b.CheckedInAt = &at
	case StatusCompleted:
		b.CompletedAt = &at
	case StatusExpired:
		b.ExpiredAt = &at
	case StatusCancelledByGuest, StatusCancelledByHost:
		b.CancelledAt = &at
		b.CancelledBy = c.CancelledBy
		b.CancelReason = c.CancelReason
		b.CancellationFee = c.CancellationFee
		b.RefundAmount = c.RefundAmount
	}
}
