package model

import "time"

type PaymentSession struct {
	PaymentID   string        `json:"payment_id"`
	CheckoutURL string        `json:"checkout_url"`
	Status      PaymentStatus `json:"status"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
}

// PaymentOutcome is an externally reported payment result for a booking.
type PaymentOutcome struct {
	PaymentID  string        `json:"payment_id" validate:"required,max=128"`
	BookingID  string        `json:"booking_id" validate:"required,max=64"`
	Status     PaymentStatus `json:"status" validate:"required,oneof=pending successful failed"`
	Amount     int64         `json:"amount" validate:"min=0"`
	ReportedAt time.Time     `json:"reported_at"`
}

// BookingEvent is the payload published on booking state transitions.
type BookingEvent struct {
	BookingID       string        `json:"booking_id"`
	Code            string        `json:"code"`
	PropertyID      string        `json:"property_id"`
	GuestID         string        `json:"guest_id"`
	Range           DateRange     `json:"range"`
	Status          BookingStatus `json:"status"`
	TotalPrice      int64         `json:"total_price"`
	Currency        string        `json:"currency"`
	PaymentID       string        `json:"payment_id,omitempty"`
	CancellationFee int64         `json:"cancellation_fee,omitempty"`
	RefundAmount    int64         `json:"refund_amount,omitempty"`
	OccurredAt      time.Time     `json:"occurred_at"`
}

func NewBookingEvent(b *Booking, at time.Time) *BookingEvent {
	return &BookingEvent{
		BookingID:       b.ID,
		Code:            b.Code,
		PropertyID:      b.PropertyID,
		GuestID:         b.GuestID,
		Range:           b.Range,
		Status:          b.Status,
		TotalPrice:      b.TotalPrice,
		Currency:        b.Currency,
		PaymentID:       b.PaymentID,
		CancellationFee: b.CancellationFee,
		RefundAmount:    b.RefundAmount,
		OccurredAt:      at,
	}
}
