package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/validator"
	"staybook/internal/notifications"
	"staybook/internal/payments/gateway"
	"staybook/pkg/clock"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/kafka"
	"staybook/pkg/logger"
	"staybook/pkg/model"
)

type mockBookings struct {
	mu        sync.Mutex
	confirmed []string
	failed    []string

	confirmFunc func(ctx context.Context, id string, paymentID string) (*model.Booking, error)
	failFunc    func(ctx context.Context, id string, paymentID string) (*model.Booking, error)
}

func (m *mockBookings) ConfirmOnPayment(ctx context.Context, id string, paymentID string) (*model.Booking, error) {
	m.mu.Lock()
	m.confirmed = append(m.confirmed, id)
	m.mu.Unlock()
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, id, paymentID)
	}
	return &model.Booking{ID: id, Status: model.StatusConfirmed, PaymentID: paymentID}, nil
}

func (m *mockBookings) RecordPaymentFailure(ctx context.Context, id string, paymentID string) (*model.Booking, error) {
	m.mu.Lock()
	m.failed = append(m.failed, id)
	m.mu.Unlock()
	if m.failFunc != nil {
		return m.failFunc(ctx, id, paymentID)
	}
	return &model.Booking{ID: id, Status: model.StatusPendingPayment, PaymentStatus: model.PaymentStatusFailed}, nil
}

type mockFinder struct {
	bookings []*model.Booking
	err      error
}

func (m *mockFinder) FindAwaitingPayment(ctx context.Context, limit int) ([]*model.Booking, error) {
	return m.bookings, m.err
}

type recordedEvent struct {
	eventType string
	key       string
	payload   any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, eventType string, key string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{eventType: eventType, key: key, payload: payload})
}

func (n *recordingNotifier) Close() error { return nil }

var _ notifications.Notifier = (*recordingNotifier)(nil)

type harness struct {
	rec      *Reconciler
	bookings *mockBookings
	finder   *mockFinder
	gateway  *gateway.Fake
	notifier *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	cfg := &config.Config{
		SweepBatchSize:    50,
		ReconcileInterval: 10 * time.Millisecond,
		Log:               log,
	}

	h := &harness{
		bookings: &mockBookings{},
		finder:   &mockFinder{},
		gateway:  gateway.NewFake(model.PaymentStatusSuccessful),
		notifier: &recordingNotifier{},
	}
	h.rec = New(Dependencies{
		Bookings:  h.bookings,
		Finder:    h.finder,
		Gateway:   h.gateway,
		Notifier:  h.notifier,
		Validator: validator.NewBookingValidator(log),
		Clock:     clock.NewFake(time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)),
	}, cfg)
	return h
}

func outcome(status model.PaymentStatus) *model.PaymentOutcome {
	return &model.PaymentOutcome{
		PaymentID: "pay-1",
		BookingID: "b1",
		Status:    status,
		Amount:    75000,
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name          string
		outcome       *model.PaymentOutcome
		wantConfirmed int
		wantFailed    int
		wantCode      string
	}{
		{name: "successful confirms", outcome: outcome(model.PaymentStatusSuccessful), wantConfirmed: 1},
		{name: "failed records failure", outcome: outcome(model.PaymentStatusFailed), wantFailed: 1},
		{name: "pending is a no-op", outcome: outcome(model.PaymentStatusPending)},
		{
			name:     "unknown status rejected",
			outcome:  outcome(model.PaymentStatus("refunded")),
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "missing booking id rejected",
			outcome:  &model.PaymentOutcome{PaymentID: "pay-1", Status: model.PaymentStatusSuccessful},
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			err := h.rec.Apply(context.Background(), tt.outcome)
			if tt.wantCode != "" {
				if got := apperrors.AsAppError(err); err == nil || got.Code != tt.wantCode {
					t.Fatalf("Apply() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if len(h.bookings.confirmed) != tt.wantConfirmed || len(h.bookings.failed) != tt.wantFailed {
				t.Errorf("confirmed=%v failed=%v", h.bookings.confirmed, h.bookings.failed)
			}
		})
	}
}

func TestApply_RefundRequests(t *testing.T) {
	tests := []struct {
		name       string
		confirmErr error
		wantReason string
	}{
		{
			name:       "payment after hold expiry",
			confirmErr: apperrors.HoldExpired("hold expired", fmt.Errorf("%w: %w", bookingserrors.ErrHoldExpired, bookingserrors.ErrRefundDue)),
			wantReason: refundReasonHoldExpired,
		},
		{
			name:       "payment for cancelled booking",
			confirmErr: apperrors.InvalidTransition("cancelled", fmt.Errorf("%w: %w", bookingserrors.ErrInvalidTransition, bookingserrors.ErrRefundDue)),
			wantReason: refundReasonBookingClosed,
		},
		{
			name:       "payment already refunded",
			confirmErr: apperrors.HoldExpired("hold expired", fmt.Errorf("%w: %w", bookingserrors.ErrHoldExpired, bookingserrors.ErrPaymentSettled)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.bookings.confirmFunc = func(ctx context.Context, id string, paymentID string) (*model.Booking, error) {
				return nil, tt.confirmErr
			}

			if err := h.rec.Apply(context.Background(), outcome(model.PaymentStatusSuccessful)); err != nil {
				t.Fatalf("Apply() error = %v", err)
			}

			if tt.wantReason == "" {
				if len(h.notifier.events) != 0 {
					t.Errorf("expected no events, got %v", h.notifier.events)
				}
				return
			}
			if len(h.notifier.events) != 1 {
				t.Fatalf("expected one event, got %d", len(h.notifier.events))
			}
			ev := h.notifier.events[0]
			if ev.eventType != notifications.EventPaymentRefundRequired || ev.key != "b1" {
				t.Errorf("event = %s/%s", ev.eventType, ev.key)
			}
			refund, ok := ev.payload.(*RefundRequest)
			if !ok || refund.Amount != 75000 || refund.Reason != tt.wantReason {
				t.Errorf("payload = %+v", ev.payload)
			}
		})
	}
}

func TestHandleMessage_Classification(t *testing.T) {
	encode := func(o *model.PaymentOutcome) []byte {
		b, _ := json.Marshal(o)
		return b
	}

	tests := []struct {
		name       string
		value      []byte
		confirmErr error
		wantType   kafka.ErrorType
		wantNil    bool
	}{
		{name: "applied", value: encode(outcome(model.PaymentStatusSuccessful)), wantNil: true},
		{name: "malformed json", value: []byte(`{"payment_id":`), wantType: kafka.ErrorTypePermanent},
		{
			name:       "busy is retried",
			value:      encode(outcome(model.PaymentStatusSuccessful)),
			confirmErr: apperrors.Busy("busy", bookingserrors.ErrBusy),
			wantType:   kafka.ErrorTypeTransient,
		},
		{
			name:       "store failure is retried",
			value:      encode(outcome(model.PaymentStatusSuccessful)),
			confirmErr: apperrors.Internal("store down", errors.New("connection reset")),
			wantType:   kafka.ErrorTypeTransient,
		},
		{
			name:       "cancelled booking is a business error",
			value:      encode(outcome(model.PaymentStatusSuccessful)),
			confirmErr: apperrors.InvalidTransition("not allowed", bookingserrors.ErrInvalidTransition),
			wantType:   kafka.ErrorTypeBusiness,
		},
		{
			name:       "unknown booking is permanent",
			value:      encode(outcome(model.PaymentStatusSuccessful)),
			confirmErr: apperrors.NotFoundWithID("Booking", "b1"),
			wantType:   kafka.ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.confirmErr != nil {
				h.bookings.confirmFunc = func(ctx context.Context, id string, paymentID string) (*model.Booking, error) {
					return nil, tt.confirmErr
				}
			}

			err := h.rec.HandleMessage(context.Background(), kafka.Message{Key: "b1", Value: tt.value})
			if tt.wantNil {
				if err != nil {
					t.Fatalf("HandleMessage() error = %v", err)
				}
				return
			}
			if got := kafka.ClassifyError(err); got != tt.wantType {
				t.Errorf("ClassifyError() = %v, want %v (err %v)", got, tt.wantType, err)
			}
		})
	}
}

func TestReconcilePending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	settled, _ := h.gateway.InitiatePayment(ctx, "b1", 75000, "KZT")
	h.finder.bookings = []*model.Booking{
		{ID: "b1", PaymentID: settled.PaymentID},
		{ID: "b2", PaymentID: "pay-unknown"},
	}

	applied, err := h.rec.ReconcilePending(ctx)
	if err != nil {
		t.Fatalf("ReconcilePending() error = %v", err)
	}
	if applied != 1 {
		t.Errorf("applied = %d, want 1", applied)
	}
	if len(h.bookings.confirmed) != 1 || h.bookings.confirmed[0] != "b1" {
		t.Errorf("confirmed = %v", h.bookings.confirmed)
	}
}

func TestReconcilePending_StillPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gateway.SetOutcome(model.PaymentStatusNone)

	p, _ := h.gateway.InitiatePayment(ctx, "b1", 75000, "KZT")
	h.finder.bookings = []*model.Booking{{ID: "b1", PaymentID: p.PaymentID}}

	applied, err := h.rec.ReconcilePending(ctx)
	if err != nil || applied != 0 {
		t.Errorf("ReconcilePending() = %d, %v; want 0, nil", applied, err)
	}
	if len(h.bookings.confirmed) != 0 {
		t.Errorf("pending payment must not confirm, got %v", h.bookings.confirmed)
	}
}

func TestReconcilePending_ListingFailure(t *testing.T) {
	h := newHarness(t)
	h.finder.err = errors.New("timeout")

	if _, err := h.rec.ReconcilePending(context.Background()); err == nil {
		t.Error("expected listing error")
	}
}
