package gateway

import (
	"context"
	"fmt"
	"sync"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/model"

	"github.com/google/uuid"
)

// Fake is an in-process gateway. Payments start pending and settle to the
// configured outcome on the first CheckStatus.
type Fake struct {
	mu       sync.Mutex
	outcome  model.PaymentStatus
	failNext error
	payments map[string]*PaymentState
}

func NewFake(outcome model.PaymentStatus) *Fake {
	return &Fake{
		outcome:  outcome,
		payments: make(map[string]*PaymentState),
	}
}

// SetOutcome changes the status future checks settle to.
func (f *Fake) SetOutcome(outcome model.PaymentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcome = outcome
}

// FailNext makes the next call return err wrapped as a gateway error.
func (f *Fake) FailNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = err
}

func (f *Fake) takeFailure() error {
	if f.failNext == nil {
		return nil
	}
	err := fmt.Errorf("%w: %v", bookingserrors.ErrGateway, f.failNext)
	f.failNext = nil
	return err
}

func (f *Fake) InitiatePayment(ctx context.Context, bookingID string, amount int64, currency string) (*model.PaymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return nil, err
	}

	id := "pay_" + uuid.NewString()
	f.payments[id] = &PaymentState{
		PaymentID: id,
		BookingID: bookingID,
		Status:    model.PaymentStatusPending,
		Amount:    amount,
	}
	return &model.PaymentSession{
		PaymentID:   id,
		CheckoutURL: "https://pay.example.test/checkout/" + id,
		Status:      model.PaymentStatusPending,
		Amount:      amount,
		Currency:    currency,
	}, nil
}

func (f *Fake) CheckStatus(ctx context.Context, paymentID string) (*PaymentState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return nil, err
	}

	p, ok := f.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment %s", bookingserrors.ErrGateway, paymentID)
	}
	if p.Status == model.PaymentStatusPending && f.outcome != model.PaymentStatusNone {
		p.Status = f.outcome
	}
	cp := *p
	return &cp, nil
}
