// Package gateway talks to the external payment provider.
package gateway

import (
	"context"
	"fmt"
	"net/url"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/client"
	"staybook/pkg/model"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	paymentsPath = "/v1/payments"
)

// PaymentState is the provider's view of a payment.
type PaymentState struct {
	PaymentID string              `json:"payment_id"`
	BookingID string              `json:"booking_id"`
	Status    model.PaymentStatus `json:"status"`
	Amount    int64               `json:"amount"`
}

type Gateway interface {
	InitiatePayment(ctx context.Context, bookingID string, amount int64, currency string) (*model.PaymentSession, error)
	CheckStatus(ctx context.Context, paymentID string) (*PaymentState, error)
}

type initiateRequest struct {
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type httpGateway struct {
	client *client.HttpClient
}

func NewHTTPGateway(baseURL string, timeout time.Duration) Gateway {
	return &httpGateway{
		client: client.NewHttpClient(baseURL, timeout),
	}
}

func (g *httpGateway) InitiatePayment(ctx context.Context, bookingID string, amount int64, currency string) (*model.PaymentSession, error) {
	resp, err := g.client.POSTWithHeaders(ctx, paymentsPath,
		initiateRequest{BookingID: bookingID, Amount: amount, Currency: currency},
		map[string]string{HeaderIdempotencyKey: bookingID},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bookingserrors.ErrGateway, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: initiate payment: %s", bookingserrors.ErrGateway, client.GetErrorMessage(resp))
	}

	var session model.PaymentSession
	if err := resp.DecodeJSON(&session); err != nil {
		return nil, fmt.Errorf("%w: decode payment session: %v", bookingserrors.ErrGateway, err)
	}
	if session.PaymentID == "" {
		return nil, fmt.Errorf("%w: payment session without id", bookingserrors.ErrGateway)
	}
	if session.Status == model.PaymentStatusNone {
		session.Status = model.PaymentStatusPending
	}
	return &session, nil
}

func (g *httpGateway) CheckStatus(ctx context.Context, paymentID string) (*PaymentState, error) {
	resp, err := g.client.GET(ctx, paymentsPath+"/"+url.PathEscape(paymentID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bookingserrors.ErrGateway, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: check status: %s", bookingserrors.ErrGateway, client.GetErrorMessage(resp))
	}

	var state PaymentState
	if err := resp.DecodeJSON(&state); err != nil {
		return nil, fmt.Errorf("%w: decode payment state: %v", bookingserrors.ErrGateway, err)
	}
	if !state.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", bookingserrors.ErrGateway, state.Status)
	}
	return &state, nil
}
