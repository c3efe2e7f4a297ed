package handler

import (
	"context"
	"net/http"

	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/middleware"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const WebhookPath = "/api/v1/payments/webhook"

// OutcomeApplier is satisfied by *reconciler.Reconciler.
type OutcomeApplier interface {
	Apply(ctx context.Context, outcome *model.PaymentOutcome) error
}

type WebhookHandler struct {
	reconciler OutcomeApplier
	secret     string
	log        *logger.Logger
}

func NewWebhookHandler(reconciler OutcomeApplier, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		secret:     secret,
		log:        log,
	}
}

type webhookAck struct {
	BookingID string              `json:"booking_id"`
	PaymentID string              `json:"payment_id"`
	Status    model.PaymentStatus `json:"status"`
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var outcome model.PaymentOutcome
	if err := httputil.DecodeJSON(r, &outcome); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.reconciler.Apply(r.Context(), &outcome); err != nil {
		h.log.Warn("Payment webhook not applied", "booking_id", outcome.BookingID, "payment_id", outcome.PaymentID, "error", err)
		h.writeError(w, err)
		return
	}

	ack := webhookAck{BookingID: outcome.BookingID, PaymentID: outcome.PaymentID, Status: outcome.Status}
	if err := httputil.WriteSuccess(w, ack); err != nil {
		h.log.Error("failed to write success response", "handler", "Receive", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WebhookHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Receive", "operation", "WriteError", "error", writeErr)
	}
}

// RegisterRoutes mounts the webhook behind signature verification. Without a
// secret the endpoint stays unmounted.
func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	if h.secret == "" {
		h.log.Warn("Payment webhook disabled, no signing secret configured")
		return
	}
	router.Handler(http.MethodPost, WebhookPath,
		middleware.WebhookSignature(h.secret, h.log)(http.HandlerFunc(h.Receive)))
}
