package handler

import (
	"net/http"

	"staybook/internal/bookings/service"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	h.writeSuccess(w, "GetByID", booking)
}

func (h *BookingHandler) ListByProperty(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListByProperty", err)
		return
	}
	dr, err := httputil.ExtractOptionalDateRange(r)
	if err != nil {
		h.writeError(w, "ListByProperty", err)
		return
	}

	bookings, total, err := h.service.ListByProperty(r.Context(), ps.ByName("property_id"), dr, limit, offset)
	if err != nil {
		h.writeError(w, "ListByProperty", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByProperty", "operation", "WritePaginated", "error", err)
	}
}

// Confirm is the operator path for a payment confirmed out of band.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ConfirmBookingRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.writeError(w, "Confirm", err)
			return
		}
	}

	booking, err := h.service.ConfirmOnPayment(r.Context(), ps.ByName("id"), req.PaymentID)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}
	h.writeSuccess(w, "Confirm", booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.CancelBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	booking, err := h.service.Cancel(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}
	h.writeSuccess(w, "Cancel", booking)
}

func (h *BookingHandler) InitiatePayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := h.service.InitiatePayment(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "InitiatePayment", err)
		return
	}

	if err := httputil.WriteCreated(w, session); err != nil {
		h.log.Error("failed to write created response", "handler", "InitiatePayment", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) CheckIn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.CheckIn(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "CheckIn", err)
		return
	}
	h.writeSuccess(w, "CheckIn", booking)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Complete(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}
	h.writeSuccess(w, "Complete", booking)
}

func (h *BookingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/confirm", h.Confirm)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/id/:id/payment", h.InitiatePayment)
	router.POST("/api/v1/bookings/id/:id/check-in", h.CheckIn)
	router.POST("/api/v1/bookings/id/:id/complete", h.Complete)
	router.GET("/api/v1/properties/:property_id/bookings", h.ListByProperty)
}
