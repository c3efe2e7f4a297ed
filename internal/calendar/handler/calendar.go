package handler

import (
	"net/http"

	"staybook/internal/calendar/service"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type CalendarHandler struct {
	service service.CalendarService
	log     *logger.Logger
}

func NewCalendarHandler(service service.CalendarService, log *logger.Logger) *CalendarHandler {
	return &CalendarHandler{
		service: service,
		log:     log,
	}
}

func (h *CalendarHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dr, err := httputil.ExtractDateRange(r)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	days, err := h.service.ListAvailability(r.Context(), ps.ByName("property_id"), dr)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, days); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CalendarHandler) Price(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dr, err := httputil.ExtractDateRange(r)
	if err != nil {
		h.writeError(w, "Price", err)
		return
	}

	quote, err := h.service.Quote(r.Context(), ps.ByName("property_id"), dr)
	if err != nil {
		h.writeError(w, "Price", err)
		return
	}

	if err := httputil.WriteSuccess(w, quote); err != nil {
		h.log.Error("failed to write success response", "handler", "Price", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CalendarHandler) Block(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ManualBlockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Block", err)
		return
	}

	block, err := h.service.BlockDates(r.Context(), ps.ByName("property_id"), &req)
	if err != nil {
		h.writeError(w, "Block", err)
		return
	}

	if err := httputil.WriteCreated(w, block); err != nil {
		h.log.Error("failed to write created response", "handler", "Block", "operation", "WriteCreated", "error", err)
	}
}

func (h *CalendarHandler) Unblock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.UnblockDates(r.Context(), ps.ByName("property_id"), ps.ByName("block_id")); err != nil {
		h.writeError(w, "Unblock", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CalendarHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CalendarHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/properties/:property_id/availability", h.Availability)
	router.GET("/api/v1/properties/:property_id/price", h.Price)
	router.POST("/api/v1/properties/:property_id/blocks", h.Block)
	router.DELETE("/api/v1/properties/:property_id/blocks/:block_id", h.Unblock)
}
