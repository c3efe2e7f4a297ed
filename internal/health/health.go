// Package health serves the liveness and readiness checks.
package health

import (
	"context"
	"net/http"
	"time"

	kafka_middleware "staybook/pkg/kafka/middleware"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const readyTimeout = 2 * time.Second

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

type Response struct {
	Status   string                            `json:"status"`
	Store    string                            `json:"store,omitempty"`
	Database string                            `json:"database,omitempty"`
	Kafka    *kafka_middleware.MetricsSnapshot `json:"kafka,omitempty"`
}

type Handler struct {
	db      Pinger
	store   string
	metrics *kafka_middleware.Metrics
	log     *logger.Logger
}

// NewHandler builds the health checks. db may be nil for the in-memory store, and
// metrics may be nil when Kafka is disabled.
func NewHandler(db Pinger, store string, metrics *kafka_middleware.Metrics, log *logger.Logger) *Handler {
	return &Handler{
		db:      db,
		store:   store,
		metrics: metrics,
		log:     log,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.write(w, "Health", http.StatusOK, Response{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := Response{Status: "ready", Store: h.store}
	if h.metrics != nil {
		snapshot := h.metrics.Snapshot()
		resp.Kafka = &snapshot
	}

	if h.db == nil {
		h.write(w, "Ready", http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.db.Ping(ctx, nil); err != nil {
		h.log.Error("Database health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		resp.Status = "unavailable"
		resp.Database = "error"
		h.write(w, "Ready", http.StatusServiceUnavailable, resp)
		return
	}

	resp.Database = "ok"
	h.write(w, "Ready", http.StatusOK, resp)
}

func (h *Handler) write(w http.ResponseWriter, handler string, status int, resp Response) {
	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", err)
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
