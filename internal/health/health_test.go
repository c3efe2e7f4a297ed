package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	kafka_middleware "staybook/pkg/kafka/middleware"
	"staybook/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return m.err
}

func serve(h *Handler, path string) (*httptest.ResponseRecorder, Response) {
	router := httprouter.New()
	h.RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestReady(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})

	tests := []struct {
		name         string
		db           Pinger
		store        string
		wantStatus   int
		wantDatabase string
	}{
		{name: "mongo up", db: &mockPinger{}, store: "mongo", wantStatus: http.StatusOK, wantDatabase: "ok"},
		{name: "mongo down", db: &mockPinger{err: errors.New("no reachable servers")}, store: "mongo", wantStatus: http.StatusServiceUnavailable, wantDatabase: "error"},
		{name: "memory store", store: "memory", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := serve(NewHandler(tt.db, tt.store, kafka_middleware.NewMetrics(), log), "/ready")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if resp.Database != tt.wantDatabase || resp.Store != tt.store {
				t.Errorf("response = %+v", resp)
			}
			if resp.Kafka == nil {
				t.Error("expected kafka metrics snapshot")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	w, resp := serve(NewHandler(&mockPinger{err: errors.New("down")}, "mongo", nil, log), "/health")

	if w.Code != http.StatusOK || resp.Status != "ok" {
		t.Errorf("health = %d %+v, liveness must not depend on the database", w.Code, resp)
	}
}
