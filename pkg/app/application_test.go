package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"staybook/pkg/config"
	"staybook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type routeHandler struct {
	method string
	path   string
	status int
}

func (h routeHandler) RegisterRoutes(router *httprouter.Router) {
	router.Handle(h.method, h.path, func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(h.status)
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
		ShutdownTimeout:   time.Second,
		Log:               logger.New(logger.Config{Level: "error", Output: io.Discard}),
	}
}

func TestSetApp_Routing(t *testing.T) {
	a := NewApplication(testConfig())
	a.SetApp(
		routeHandler{method: http.MethodGet, path: "/health", status: http.StatusOK},
		routeHandler{method: http.MethodGet, path: "/api/v1/bookings/id/:id", status: http.StatusOK},
		routeHandler{method: http.MethodPost, path: "/api/v1/bookings/id/:id/confirm", status: http.StatusOK},
	)
	defer a.rateLimiter.Stop()
	defer a.idempotencyStore.Stop()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "api route", method: http.MethodGet, path: "/api/v1/bookings/id/b1", wantStatus: http.StatusOK},
		{name: "bodyless command", method: http.MethodPost, path: "/api/v1/bookings/id/b1/confirm", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/unknown", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			a.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestSetApp_GuestRateLimited(t *testing.T) {
	a := NewApplication(testConfig())
	a.SetApp(
		routeHandler{method: http.MethodGet, path: "/health", status: http.StatusOK},
		routeHandler{method: http.MethodGet, path: "/api/v1/bookings/id/:id", status: http.StatusOK},
	)
	defer a.rateLimiter.Stop()
	defer a.idempotencyStore.Stop()

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/b1", nil)
		req.Header.Set("X-Guest-ID", "g1")
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, req)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}
