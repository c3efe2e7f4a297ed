package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"staybook/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuestRateLimit(t *testing.T) {
	limiter := NewGuestRateLimiter(2, time.Minute, nil, testLogger())
	defer limiter.Stop()
	h := GuestRateLimit(limiter)(okHandler())

	send := func(guest string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/b1", nil)
		if guest != "" {
			req.Header.Set(HeaderGuestID, guest)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("g1"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, code)
		}
	}
	if code := send("g1"); code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", code)
	}
	if code := send("g2"); code != http.StatusOK {
		t.Errorf("other guest status = %d, want 200", code)
	}
	for i := 0; i < 5; i++ {
		if code := send(""); code != http.StatusOK {
			t.Errorf("anonymous request status = %d, want 200", code)
		}
	}
}

func TestWebhookSignature(t *testing.T) {
	const secret = "whsec"
	body := `{"payment_id":"pay-1","booking_id":"b1","status":"successful"}`

	var reached bool
	h := WebhookSignature(secret, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ := io.ReadAll(r.Body)
		reached = string(got) == body
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		signature  string
		wantStatus int
	}{
		{name: "valid", signature: "sha256=" + Sign([]byte(body), secret), wantStatus: http.StatusOK},
		{name: "valid without prefix", signature: Sign([]byte(body), secret), wantStatus: http.StatusOK},
		{name: "missing", signature: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", signature: Sign([]byte(body), "other"), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = false
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(HeaderSignature, tt.signature)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if (tt.wantStatus == http.StatusOK) != reached {
				t.Errorf("handler reached = %v with intact body", reached)
			}
		})
	}
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(testLogger())(okHandler())

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		wantStatus  int
	}{
		{name: "json post", method: http.MethodPost, body: `{}`, contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "form post", method: http.MethodPost, body: `a=b`, contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType},
		{name: "bodyless post", method: http.MethodPost, wantStatus: http.StatusOK},
		{name: "get", method: http.MethodGet, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/api/v1/bookings/id/b1/confirm", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestIdempotency_ScopedByPath(t *testing.T) {
	store := NewReplayCache(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(r.URL.Path + "#" + string(rune('0'+n))))
	}))

	send := func(path string) string {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Idempotency-Key", "k1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Body.String()
	}

	first := send("/api/v1/bookings")
	replay := send("/api/v1/bookings")
	other := send("/api/v1/bookings/id/b1/cancel")

	if first != replay {
		t.Errorf("replay = %q, want %q", replay, first)
	}
	if other == first || calls.Load() != 2 {
		t.Errorf("other path body %q, handler calls %d", other, calls.Load())
	}
}

func TestIdempotency_ConcurrentDuplicatesRunOnce(t *testing.T) {
	store := NewReplayCache(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	release := make(chan struct{})
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("dates taken"))
	}))

	const n = 5
	var wg sync.WaitGroup
	codes := make([]int, n)
	replayed := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
			req.Header.Set(HeaderIdempotencyKey, "k1")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			codes[i] = w.Code
			replayed[i] = w.Header().Get(HeaderReplayed)
		}(i)
	}

	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", calls.Load())
	}
	fresh := 0
	for i := range codes {
		if codes[i] != http.StatusConflict {
			t.Errorf("request %d: status %d, want %d", i, codes[i], http.StatusConflict)
		}
		if replayed[i] == "" {
			fresh++
		}
	}
	if fresh != 1 {
		t.Errorf("%d responses unmarked, want only the one that ran the handler", fresh)
	}
	if store.Len() != 0 {
		t.Errorf("non-2xx response was stored")
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Errorf("panic value leaked: %s", w.Body.String())
	}
}

func TestRequestLogging_PropagatesRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFrom(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if seen != "req-42" || w.Header().Get(HeaderRequestID) != "req-42" {
		t.Errorf("request id = %q, header = %q", seen, w.Header().Get(HeaderRequestID))
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(8)(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}
