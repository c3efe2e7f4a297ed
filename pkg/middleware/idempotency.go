package middleware

import (
	"bytes"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderReplayed marks a response served from the replay cache or shared
	// with a concurrent request carrying the same key.
	HeaderReplayed = "Idempotent-Replayed"
)

// ReplayStore holds successful responses by scoped idempotency key.
type ReplayStore interface {
	Get(key string) (*StoredResponse, bool)
	Set(key string, response *StoredResponse)
	Stop()
}

type StoredResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	StoredAt   time.Time
}

func (s *StoredResponse) writeTo(w http.ResponseWriter, replayed bool) {
	for key, values := range s.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if replayed {
		w.Header().Set(HeaderReplayed, "true")
	}
	w.WriteHeader(s.StatusCode)
	_, _ = w.Write(s.Body)
}

// ReplayCache is a process-local ReplayStore. Entries older than ttl are
// ignored on read and swept periodically.
type ReplayCache struct {
	mu       sync.RWMutex
	entries  map[string]*StoredResponse
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewReplayCache(ttl time.Duration) *ReplayCache {
	c := &ReplayCache{
		entries: make(map[string]*StoredResponse),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go c.sweep(min(ttl, time.Hour))
	return c
}

func (c *ReplayCache) Get(key string) (*StoredResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resp, ok := c.entries[key]
	if !ok || time.Since(resp.StoredAt) > c.ttl {
		return nil, false
	}
	return resp, true
}

func (c *ReplayCache) Set(key string, response *StoredResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	response.StoredAt = time.Now()
	c.entries[key] = response
}

func (c *ReplayCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ReplayCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			for key, resp := range c.entries {
				if time.Since(resp.StoredAt) > c.ttl {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

func (c *ReplayCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// bufferedResponse holds a handler's response until it can be stored and
// handed to every caller sharing the key.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

// Idempotency replays the stored 2xx response for a repeated key. Keys are
// scoped to the method, path and guest, so one key cannot replay another
// endpoint's response. Requests racing on the same key run the handler once
// and share its response, whatever the status.
func Idempotency(store ReplayStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = HeaderIdempotencyKey
	}

	return func(next http.Handler) http.Handler {
		var inflight singleflight.Group

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := replayKey(r, headerName)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if stored, ok := store.Get(key); ok {
				stored.writeTo(w, true)
				return
			}

			ran := false
			v, _, _ := inflight.Do(key, func() (any, error) {
				ran = true
				buf := &bufferedResponse{header: make(http.Header)}
				next.ServeHTTP(buf, r)

				resp := &StoredResponse{
					StatusCode: buf.status,
					Headers:    buf.header,
					Body:       buf.body.Bytes(),
				}
				if resp.StatusCode == 0 {
					resp.StatusCode = http.StatusOK
				}
				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					store.Set(key, resp)
				}
				return resp, nil
			})
			v.(*StoredResponse).writeTo(w, !ran)
		})
	}
}

func replayKey(r *http.Request, headerName string) string {
	key := r.Header.Get(headerName)
	if key == "" {
		return ""
	}
	return strings.Join([]string{r.Method, r.URL.Path, r.Header.Get(HeaderGuestID), key}, "|")
}
