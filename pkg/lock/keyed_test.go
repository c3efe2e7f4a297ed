package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex(time.Second)
	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := km.Acquire(context.Background(), "property-1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most one holder, saw %d", maxInside)
	}
	if km.Len() != 0 {
		t.Errorf("expected all slots to be released, got %d", km.Len())
	}
}

func TestKeyedMutex_DifferentKeysDoNotContend(t *testing.T) {
	km := NewKeyedMutex(50 * time.Millisecond)

	releaseA, err := km.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer releaseA()

	releaseB, err := km.Acquire(context.Background(), "b")
	if err != nil {
		t.Fatalf("acquire b while a is held: %v", err)
	}
	releaseB()
}

func TestKeyedMutex_TimesOut(t *testing.T) {
	km := NewKeyedMutex(20 * time.Millisecond)

	release, err := km.Acquire(context.Background(), "p")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	start := time.Now()
	_, err = km.Acquire(context.Background(), "p")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("wait was not bounded")
	}

	release()
	release()

	again, err := km.Acquire(context.Background(), "p")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}

func TestKeyedMutex_RespectsCallerContext(t *testing.T) {
	km := NewKeyedMutex(time.Minute)
	release, _ := km.Acquire(context.Background(), "p")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := km.Acquire(ctx, "p"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout on cancelled context, got %v", err)
	}
}

func TestLease(t *testing.T) {
	tests := []struct {
		name         string
		ttl          time.Duration
		wantDeadline bool
		maxRemaining time.Duration
	}{
		{name: "ttl leaves commit margin", ttl: 30 * time.Second, wantDeadline: true, maxRemaining: 24 * time.Second},
		{name: "no ttl", ttl: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := Lease(context.Background(), tt.ttl)
			defer cancel()

			deadline, ok := ctx.Deadline()
			if ok != tt.wantDeadline {
				t.Fatalf("Deadline() set = %v, want %v", ok, tt.wantDeadline)
			}
			if ok && time.Until(deadline) > tt.maxRemaining {
				t.Errorf("lease runs %s, want at most %s", time.Until(deadline), tt.maxRemaining)
			}
		})
	}
}
