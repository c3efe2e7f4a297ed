package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type slot struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Each key owns a one-slot semaphore that is
// dropped once no goroutine holds or waits for it.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{
		slots: make(map[string]*slot),
		wait:  wait,
	}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (Release, error) {
	s := k.ref(key)

	if k.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.wait)
		defer cancel()
	}

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				k.unref(key, s)
			})
		}, nil
	case <-ctx.Done():
		k.unref(key, s)
		return nil, fmt.Errorf("%w %q: %v", ErrTimeout, key, ctx.Err())
	}
}

func (k *KeyedMutex) ref(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()

	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *KeyedMutex) unref(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
