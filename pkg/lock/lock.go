// Package lock provides exclusive sections scoped by key, used to serialize
// calendar writers of a single property.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the key stays held for longer than the wait budget.
var ErrTimeout = errors.New("timed out waiting for lock")

// Release ends an exclusive section. It is safe to call more than once.
type Release func()

type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Lease bounds work done while holding a lock that lapses after ttl. The
// returned context ends a fifth of ttl early so the work commits and releases
// before another process may take the lock over. A non-positive ttl adds no
// deadline.
func Lease(ctx context.Context, ttl time.Duration) (context.Context, context.CancelFunc) {
	if ttl <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, ttl-ttl/5)
}
