package gateways

import (
	"context"
	"errors"
)

// ErrLockNotAcquired is returned when a lock is held elsewhere for longer than the retry budget.
var ErrLockNotAcquired = errors.New("lock not acquired")

// Locker serialises work on a key across workers and processes.
type Locker interface {
	// WithLock runs fn while holding the lock for key. The lock is released when fn returns.
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}
