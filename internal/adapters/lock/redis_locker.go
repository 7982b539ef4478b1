package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	"github.com/SscSPs/txn_processor/internal/middleware"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

const (
	defaultExpiry     = 30 * time.Second
	defaultTries      = 32
	defaultRetryDelay = 100 * time.Millisecond
)

// RedisLocker serialises work on a key across processes with the redsync RedLock algorithm.
type RedisLocker struct {
	redsync    *redsync.Redsync
	expiry     time.Duration
	tries      int
	retryDelay time.Duration
}

// Option is a functional option for configuring the RedisLocker
type Option func(*RedisLocker)

// WithExpiry sets the lock TTL. The lock is extended while its holder runs, so the
// expiry only bounds how long a crashed holder blocks the key.
func WithExpiry(expiry time.Duration) Option {
	return func(l *RedisLocker) {
		if expiry > 0 {
			l.expiry = expiry
		}
	}
}

// WithRetry sets the acquisition budget.
func WithRetry(tries int, delay time.Duration) Option {
	return func(l *RedisLocker) {
		if tries > 0 {
			l.tries = tries
		}
		if delay > 0 {
			l.retryDelay = delay
		}
	}
}

// NewRedisLocker creates a locker backed by client.
func NewRedisLocker(client goredislib.UniversalClient, options ...Option) *RedisLocker {
	l := &RedisLocker{
		redsync:    redsync.New(goredis.NewPool(client)),
		expiry:     defaultExpiry,
		tries:      defaultTries,
		retryDelay: defaultRetryDelay,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

var _ gateways.Locker = (*RedisLocker)(nil)

// WithLock runs fn while holding the lock for key. fn's error is returned unchanged.
// Failing to acquire the lock returns an error wrapping gateways.ErrLockNotAcquired.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("lock: nil function")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("lock: empty key")
	}

	logger := middleware.GetLoggerFromCtx(ctx)
	mutex := l.redsync.NewMutex(
		key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(l.retryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		logger.Warn("Failed to acquire lock", slog.String("lock_key", key), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %w", gateways.ErrLockNotAcquired, key, err)
	}

	stopExtending := l.keepAlive(ctx, mutex, key)

	defer func() {
		stopExtending()
		// Released with a fresh context so a cancelled caller still frees the key.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
			logger.Error("Failed to release lock", slog.String("lock_key", key), slog.Bool("unlock_ok", ok), slog.Any("error", err))
		}
	}()

	return fn(ctx)
}

// keepAlive extends the mutex every third of its expiry until the returned stop function
// is called, so a slow fn cannot outlive its lock. stop waits for the extender to exit.
func (l *RedisLocker) keepAlive(ctx context.Context, mutex *redsync.Mutex, key string) (stop func()) {
	logger := middleware.GetLoggerFromCtx(ctx)
	extendCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.expiry / 3)
		defer ticker.Stop()
		for {
			select {
			case <-extendCtx.Done():
				return
			case <-ticker.C:
				if ok, err := mutex.ExtendContext(extendCtx); !ok || err != nil {
					if extendCtx.Err() != nil {
						return
					}
					logger.Warn("Failed to extend lock", slog.String("lock_key", key), slog.Bool("extend_ok", ok), slog.Any("error", err))
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// NoopLocker runs fn without any coordination. Used when Redis is not configured.
type NoopLocker struct{}

var _ gateways.Locker = NoopLocker{}

func (NoopLocker) WithLock(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

// TransactionKey returns the lock key for a transaction id.
func TransactionKey(transactionID string) string {
	return "lock:txn:" + transactionID
}
