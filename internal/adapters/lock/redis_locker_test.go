package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/txn_processor/internal/adapters/lock"
	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocker(t *testing.T, options ...lock.Option) (*lock.RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.NewRedisLocker(client, options...), mr
}

func TestRedisLocker_RunsFunctionAndReleases(t *testing.T) {
	locker, mr := setupLocker(t)
	key := lock.TransactionKey("abc")
	executed := false

	err := locker.WithLock(context.Background(), key, func(ctx context.Context) error {
		executed = true
		assert.True(t, mr.Exists(key), "lock key is held while fn runs")
		return nil
	})

	require.NoError(t, err)
	assert.True(t, executed)
	assert.False(t, mr.Exists(key), "lock key is removed after fn returns")
}

func TestRedisLocker_ReturnsFunctionError(t *testing.T) {
	locker, _ := setupLocker(t)
	fnErr := errors.New("processing failed")

	err := locker.WithLock(context.Background(), "lock:txn:1", func(context.Context) error { return fnErr })

	assert.ErrorIs(t, err, fnErr)
	assert.NotErrorIs(t, err, gateways.ErrLockNotAcquired)
}

func TestRedisLocker_SerialisesConcurrentHolders(t *testing.T) {
	locker, _ := setupLocker(t, lock.WithRetry(200, 5*time.Millisecond))

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "lock:txn:shared", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
}

func TestRedisLocker_HeldElsewhere_NotAcquired(t *testing.T) {
	locker, mr := setupLocker(t, lock.WithRetry(2, time.Millisecond))
	require.NoError(t, mr.Set("lock:txn:busy", "someone-else"))

	err := locker.WithLock(context.Background(), "lock:txn:busy", func(context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})

	assert.ErrorIs(t, err, gateways.ErrLockNotAcquired)
}

func TestNoopLocker(t *testing.T) {
	called := false
	err := lock.NoopLocker{}.WithLock(context.Background(), "k", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRedisLocker_ExtendsLockWhileFunctionRuns(t *testing.T) {
	expiry := 150 * time.Millisecond
	locker, mr := setupLocker(t, lock.WithExpiry(expiry))
	key := lock.TransactionKey("slow")

	err := locker.WithLock(context.Background(), key, func(context.Context) error {
		// Advance Redis time well past the original expiry in steps; each real-time
		// pause lets the holder extend the key again.
		for i := 0; i < 5; i++ {
			mr.FastForward(expiry / 2)
			time.Sleep(expiry / 2)
			require.True(t, mr.Exists(key), "lock expired while its holder was still running (step %d)", i)
		}
		return nil
	})

	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
}
