package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	"github.com/SscSPs/txn_processor/internal/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisRateCache shares rates between processor instances.
// Read failures degrade to a miss and write failures are logged, so Redis outages only cost extra quote fetches.
type RedisRateCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisRateCache creates a cache over client. A non-positive ttl stores keys without expiry.
func NewRedisRateCache(client redis.UniversalClient, ttl time.Duration) *RedisRateCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisRateCache{client: client, ttl: ttl}
}

var _ gateways.RateCache = (*RedisRateCache)(nil)

func (c *RedisRateCache) GetRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, bool) {
	key := RateKey(currency, date)
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.GetLoggerFromCtx(ctx).Warn("Rate cache read failed, treating as miss",
				slog.String("key", key), slog.String("error", err.Error()))
		}
		return decimal.Zero, false
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Rate cache holds an unparsable value, treating as miss",
			slog.String("key", key), slog.String("value", raw))
		return decimal.Zero, false
	}
	return rate, true
}

func (c *RedisRateCache) SetRate(ctx context.Context, currency string, date time.Time, rate decimal.Decimal) {
	key := RateKey(currency, date)
	if err := c.client.Set(ctx, key, rate.String(), c.ttl).Err(); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Rate cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}
