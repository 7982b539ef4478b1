package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	"github.com/shopspring/decimal"
)

type rateEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// MemoryRateCache is an in-process rate cache with per-entry expiry.
type MemoryRateCache struct {
	mu      sync.RWMutex
	entries map[string]rateEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryRateCache creates an empty cache. A non-positive ttl keeps entries forever.
func NewMemoryRateCache(ttl time.Duration) *MemoryRateCache {
	return &MemoryRateCache{
		entries: make(map[string]rateEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

var _ gateways.RateCache = (*MemoryRateCache)(nil)

func (c *MemoryRateCache) GetRate(_ context.Context, currency string, date time.Time) (decimal.Decimal, bool) {
	key := RateKey(currency, date)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return decimal.Zero, false
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have refreshed it.
		if current, still := c.entries[key]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return decimal.Zero, false
	}
	return entry.rate, true
}

func (c *MemoryRateCache) SetRate(_ context.Context, currency string, date time.Time, rate decimal.Decimal) {
	entry := rateEntry{rate: rate}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[RateKey(currency, date)] = entry
	c.mu.Unlock()
}

// RateKey is the storage key for a (currency, quote date) pair.
func RateKey(currency string, date time.Time) string {
	return "fxrate:" + strings.ToUpper(strings.TrimSpace(currency)) + ":" + date.Format(time.DateOnly)
}
