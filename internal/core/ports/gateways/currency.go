package gateways

import (
	"context"
	"time"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/shopspring/decimal"
)

// QuoteSource fetches published exchange quotes for a currency on a specific date.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, currency string, date time.Time) ([]domain.ExchangeQuote, error)
}

// RateCache memoises rates per (currency, quote date). Implementations must be safe for concurrent use.
type RateCache interface {
	// GetRate returns the cached rate and true on a hit.
	GetRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, bool)
	// SetRate stores a rate. Storage failures are the implementation's concern.
	SetRate(ctx context.Context, currency string, date time.Time, rate decimal.Decimal)
}
