package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Conversion is the result of translating an amount into the home currency.
type Conversion struct {
	OriginalAmount   decimal.Decimal `json:"originalAmount"`
	OriginalCurrency string          `json:"originalCurrency"`
	LocalAmount      decimal.Decimal `json:"localAmount"`
	Rate             decimal.Decimal `json:"rate"`      // Home-currency units per one unit of OriginalCurrency
	QuoteDate        time.Time       `json:"quoteDate"` // Zero for pass-through conversions
}

// IsPassThrough reports whether no rate lookup was needed.
func (c Conversion) IsPassThrough() bool {
	return c.QuoteDate.IsZero()
}

// ExchangeQuote is a single published quote for a currency on a given date.
type ExchangeQuote struct {
	Currency  string           `json:"currency"`
	BuyRate   *decimal.Decimal `json:"buyRate,omitempty"`
	SellRate  *decimal.Decimal `json:"sellRate,omitempty"` // Nil when the source omitted the field
	QuotedAt  time.Time        `json:"quotedAt"`
	QuoteType string           `json:"quoteType"`
}
