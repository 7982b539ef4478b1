package services

import (
	"context"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CurrencyConverterSvc converts amounts into the home currency.
type CurrencyConverterSvc interface {
	// HomeCurrency returns the code every serviced account is denominated in.
	HomeCurrency() string

	// ToLocal converts amount in currency to the home currency, rounded half-even to 2 places.
	ToLocal(ctx context.Context, amount decimal.Decimal, currency string) (domain.Conversion, error)
}
