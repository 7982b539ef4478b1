package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrBlankCurrency  = errors.New("currency is required")
	ErrBlankAccountID = errors.New("account id is required")
)

// Money is an immutable positive amount in a given currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney validates and builds a Money value. The currency code is normalised to upper case.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Money{}, fmt.Errorf("%w: got %s", ErrInvalidAmount, amount.String())
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return Money{}, ErrBlankCurrency
	}
	return Money{Amount: amount, Currency: code}, nil
}

// IsCurrency reports whether m is denominated in the given currency code.
func (m Money) IsCurrency(code string) bool {
	return strings.EqualFold(m.Currency, strings.TrimSpace(code))
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

// AccountRef identifies the account on the source side of a transaction.
type AccountRef struct {
	AccountID string `json:"accountId"`
}

// NewAccountRef builds an AccountRef, rejecting blank identifiers.
func NewAccountRef(accountID string) (AccountRef, error) {
	id := strings.TrimSpace(accountID)
	if id == "" {
		return AccountRef{}, ErrBlankAccountID
	}
	return AccountRef{AccountID: id}, nil
}
