package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BankAccount is the ledger's view of a user's account.
// Balances are denominated in Currency, which must be the home currency to be serviced.
type BankAccount struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
	Active     bool            `json:"active"`
	OwnerEmail string          `json:"ownerEmail"`
}

// HasFunds reports whether the balance covers amount. Equality is sufficient.
func (a BankAccount) HasFunds(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// InCurrency reports whether the account is denominated in code.
func (a BankAccount) InCurrency(code string) bool {
	return strings.EqualFold(strings.TrimSpace(a.Currency), strings.TrimSpace(code))
}
