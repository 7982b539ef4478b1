package gateways

import (
	"context"
	"errors"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ErrAccountNotFound is returned by the ledger when no account belongs to the user.
var ErrAccountNotFound = errors.New("bank account not found")

// AccountReader reads account state from the external ledger.
type AccountReader interface {
	// FindAccount returns the account owned by userID.
	FindAccount(ctx context.Context, userID string) (*domain.BankAccount, error)
}

// AccountMutator applies balance changes on the external ledger.
type AccountMutator interface {
	// Deposit credits amount (home currency) to the account owned by userID.
	Deposit(ctx context.Context, userID string, amount decimal.Decimal) error
	// Withdraw debits amount (home currency) from the account owned by userID.
	Withdraw(ctx context.Context, userID string, amount decimal.Decimal) error
}

// AccountLedger is the full ledger client capability used by the processors.
type AccountLedger interface {
	AccountReader
	AccountMutator
}
