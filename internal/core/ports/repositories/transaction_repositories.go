package repositories

import (
	"context"

	"github.com/SscSPs/txn_processor/internal/core/domain"
)

// TransactionReader defines read operations for transaction data
type TransactionReader interface {
	// FindTransactionByID retrieves a transaction by its ID.
	// Returns apperrors.ErrNotFound when no row matches.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// ListTransactions retrieves a page of transactions, newest first, using token-based pagination.
	// It returns the transactions, a token for the next page, and an error.
	ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error)
}

// TransactionWriter defines write operations for transaction data
type TransactionWriter interface {
	// SaveTransaction persists the processing outcome of a transaction.
	// Only rows still in PENDING state are updated; otherwise apperrors.ErrConflict is returned.
	SaveTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, error)
}

// TransactionRepositoryFacade combines all transaction-related repository interfaces
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
}

// TransactionRepositoryWithTx extends TransactionRepositoryFacade with transaction capabilities
type TransactionRepositoryWithTx interface {
	TransactionRepositoryFacade
	TransactionManager
}
