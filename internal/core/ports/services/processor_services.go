package services

import (
	"context"

	"github.com/SscSPs/txn_processor/internal/core/domain"
)

// TransactionProcessorSvc settles one transaction type.
//
// Implementations return nil for business rejections and idempotent redeliveries.
// They return an error only for fatal conditions (transaction missing, store failure),
// in which case the message must not be acknowledged.
type TransactionProcessorSvc interface {
	Type() domain.TransactionType
	Process(ctx context.Context, event domain.TransactionRequestedEvent) (*domain.Transaction, error)
}

// DispatcherSvc routes a requested event to the processor for its type.
type DispatcherSvc interface {
	Dispatch(ctx context.Context, event domain.TransactionRequestedEvent) (*domain.Transaction, error)
}

// TransactionReaderSvc exposes read-only transaction lookups for operators.
type TransactionReaderSvc interface {
	GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error)
}
