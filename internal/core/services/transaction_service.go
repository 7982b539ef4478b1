package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_processor/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/google/uuid"
)

// transactionService exposes read-only transaction lookups.
type transactionService struct {
	BaseService
	transactionRepo portsrepo.TransactionReader
}

// NewTransactionService creates a new transaction reader service.
func NewTransactionService(transactionRepo portsrepo.TransactionReader) portssvc.TransactionReaderSvc {
	return &transactionService{transactionRepo: transactionRepo}
}

var _ portssvc.TransactionReaderSvc = (*transactionService)(nil)

func (s *transactionService) GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	if _, err := uuid.Parse(transactionID); err != nil {
		return nil, fmt.Errorf("%w: transaction id %q is not a valid uuid", apperrors.ErrValidation, transactionID)
	}

	txn, err := s.transactionRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		s.LogDebug(ctx, "Transaction lookup failed",
			slog.String("transaction_id", transactionID),
			slog.String("error", err.Error()))
		return nil, err
	}
	return txn, nil
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ListTransactions returns a page of transactions, newest first.
// A limit outside 1..100 falls back to the default page size.
func (s *transactionService) ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if filter.Status != "" {
		switch filter.Status {
		case domain.StatusPending, domain.StatusApproved, domain.StatusRejected:
		default:
			return nil, nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, filter.Status)
		}
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	txns, next, err := s.transactionRepo.ListTransactions(ctx, filter, limit, nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions",
			slog.String("status", string(filter.Status)),
			slog.String("user_id", filter.UserID))
		return nil, nil, err
	}
	return txns, next, nil
}
