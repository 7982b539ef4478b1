package services_test

import (
	"context"
	"testing"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/SscSPs/txn_processor/internal/core/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionService_GetTransactionByID(t *testing.T) {
	repo := new(MockTransactionRepository)
	svc := services.NewTransactionService(repo)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		id := uuid.NewString()
		want := &domain.Transaction{ID: id, Status: domain.StatusPending}
		repo.On("FindTransactionByID", ctx, id).Return(want, nil).Once()

		got, err := svc.GetTransactionByID(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		repo.On("FindTransactionByID", ctx, id).Return(nil, apperrors.ErrNotFound).Once()

		_, err := svc.GetTransactionByID(ctx, id)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := svc.GetTransactionByID(ctx, "not-a-uuid")

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	repo.AssertExpectations(t)
}

func TestTransactionService_ListTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("passes filter and token through", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := services.NewTransactionService(repo)
		filter := domain.TransactionFilter{Status: domain.StatusRejected, UserID: uuid.NewString()}
		token := "cursor"
		next := "next-cursor"
		page := []domain.Transaction{{ID: uuid.NewString(), Status: domain.StatusRejected}}
		repo.On("ListTransactions", ctx, filter, 50, &token).Return(page, &next, nil).Once()

		got, gotNext, err := svc.ListTransactions(ctx, filter, 50, &token)

		require.NoError(t, err)
		assert.Equal(t, page, got)
		require.NotNil(t, gotNext)
		assert.Equal(t, next, *gotNext)
		repo.AssertExpectations(t)
	})

	t.Run("out of range limit falls back to default", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := services.NewTransactionService(repo)
		repo.On("ListTransactions", ctx, domain.TransactionFilter{}, 20, (*string)(nil)).Return([]domain.Transaction{}, nil, nil).Twice()

		_, _, err := svc.ListTransactions(ctx, domain.TransactionFilter{}, 0, nil)
		require.NoError(t, err)
		_, _, err = svc.ListTransactions(ctx, domain.TransactionFilter{}, 1000, nil)
		require.NoError(t, err)

		repo.AssertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := services.NewTransactionService(repo)

		_, _, err := svc.ListTransactions(ctx, domain.TransactionFilter{Status: "SETTLED"}, 10, nil)

		assert.ErrorIs(t, err, apperrors.ErrValidation)
		repo.AssertNotCalled(t, "ListTransactions")
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := services.NewTransactionService(repo)
		repo.On("ListTransactions", ctx, domain.TransactionFilter{}, 10, (*string)(nil)).Return(nil, nil, assert.AnError).Once()

		_, _, err := svc.ListTransactions(ctx, domain.TransactionFilter{}, 10, nil)

		assert.ErrorIs(t, err, assert.AnError)
	})
}
