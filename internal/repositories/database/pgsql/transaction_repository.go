package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_processor/internal/core/ports/repositories"
	"github.com/SscSPs/txn_processor/internal/models"
	"github.com/SscSPs/txn_processor/internal/utils/mapping"
	"github.com/SscSPs/txn_processor/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `
	transaction_id, user_id, type, status, amount, currency_code,
	source_account_id, target_account_id, description, category,
	transfer_type, buy_type, record_only, correlation_id,
	rejection_code, rejection_reason, local_amount, fx_rate,
	created_at, processed_at`

type PgxTransactionRepository struct {
	BaseRepository
}

// newPgxTransactionRepository creates a new repository for transaction data.
func newPgxTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryWithTx {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.TransactionRepositoryWithTx = (*PgxTransactionRepository)(nil)

// FindTransactionByID retrieves a transaction by its ID.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1;`

	modelTxn, err := scanTransaction(r.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}

	domainTxn, err := mapping.ToDomainTransaction(modelTxn)
	if err != nil {
		return nil, fmt.Errorf("stored transaction is invalid: %w", err)
	}
	return &domainTxn, nil
}

// ListTransactions returns a page of transactions ordered newest first, plus a token
// for the next page when more rows remain.
func (r *PgxTransactionRepository) ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// One extra row tells us whether a next page exists.
	fetchLimit := limit + 1

	var conditions []string
	var args []any
	addArg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		conditions = append(conditions, "status = "+addArg(string(filter.Status)))
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = "+addArg(filter.UserID))
	}
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, err)
		}
		conditions = append(conditions, "(created_at, transaction_id) < ("+addArg(lastCreatedAt)+", "+addArg(lastID)+"::uuid)")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, transaction_id DESC LIMIT " + addArg(fetchLimit) + ";"

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	modelTxns := make([]models.Transaction, 0, fetchLimit)
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		modelTxns = append(modelTxns, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	var newNextToken *string
	if len(modelTxns) > limit {
		last := modelTxns[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		newNextToken = &token
		modelTxns = modelTxns[:limit]
	}

	txns := make([]domain.Transaction, 0, len(modelTxns))
	for _, m := range modelTxns {
		domainTxn, err := mapping.ToDomainTransaction(m)
		if err != nil {
			return nil, nil, fmt.Errorf("stored transaction is invalid: %w", err)
		}
		txns = append(txns, domainTxn)
	}
	return txns, newNextToken, nil
}

// SaveTransaction writes the processing outcome of a transaction.
// The update only applies while the stored row is still PENDING, so a concurrent
// processor that finalized the row first wins and this call returns ErrConflict.
func (r *PgxTransactionRepository) SaveTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, error) {
	modelTxn := mapping.ToModelTransaction(txn)

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Rollback(ctx, tx)
	}()

	query := `
		UPDATE transactions SET
			status = $2,
			rejection_code = $3,
			rejection_reason = $4,
			local_amount = $5,
			fx_rate = $6,
			processed_at = $7
		WHERE transaction_id = $1 AND status = 'PENDING'
		RETURNING ` + transactionColumns + `;`

	saved, err := scanTransaction(tx.QueryRow(ctx, query,
		modelTxn.TransactionID,
		modelTxn.Status,
		modelTxn.RejectionCode,
		modelTxn.RejectionReason,
		modelTxn.LocalAmount,
		modelTxn.FXRate,
		modelTxn.ProcessedAt,
	))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to update transaction %s: %w", modelTxn.TransactionID, err)
		}
		return nil, r.classifyMissedUpdate(ctx, tx, modelTxn.TransactionID)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}

	domainTxn, err := mapping.ToDomainTransaction(saved)
	if err != nil {
		return nil, fmt.Errorf("stored transaction is invalid: %w", err)
	}
	return &domainTxn, nil
}

// classifyMissedUpdate tells a missing row apart from one that already left PENDING.
func (r *PgxTransactionRepository) classifyMissedUpdate(ctx context.Context, tx pgx.Tx, transactionID string) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM transactions WHERE transaction_id = $1;`, transactionID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to check transaction %s: %w", transactionID, err)
	}
	return fmt.Errorf("%w: transaction %s is already %s", apperrors.ErrConflict, transactionID, status)
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.UserID,
		&m.Type,
		&m.Status,
		&m.Amount,
		&m.CurrencyCode,
		&m.SourceAccountID,
		&m.TargetAccountID,
		&m.Description,
		&m.Category,
		&m.TransferType,
		&m.BuyType,
		&m.RecordOnly,
		&m.CorrelationID,
		&m.RejectionCode,
		&m.RejectionReason,
		&m.LocalAmount,
		&m.FXRate,
		&m.CreatedAt,
		&m.ProcessedAt,
	)
	return m, err
}
