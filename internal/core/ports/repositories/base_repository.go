package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager scopes several statements in one database transaction.
// SaveTransaction uses it to pair the compare-and-set update with its follow-up status read.
type TransactionManager interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Commit(ctx context.Context, tx pgx.Tx) error
	// Rollback is a no-op on a transaction that was already committed.
	Rollback(ctx context.Context, tx pgx.Tx) error
}
