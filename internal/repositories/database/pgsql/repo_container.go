package pgsql

import (
	portsrepo "github.com/SscSPs/txn_processor/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	transactionRepo := newPgxTransactionRepository(dbPool)

	return portsrepo.RepositoryProvider{
		TransactionRepo: transactionRepo,
		Health:          &BaseRepository{Pool: dbPool},
	}
}
