package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/flockpay/xero_adapter_app/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		FeedConnectionRepo: newPgxFeedConnectionRepository(dbPool),
		FeedStatementRepo:  newPgxFeedStatementRepository(dbPool),
		AccountRepo:        newPgxAccountRepository(dbPool),
	}
}
