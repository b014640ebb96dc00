package services

import (
	"context"
	"time"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateStatementParams describes one statement line to mirror into the
// sink's bank feed. EntityID/EntityType form the local dedup key. Amount is
// signed from the bank account's perspective: money out is negative and posts
// as a debit, money in positive and posts as a credit.
type CreateStatementParams struct {
	BankAccount *domain.BankAccount
	EntityID    string
	EntityType  domain.EntityType
	Date        time.Time
	Amount      decimal.Decimal
	ContactName string
	Description string
}

// BankFeedSvcFacade wraps feed-connection acquisition and the statement
// creation/repair protocol.
type BankFeedSvcFacade interface {
	// GetOrCreateConnection resolves the feed connection for the bank
	// account's currency, creating and persisting one lazily. Pending remote
	// connections are polled a fixed number of times before failing.
	GetOrCreateConnection(ctx context.Context, bankAccount *domain.BankAccount) (*domain.FeedConnection, error)

	// HasStatement reports whether a statement was already exported for the
	// (entity id, entity type) pair.
	HasStatement(ctx context.Context, entityID string, entityType domain.EntityType) (bool, error)

	// CreateStatement posts one statement line unless one was already
	// exported for the entity. Stale-connection rejections are repaired by
	// re-acquiring the connection exactly once; duplicate rejections are a
	// no-op.
	CreateStatement(ctx context.Context, params CreateStatementParams) error

	// CloseAllConnections closes every stored connection for the account.
	// Local records are deleted regardless of the remote outcome.
	CloseAllConnections(ctx context.Context) error
}
