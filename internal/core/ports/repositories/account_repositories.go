package repositories

import (
	"context"

	"github.com/flockpay/xero_adapter_app/internal/models"
)

// AccountRecordRepository persists the local account row binding an account
// to its sink tenant.
type AccountRecordRepository interface {
	// FindByID returns the account row, or apperrors.ErrNotFound.
	FindByID(ctx context.Context, accountID string) (*models.Account, error)

	// SaveAccount inserts the account row.
	SaveAccount(ctx context.Context, account models.Account) error

	// UpdateTenant binds (or clears) the sink tenant id.
	UpdateTenant(ctx context.Context, accountID string, tenantID *string) error

	// MarkInitialSyncCompleted flips the initial-sync flag.
	MarkInitialSyncCompleted(ctx context.Context, accountID string) error

	// UpdateAPIKeyHash stores the bcrypt hash of the source API key.
	UpdateAPIKeyHash(ctx context.Context, accountID string, hash string) error

	// UpdateOAuthToken stores (or clears) the serialized sink OAuth token.
	UpdateOAuthToken(ctx context.Context, accountID string, token *string) error
}

// RepositoryProvider bundles all repositories for dependency injection.
type RepositoryProvider struct {
	FeedConnectionRepo FeedConnectionRepository
	FeedStatementRepo  FeedStatementRepository
	AccountRepo        AccountRecordRepository
}
