package repositories

import (
	"context"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	"github.com/flockpay/xero_adapter_app/internal/models"
)

// FeedConnectionRepository persists the (account, currency) -> remote
// connection id mapping. At most one row exists per pair.
type FeedConnectionRepository interface {
	// FindByCurrency returns the stored connection for the currency, or
	// apperrors.ErrNotFound.
	FindByCurrency(ctx context.Context, accountID, currency string) (*models.FeedConnection, error)

	// ListByAccount returns every stored connection for the account.
	ListByAccount(ctx context.Context, accountID string) ([]models.FeedConnection, error)

	SaveConnection(ctx context.Context, connection models.FeedConnection) error

	DeleteConnection(ctx context.Context, accountID, bankConnectionID string) error
}

// FeedStatementRepository persists exported statement records. The stored row
// is what makes repeat exports of the same entity a no-op. The check-then-
// create sequence has a narrow race window between two concurrent deliveries;
// the design accepts it.
type FeedStatementRepository interface {
	// FindByEntity returns the stored statement for the dedup triple, or
	// apperrors.ErrNotFound.
	FindByEntity(ctx context.Context, accountID, entityID string, entityType domain.EntityType) (*models.FeedStatement, error)

	SaveStatement(ctx context.Context, statement models.FeedStatement) error
}
