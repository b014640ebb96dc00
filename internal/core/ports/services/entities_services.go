package services

import (
	"context"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
)

// EntitiesSvcFacade orchestrates sink client calls into idempotent upsert
// operations with the default-account fallback.
type EntitiesSvcFacade interface {
	// GetOrganisation fetches the connected organisation snapshot.
	GetOrganisation(ctx context.Context) (*domain.Organisation, error)

	// GetContactID finds or creates the sink contact for the supplier.
	GetContactID(ctx context.Context, name, vat string) (string, error)

	// CreateOrUpdateBill upserts a bill by its idempotency URL and returns
	// the sink document id. A paid bill raises a not-allowed error.
	CreateOrUpdateBill(ctx context.Context, bill *domain.NewBill) (string, error)

	// CreateOrUpdateAccountTransaction upserts an account transaction by its
	// idempotency URL. A reconciled transaction is returned unmodified.
	CreateOrUpdateAccountTransaction(ctx context.Context, txn *domain.NewAccountTransaction) (string, error)

	// CreateOrUpdateCreditNote creates a credit note by number. Credit notes
	// are create-once: an existing note only receives missing attachments.
	CreateOrUpdateCreditNote(ctx context.Context, note *domain.NewCreditNote) (string, error)

	// DeleteBill voids the bill stored under the idempotency URL.
	DeleteBill(ctx context.Context, url string) error

	// DeleteAccountTransaction deletes the transaction stored under the URL.
	DeleteAccountTransaction(ctx context.Context, url string) error

	// EnsureDefaultExpenseAccounts idempotently creates the two fallback
	// expense accounts and fails if either exists but is not active.
	EnsureDefaultExpenseAccounts(ctx context.Context) error
}
