package services

import (
	"context"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
)

// SyncSvcFacade mirrors the sink's coding catalogs and keeps one sink bank
// account per source-balance currency.
type SyncSvcFacade interface {
	// GetExpenseAccounts lists the sink's active chart-of-accounts entries.
	GetExpenseAccounts(ctx context.Context) ([]domain.ExpenseAccount, error)

	// GetTaxRates lists the sink's active tax rates.
	GetTaxRates(ctx context.Context) ([]domain.TaxRate, error)

	// GetTrackingCategories lists the sink's active tracking categories.
	GetTrackingCategories(ctx context.Context) ([]domain.TrackingCategory, error)

	// EnsureCurrencyBankAccounts creates (or reactivates) one sink bank
	// account per source-balance currency.
	EnsureCurrencyBankAccounts(ctx context.Context) error

	// GetCurrencyBankAccount resolves the sink bank account mirroring the
	// source balance in the given currency.
	GetCurrencyBankAccount(ctx context.Context, currency string) (*domain.BankAccount, error)
}
