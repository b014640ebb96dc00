package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	portsclients "github.com/flockpay/xero_adapter_app/internal/core/ports/clients"
	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
	"github.com/flockpay/xero_adapter_app/internal/middleware"
)

// currencyAccountCodePrefix prefixes the code of the sink bank accounts
// mirroring the source balances, one per currency.
const currencyAccountCodePrefix = "PHWK-"

// syncService mirrors the sink's coding catalogs and keeps one sink bank
// account per source-balance currency.
type syncService struct {
	xero   portsclients.SinkClient
	source portsclients.SourceClient
}

// NewSyncService creates the catalog sync service.
func NewSyncService(xero portsclients.SinkClient, source portsclients.SourceClient) portssvc.SyncSvcFacade {
	return &syncService{xero: xero, source: source}
}

var _ portssvc.SyncSvcFacade = (*syncService)(nil)

func (s *syncService) GetExpenseAccounts(ctx context.Context) ([]domain.ExpenseAccount, error) {
	accounts, err := s.xero.GetExpenseAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expense accounts: %w", err)
	}

	active := make([]domain.ExpenseAccount, 0, len(accounts))
	for _, a := range accounts {
		if a.Status == domain.AccountActive {
			active = append(active, a)
		}
	}
	middleware.GetLoggerFromCtx(ctx).Info("Chart of accounts synced", slog.Int("count", len(active)))
	return active, nil
}

func (s *syncService) GetTaxRates(ctx context.Context) ([]domain.TaxRate, error) {
	rates, err := s.xero.GetTaxRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tax rates: %w", err)
	}

	active := make([]domain.TaxRate, 0, len(rates))
	for _, r := range rates {
		if r.Status == domain.AccountActive {
			active = append(active, r)
		}
	}
	middleware.GetLoggerFromCtx(ctx).Info("Tax rates synced", slog.Int("count", len(active)))
	return active, nil
}

func (s *syncService) GetTrackingCategories(ctx context.Context) ([]domain.TrackingCategory, error) {
	categories, err := s.xero.GetTrackingCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracking categories: %w", err)
	}

	active := make([]domain.TrackingCategory, 0, len(categories))
	for _, c := range categories {
		if c.Status == domain.AccountActive {
			active = append(active, c)
		}
	}
	middleware.GetLoggerFromCtx(ctx).Info("Tracking categories synced", slog.Int("count", len(active)))
	return active, nil
}

// EnsureCurrencyBankAccounts creates (or reactivates) one sink bank account
// per source-balance currency.
func (s *syncService) EnsureCurrencyBankAccounts(ctx context.Context) error {
	currencies, err := s.source.GetBalanceCurrencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list balance currencies: %w", err)
	}

	for _, currency := range currencies {
		if _, err := s.GetCurrencyBankAccount(ctx, currency); err != nil {
			return err
		}
	}
	return nil
}

// GetCurrencyBankAccount resolves the sink bank account mirroring the source
// balance in the given currency, creating it lazily and reactivating it when
// it was archived.
func (s *syncService) GetCurrencyBankAccount(ctx context.Context, currency string) (*domain.BankAccount, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	code := currencyAccountCodePrefix + currency

	account, err := s.xero.GetBankAccountByCode(ctx, code)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to fetch bank account %q: %w", code, err)
	}

	if account == nil {
		if err := s.xero.EnsureCurrency(ctx, currency); err != nil {
			return nil, fmt.Errorf("failed to ensure currency %s: %w", currency, err)
		}
		account, err = s.xero.CreateBankAccount(ctx, fmt.Sprintf("Payhawk %s", currency), code, currency)
		if err != nil {
			return nil, fmt.Errorf("failed to create bank account %q: %w", code, err)
		}
		logger.Info("Currency bank account created", slog.String("currency", currency), slog.String("bank_account_id", account.ID))
		return account, nil
	}

	if account.Status == domain.AccountArchived {
		if err := s.xero.ActivateBankAccount(ctx, account.ID); err != nil {
			return nil, fmt.Errorf("failed to activate bank account %q: %w", code, err)
		}
		account.Status = domain.AccountActive
		logger.Info("Archived currency bank account reactivated", slog.String("currency", currency))
	}
	return account, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
