package clients

import (
	"context"
	"time"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
)

// SourceClient is the ledger-source (Payhawk) API consumed by the export
// engine. Implementations live under internal/adapters.
type SourceClient interface {
	// GetExpense retrieves one expense snapshot by id.
	GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error)

	// GetTransfer retrieves one balance transfer.
	GetTransfer(ctx context.Context, balanceID, transferID string) (*domain.Transfer, error)

	// GetTransfers lists transfers in the [startDate, endDate] window.
	GetTransfers(ctx context.Context, startDate, endDate time.Time) ([]domain.Transfer, error)

	// GetBalanceCurrencies lists the currencies the account holds balances in.
	GetBalanceCurrencies(ctx context.Context) ([]string, error)

	// DownloadFiles fetches the expense's attachments to local temp files and
	// returns them with their paths populated. Callers own the cleanup.
	DownloadFiles(ctx context.Context, expense *domain.Expense) ([]domain.ExpenseFile, error)

	// UpdateExpenseLinks writes external deep links back to the expense.
	UpdateExpenseLinks(ctx context.Context, expenseID string, links []domain.ExternalLink) error
}
