package clients

import (
	"context"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
)

// OrganisationReader exposes the sink organisation snapshot.
type OrganisationReader interface {
	// GetOrganisation fetches the connected organisation. Raises
	// apperrors.ErrForbidden when the tenant was disconnected remotely.
	GetOrganisation(ctx context.Context) (*domain.Organisation, error)
}

// ContactClient resolves sink counterparties.
type ContactClient interface {
	// FindContact looks a contact up by name and VAT number.
	FindContact(ctx context.Context, name, vat string) (*domain.Contact, error)

	// CreateContact creates a contact and returns it.
	CreateContact(ctx context.Context, name, vat string) (*domain.Contact, error)
}

// BankAccountClient manages sink bank accounts.
type BankAccountClient interface {
	GetBankAccounts(ctx context.Context) ([]domain.BankAccount, error)
	GetBankAccountByCode(ctx context.Context, code string) (*domain.BankAccount, error)
	CreateBankAccount(ctx context.Context, name, code, currency string) (*domain.BankAccount, error)
	ActivateBankAccount(ctx context.Context, bankAccountID string) error

	// EnsureCurrency registers the currency with the organisation if missing.
	EnsureCurrency(ctx context.Context, currencyCode string) error
}

// DocumentClient covers bills, credit notes and account transactions.
type DocumentClient interface {
	// GetInvoiceByURL finds a bill by its idempotency URL; nil when absent.
	GetInvoiceByURL(ctx context.Context, url string) (*domain.Invoice, error)

	// GetCreditNoteByNumber finds a credit note by number; nil when absent.
	GetCreditNoteByNumber(ctx context.Context, number string) (*domain.Invoice, error)

	// GetBankTransactionByURL finds an account transaction by its idempotency
	// URL; nil when absent.
	GetBankTransactionByURL(ctx context.Context, url string) (*domain.BankTransaction, error)

	CreateInvoice(ctx context.Context, bill *domain.NewBill) (string, error)
	UpdateInvoice(ctx context.Context, invoiceID string, bill *domain.NewBill) error
	DeleteInvoice(ctx context.Context, invoiceID string) error

	CreateCreditNote(ctx context.Context, note *domain.NewCreditNote) (string, error)

	CreateBankTransaction(ctx context.Context, txn *domain.NewAccountTransaction) (string, error)
	UpdateBankTransaction(ctx context.Context, transactionID string, txn *domain.NewAccountTransaction) error
	DeleteBankTransaction(ctx context.Context, transactionID string) error

	// CreatePayment registers a payment against an invoice or credit note.
	CreatePayment(ctx context.Context, documentID string, payment *domain.BillPayment) error

	// GetAttachments lists files already uploaded against a document.
	GetAttachments(ctx context.Context, endpoint, documentID string) ([]domain.Attachment, error)

	// UploadAttachment uploads one file against a document. Uploads for the
	// same document must stay sequential; the sink displays them in upload
	// order.
	UploadAttachment(ctx context.Context, endpoint, documentID string, file domain.ExpenseFile) error
}

// AccountingCatalogClient exposes the sink's coding catalogs.
type AccountingCatalogClient interface {
	GetExpenseAccounts(ctx context.Context) ([]domain.ExpenseAccount, error)
	CreateExpenseAccount(ctx context.Context, account domain.ExpenseAccount) (*domain.ExpenseAccount, error)
	GetTaxRates(ctx context.Context) ([]domain.TaxRate, error)
	GetTrackingCategories(ctx context.Context) ([]domain.TrackingCategory, error)
}

// SinkClient is the full ledger-sink (Xero accounting API) facade.
type SinkClient interface {
	OrganisationReader
	ContactClient
	BankAccountClient
	DocumentClient
	AccountingCatalogClient
}

// BankFeedsClient is the sink's bank-feeds sub-API.
type BankFeedsClient interface {
	// GetOrCreateFeedConnection resolves a remote connection by account
	// token, number and currency, creating one if none exists. The returned
	// connection may still be Pending.
	GetOrCreateFeedConnection(ctx context.Context, accountToken, accountNumber, currency string) (*domain.FeedConnection, error)

	// GetFeedConnection fetches one connection by id.
	GetFeedConnection(ctx context.Context, connectionID string) (*domain.FeedConnection, error)

	// CreateFeedStatement posts one statement line. Rejections are returned
	// in the result, not as an error.
	CreateFeedStatement(ctx context.Context, statement *domain.NewFeedStatement) (*domain.StatementResult, error)

	// CloseFeedConnection closes a connection remotely.
	CloseFeedConnection(ctx context.Context, connectionID string) error
}
