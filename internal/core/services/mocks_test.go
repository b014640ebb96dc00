package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	"github.com/flockpay/xero_adapter_app/internal/models"
)

// --- Mock SinkClient ---

type MockSinkClient struct {
	mock.Mock
}

func (m *MockSinkClient) GetOrganisation(ctx context.Context) (*domain.Organisation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organisation), args.Error(1)
}

func (m *MockSinkClient) FindContact(ctx context.Context, name, vat string) (*domain.Contact, error) {
	args := m.Called(ctx, name, vat)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

func (m *MockSinkClient) CreateContact(ctx context.Context, name, vat string) (*domain.Contact, error) {
	args := m.Called(ctx, name, vat)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

func (m *MockSinkClient) GetBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BankAccount), args.Error(1)
}

func (m *MockSinkClient) GetBankAccountByCode(ctx context.Context, code string) (*domain.BankAccount, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}

func (m *MockSinkClient) CreateBankAccount(ctx context.Context, name, code, currency string) (*domain.BankAccount, error) {
	args := m.Called(ctx, name, code, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}

func (m *MockSinkClient) ActivateBankAccount(ctx context.Context, bankAccountID string) error {
	args := m.Called(ctx, bankAccountID)
	return args.Error(0)
}

func (m *MockSinkClient) EnsureCurrency(ctx context.Context, currencyCode string) error {
	args := m.Called(ctx, currencyCode)
	return args.Error(0)
}

func (m *MockSinkClient) GetInvoiceByURL(ctx context.Context, url string) (*domain.Invoice, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockSinkClient) GetCreditNoteByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockSinkClient) GetBankTransactionByURL(ctx context.Context, url string) (*domain.BankTransaction, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankTransaction), args.Error(1)
}

func (m *MockSinkClient) CreateInvoice(ctx context.Context, bill *domain.NewBill) (string, error) {
	args := m.Called(ctx, bill)
	return args.String(0), args.Error(1)
}

func (m *MockSinkClient) UpdateInvoice(ctx context.Context, invoiceID string, bill *domain.NewBill) error {
	args := m.Called(ctx, invoiceID, bill)
	return args.Error(0)
}

func (m *MockSinkClient) DeleteInvoice(ctx context.Context, invoiceID string) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

func (m *MockSinkClient) CreateCreditNote(ctx context.Context, note *domain.NewCreditNote) (string, error) {
	args := m.Called(ctx, note)
	return args.String(0), args.Error(1)
}

func (m *MockSinkClient) CreateBankTransaction(ctx context.Context, txn *domain.NewAccountTransaction) (string, error) {
	args := m.Called(ctx, txn)
	return args.String(0), args.Error(1)
}

func (m *MockSinkClient) UpdateBankTransaction(ctx context.Context, transactionID string, txn *domain.NewAccountTransaction) error {
	args := m.Called(ctx, transactionID, txn)
	return args.Error(0)
}

func (m *MockSinkClient) DeleteBankTransaction(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

func (m *MockSinkClient) CreatePayment(ctx context.Context, documentID string, payment *domain.BillPayment) error {
	args := m.Called(ctx, documentID, payment)
	return args.Error(0)
}

func (m *MockSinkClient) GetAttachments(ctx context.Context, endpoint, documentID string) ([]domain.Attachment, error) {
	args := m.Called(ctx, endpoint, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Attachment), args.Error(1)
}

func (m *MockSinkClient) UploadAttachment(ctx context.Context, endpoint, documentID string, file domain.ExpenseFile) error {
	args := m.Called(ctx, endpoint, documentID, file)
	return args.Error(0)
}

func (m *MockSinkClient) GetExpenseAccounts(ctx context.Context) ([]domain.ExpenseAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseAccount), args.Error(1)
}

func (m *MockSinkClient) CreateExpenseAccount(ctx context.Context, account domain.ExpenseAccount) (*domain.ExpenseAccount, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExpenseAccount), args.Error(1)
}

func (m *MockSinkClient) GetTaxRates(ctx context.Context) ([]domain.TaxRate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TaxRate), args.Error(1)
}

func (m *MockSinkClient) GetTrackingCategories(ctx context.Context) ([]domain.TrackingCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TrackingCategory), args.Error(1)
}

// --- Mock SourceClient ---

type MockSourceClient struct {
	mock.Mock
}

func (m *MockSourceClient) GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockSourceClient) GetTransfer(ctx context.Context, balanceID, transferID string) (*domain.Transfer, error) {
	args := m.Called(ctx, balanceID, transferID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transfer), args.Error(1)
}

func (m *MockSourceClient) GetTransfers(ctx context.Context, startDate, endDate time.Time) ([]domain.Transfer, error) {
	args := m.Called(ctx, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transfer), args.Error(1)
}

func (m *MockSourceClient) GetBalanceCurrencies(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSourceClient) DownloadFiles(ctx context.Context, expense *domain.Expense) ([]domain.ExpenseFile, error) {
	args := m.Called(ctx, expense)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseFile), args.Error(1)
}

func (m *MockSourceClient) UpdateExpenseLinks(ctx context.Context, expenseID string, links []domain.ExternalLink) error {
	args := m.Called(ctx, expenseID, links)
	return args.Error(0)
}

// --- Mock BankFeedsClient ---

type MockBankFeedsClient struct {
	mock.Mock
}

func (m *MockBankFeedsClient) GetOrCreateFeedConnection(ctx context.Context, accountToken, accountNumber, currency string) (*domain.FeedConnection, error) {
	args := m.Called(ctx, accountToken, accountNumber, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeedConnection), args.Error(1)
}

func (m *MockBankFeedsClient) GetFeedConnection(ctx context.Context, connectionID string) (*domain.FeedConnection, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeedConnection), args.Error(1)
}

func (m *MockBankFeedsClient) CreateFeedStatement(ctx context.Context, statement *domain.NewFeedStatement) (*domain.StatementResult, error) {
	args := m.Called(ctx, statement)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatementResult), args.Error(1)
}

func (m *MockBankFeedsClient) CloseFeedConnection(ctx context.Context, connectionID string) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

// --- Mock repositories ---

type MockFeedConnectionRepository struct {
	mock.Mock
}

func (m *MockFeedConnectionRepository) FindByCurrency(ctx context.Context, accountID, currency string) (*models.FeedConnection, error) {
	args := m.Called(ctx, accountID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeedConnection), args.Error(1)
}

func (m *MockFeedConnectionRepository) ListByAccount(ctx context.Context, accountID string) ([]models.FeedConnection, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedConnection), args.Error(1)
}

func (m *MockFeedConnectionRepository) SaveConnection(ctx context.Context, connection models.FeedConnection) error {
	args := m.Called(ctx, connection)
	return args.Error(0)
}

func (m *MockFeedConnectionRepository) DeleteConnection(ctx context.Context, accountID, bankConnectionID string) error {
	args := m.Called(ctx, accountID, bankConnectionID)
	return args.Error(0)
}

type MockFeedStatementRepository struct {
	mock.Mock
}

func (m *MockFeedStatementRepository) FindByEntity(ctx context.Context, accountID, entityID string, entityType domain.EntityType) (*models.FeedStatement, error) {
	args := m.Called(ctx, accountID, entityID, entityType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeedStatement), args.Error(1)
}

func (m *MockFeedStatementRepository) SaveStatement(ctx context.Context, statement models.FeedStatement) error {
	args := m.Called(ctx, statement)
	return args.Error(0)
}
