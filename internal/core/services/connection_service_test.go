package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
	"github.com/flockpay/xero_adapter_app/internal/core/services"
	"github.com/flockpay/xero_adapter_app/internal/models"
)

// --- Mock SinkAuthClient ---

type MockSinkAuthClient struct {
	mock.Mock
}

func (m *MockSinkAuthClient) GetAuthorizeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockSinkAuthClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *MockSinkAuthClient) RevokeConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Mock AccountRecordRepository ---

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, accountID string) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateTenant(ctx context.Context, accountID string, tenantID *string) error {
	args := m.Called(ctx, accountID, tenantID)
	return args.Error(0)
}

func (m *MockAccountRepository) MarkInitialSyncCompleted(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAPIKeyHash(ctx context.Context, accountID string, hash string) error {
	args := m.Called(ctx, accountID, hash)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateOAuthToken(ctx context.Context, accountID string, token *string) error {
	args := m.Called(ctx, accountID, token)
	return args.Error(0)
}

// --- Mock service facades ---

type MockEntitiesService struct {
	mock.Mock
}

func (m *MockEntitiesService) GetOrganisation(ctx context.Context) (*domain.Organisation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organisation), args.Error(1)
}

func (m *MockEntitiesService) GetContactID(ctx context.Context, name, vat string) (string, error) {
	args := m.Called(ctx, name, vat)
	return args.String(0), args.Error(1)
}

func (m *MockEntitiesService) CreateOrUpdateBill(ctx context.Context, bill *domain.NewBill) (string, error) {
	args := m.Called(ctx, bill)
	return args.String(0), args.Error(1)
}

func (m *MockEntitiesService) CreateOrUpdateAccountTransaction(ctx context.Context, txn *domain.NewAccountTransaction) (string, error) {
	args := m.Called(ctx, txn)
	return args.String(0), args.Error(1)
}

func (m *MockEntitiesService) CreateOrUpdateCreditNote(ctx context.Context, note *domain.NewCreditNote) (string, error) {
	args := m.Called(ctx, note)
	return args.String(0), args.Error(1)
}

func (m *MockEntitiesService) DeleteBill(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockEntitiesService) DeleteAccountTransaction(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockEntitiesService) EnsureDefaultExpenseAccounts(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) GetExpenseAccounts(ctx context.Context) ([]domain.ExpenseAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpenseAccount), args.Error(1)
}

func (m *MockSyncService) GetTaxRates(ctx context.Context) ([]domain.TaxRate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TaxRate), args.Error(1)
}

func (m *MockSyncService) GetTrackingCategories(ctx context.Context) ([]domain.TrackingCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TrackingCategory), args.Error(1)
}

func (m *MockSyncService) EnsureCurrencyBankAccounts(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSyncService) GetCurrencyBankAccount(ctx context.Context, currency string) (*domain.BankAccount, error) {
	args := m.Called(ctx, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}

type MockExporterService struct {
	mock.Mock
}

func (m *MockExporterService) ExportExpense(ctx context.Context, expenseID string) error {
	args := m.Called(ctx, expenseID)
	return args.Error(0)
}

func (m *MockExporterService) DeleteExpense(ctx context.Context, expenseID string) error {
	args := m.Called(ctx, expenseID)
	return args.Error(0)
}

func (m *MockExporterService) ExportBankStatementForExpense(ctx context.Context, expenseID string) error {
	args := m.Called(ctx, expenseID)
	return args.Error(0)
}

func (m *MockExporterService) ExportBankStatementForTransfer(ctx context.Context, balanceID, transferID string) error {
	args := m.Called(ctx, balanceID, transferID)
	return args.Error(0)
}

func (m *MockExporterService) ExportTransfers(ctx context.Context, startDate, endDate time.Time) error {
	args := m.Called(ctx, startDate, endDate)
	return args.Error(0)
}

func (m *MockExporterService) DisconnectBankFeed(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Test Suite ---

type ConnectionServiceTestSuite struct {
	suite.Suite
	mockAuth     *MockSinkAuthClient
	mockAccounts *MockAccountRepository
	mockEntities *MockEntitiesService
	mockSync     *MockSyncService
	mockExporter *MockExporterService
	service      portssvc.ConnectionSvcFacade
}

func (suite *ConnectionServiceTestSuite) SetupTest() {
	suite.mockAuth = new(MockSinkAuthClient)
	suite.mockAccounts = new(MockAccountRepository)
	suite.mockEntities = new(MockEntitiesService)
	suite.mockSync = new(MockSyncService)
	suite.mockExporter = new(MockExporterService)
	suite.service = services.NewConnectionService(
		testAccountID,
		suite.mockAuth,
		suite.mockAccounts,
		suite.mockEntities,
		suite.mockSync,
		suite.mockExporter,
	)
}

// issueState walks the connect flow far enough to capture the CSRF state the
// service handed to the consent URL builder.
func (suite *ConnectionServiceTestSuite) issueState(ctx context.Context) string {
	var state string
	suite.mockAuth.On("GetAuthorizeURL", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { state = args.String(0) }).
		Return("https://login.example.com/authorize").Once()

	url, err := suite.service.GetAuthorizeURL(ctx)
	suite.Require().NoError(err)
	suite.Require().True(strings.HasPrefix(url, "https://"))
	suite.Require().NotEmpty(state)
	return state
}

func (suite *ConnectionServiceTestSuite) TestHandleCallback_FirstConnectionRunsInitialSync() {
	ctx := context.Background()
	state := suite.issueState(ctx)
	tenantID := "tenant-1"

	suite.mockAuth.On("ExchangeCode", ctx, "auth-code").Return(tenantID, nil).Once()
	suite.mockAccounts.On("FindByID", ctx, testAccountID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccounts.On("SaveAccount", ctx, mock.MatchedBy(func(a models.Account) bool {
		return a.AccountID == testAccountID
	})).Return(nil).Once()
	suite.mockAccounts.On("UpdateTenant", ctx, testAccountID, &tenantID).Return(nil).Once()

	suite.mockEntities.On("EnsureDefaultExpenseAccounts", ctx).Return(nil).Once()
	suite.mockSync.On("EnsureCurrencyBankAccounts", ctx).Return(nil).Once()
	suite.mockSync.On("GetExpenseAccounts", ctx).Return([]domain.ExpenseAccount{}, nil).Once()
	suite.mockSync.On("GetTaxRates", ctx).Return([]domain.TaxRate{}, nil).Once()
	suite.mockSync.On("GetTrackingCategories", ctx).Return([]domain.TrackingCategory{}, nil).Once()
	suite.mockAccounts.On("MarkInitialSyncCompleted", ctx, testAccountID).Return(nil).Once()

	err := suite.service.HandleCallback(ctx, "auth-code", state)

	suite.Require().NoError(err)
	suite.mockAuth.AssertExpectations(suite.T())
	suite.mockAccounts.AssertExpectations(suite.T())
	suite.mockSync.AssertExpectations(suite.T())
}

func (suite *ConnectionServiceTestSuite) TestHandleCallback_CompletedSyncIsNotRepeated() {
	ctx := context.Background()
	state := suite.issueState(ctx)
	tenantID := "tenant-1"

	suite.mockAuth.On("ExchangeCode", ctx, "auth-code").Return(tenantID, nil).Once()
	suite.mockAccounts.On("FindByID", ctx, testAccountID).
		Return(&models.Account{AccountID: testAccountID, InitialSyncCompleted: true}, nil).Once()
	suite.mockAccounts.On("UpdateTenant", ctx, testAccountID, &tenantID).Return(nil).Once()

	err := suite.service.HandleCallback(ctx, "auth-code", state)

	suite.Require().NoError(err)
	suite.mockEntities.AssertNotCalled(suite.T(), "EnsureDefaultExpenseAccounts", mock.Anything)
	suite.mockAccounts.AssertNotCalled(suite.T(), "MarkInitialSyncCompleted", mock.Anything, mock.Anything)
}

func (suite *ConnectionServiceTestSuite) TestHandleCallback_UnknownStateIsRejected() {
	ctx := context.Background()

	err := suite.service.HandleCallback(ctx, "auth-code", "never-issued")

	suite.Require().ErrorIs(err, services.ErrInvalidOAuthState)
	suite.mockAuth.AssertNotCalled(suite.T(), "ExchangeCode", mock.Anything, mock.Anything)
}

func (suite *ConnectionServiceTestSuite) TestHandleCallback_StateIsSingleUse() {
	ctx := context.Background()
	state := suite.issueState(ctx)
	tenantID := "tenant-1"

	suite.mockAuth.On("ExchangeCode", ctx, "auth-code").Return(tenantID, nil).Once()
	suite.mockAccounts.On("FindByID", ctx, testAccountID).
		Return(&models.Account{AccountID: testAccountID, InitialSyncCompleted: true}, nil).Once()
	suite.mockAccounts.On("UpdateTenant", ctx, testAccountID, &tenantID).Return(nil).Once()

	suite.Require().NoError(suite.service.HandleCallback(ctx, "auth-code", state))
	suite.Require().ErrorIs(suite.service.HandleCallback(ctx, "auth-code", state), services.ErrInvalidOAuthState)
}

func (suite *ConnectionServiceTestSuite) TestIsConnected() {
	ctx := context.Background()
	tenantID := "tenant-1"

	suite.mockAccounts.On("FindByID", ctx, testAccountID).Return(nil, apperrors.ErrNotFound).Once()
	connected, err := suite.service.IsConnected(ctx)
	suite.Require().NoError(err)
	suite.False(connected)

	suite.mockAccounts.On("FindByID", ctx, testAccountID).
		Return(&models.Account{AccountID: testAccountID, TenantID: &tenantID}, nil).Once()
	connected, err = suite.service.IsConnected(ctx)
	suite.Require().NoError(err)
	suite.True(connected)
}

func (suite *ConnectionServiceTestSuite) TestDisconnect_NotConnected() {
	ctx := context.Background()

	suite.mockAccounts.On("FindByID", ctx, testAccountID).
		Return(&models.Account{AccountID: testAccountID}, nil).Once()

	err := suite.service.Disconnect(ctx)

	suite.Require().ErrorIs(err, services.ErrNotConnected)
	suite.mockAuth.AssertNotCalled(suite.T(), "RevokeConnection", mock.Anything)
}

func (suite *ConnectionServiceTestSuite) TestDisconnect_BestEffortFailuresStillClearBinding() {
	ctx := context.Background()
	tenantID := "tenant-1"

	suite.mockAccounts.On("FindByID", ctx, testAccountID).
		Return(&models.Account{AccountID: testAccountID, TenantID: &tenantID}, nil).Once()
	suite.mockExporter.On("DisconnectBankFeed", ctx).Return(apperrors.ErrForbidden).Once()
	suite.mockAuth.On("RevokeConnection", ctx).Return(apperrors.ErrUnauthorized).Once()
	suite.mockAccounts.On("UpdateTenant", ctx, testAccountID, (*string)(nil)).Return(nil).Once()

	err := suite.service.Disconnect(ctx)

	suite.Require().NoError(err)
	suite.mockAccounts.AssertExpectations(suite.T())
}

func (suite *ConnectionServiceTestSuite) TestSetAPIKey_EmptyIsRejected() {
	err := suite.service.SetAPIKey(context.Background(), "")

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
	suite.mockAccounts.AssertNotCalled(suite.T(), "UpdateAPIKeyHash", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ConnectionServiceTestSuite) TestSetAPIKey_StoresHashNotPlaintext() {
	ctx := context.Background()

	suite.mockAccounts.On("FindByID", ctx, testAccountID).
		Return(&models.Account{AccountID: testAccountID}, nil).Once()
	suite.mockAccounts.On("UpdateAPIKeyHash", ctx, testAccountID, mock.MatchedBy(func(hash string) bool {
		return hash != "" && hash != "phk-secret-key"
	})).Return(nil).Once()

	err := suite.service.SetAPIKey(ctx, "phk-secret-key")

	suite.Require().NoError(err)
	suite.mockAccounts.AssertExpectations(suite.T())
}

func TestConnectionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectionServiceTestSuite))
}
