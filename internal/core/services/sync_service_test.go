package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
	"github.com/flockpay/xero_adapter_app/internal/core/services"
)

type SyncServiceTestSuite struct {
	suite.Suite
	mockSink   *MockSinkClient
	mockSource *MockSourceClient
	service    portssvc.SyncSvcFacade
}

func (suite *SyncServiceTestSuite) SetupTest() {
	suite.mockSink = new(MockSinkClient)
	suite.mockSource = new(MockSourceClient)
	suite.service = services.NewSyncService(suite.mockSink, suite.mockSource)
}

func (suite *SyncServiceTestSuite) TestGetExpenseAccounts_FiltersArchived() {
	ctx := context.Background()

	suite.mockSink.On("GetExpenseAccounts", ctx).Return([]domain.ExpenseAccount{
		{Code: "400", Name: "Advertising", Status: domain.AccountActive},
		{Code: "401", Name: "Old Advertising", Status: domain.AccountArchived},
		{Code: "404", Name: "Travel", Status: domain.AccountActive},
	}, nil).Once()

	accounts, err := suite.service.GetExpenseAccounts(ctx)

	suite.Require().NoError(err)
	suite.Require().Len(accounts, 2)
	suite.Equal("400", accounts[0].Code)
	suite.Equal("404", accounts[1].Code)
}

func (suite *SyncServiceTestSuite) TestGetTaxRates_FiltersArchived() {
	ctx := context.Background()

	suite.mockSink.On("GetTaxRates", ctx).Return([]domain.TaxRate{
		{Name: "20% VAT", TaxType: "INPUT2", EffectiveRate: decimal.RequireFromString("20"), Status: domain.AccountActive},
		{Name: "Old VAT", TaxType: "INPUT", EffectiveRate: decimal.RequireFromString("17.5"), Status: domain.AccountArchived},
	}, nil).Once()

	rates, err := suite.service.GetTaxRates(ctx)

	suite.Require().NoError(err)
	suite.Require().Len(rates, 1)
	suite.Equal("INPUT2", rates[0].TaxType)
}

func (suite *SyncServiceTestSuite) TestGetCurrencyBankAccount_ExistingActive() {
	ctx := context.Background()

	suite.mockSink.On("GetBankAccountByCode", ctx, "PHWK-EUR").
		Return(&domain.BankAccount{ID: "bank-1", Code: "PHWK-EUR", CurrencyCode: "EUR", Status: domain.AccountActive}, nil).Once()

	account, err := suite.service.GetCurrencyBankAccount(ctx, "EUR")

	suite.Require().NoError(err)
	suite.Equal("bank-1", account.ID)
	suite.mockSink.AssertNotCalled(suite.T(), "CreateBankAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SyncServiceTestSuite) TestGetCurrencyBankAccount_CreatesWhenMissing() {
	ctx := context.Background()

	suite.mockSink.On("GetBankAccountByCode", ctx, "PHWK-USD").
		Return(nil, fmt.Errorf("bank account %q: %w", "PHWK-USD", apperrors.ErrNotFound)).Once()
	suite.mockSink.On("EnsureCurrency", ctx, "USD").Return(nil).Once()
	suite.mockSink.On("CreateBankAccount", ctx, "Payhawk USD", "PHWK-USD", "USD").
		Return(&domain.BankAccount{ID: "bank-2", Code: "PHWK-USD", CurrencyCode: "USD", Status: domain.AccountActive}, nil).Once()

	account, err := suite.service.GetCurrencyBankAccount(ctx, "USD")

	suite.Require().NoError(err)
	suite.Equal("bank-2", account.ID)
	suite.mockSink.AssertExpectations(suite.T())
}

func (suite *SyncServiceTestSuite) TestGetCurrencyBankAccount_ReactivatesArchived() {
	ctx := context.Background()

	suite.mockSink.On("GetBankAccountByCode", ctx, "PHWK-GBP").
		Return(&domain.BankAccount{ID: "bank-3", Code: "PHWK-GBP", CurrencyCode: "GBP", Status: domain.AccountArchived}, nil).Once()
	suite.mockSink.On("ActivateBankAccount", ctx, "bank-3").Return(nil).Once()

	account, err := suite.service.GetCurrencyBankAccount(ctx, "GBP")

	suite.Require().NoError(err)
	suite.Equal(domain.AccountActive, account.Status)
	suite.mockSink.AssertExpectations(suite.T())
}

func (suite *SyncServiceTestSuite) TestEnsureCurrencyBankAccounts_CoversEveryBalanceCurrency() {
	ctx := context.Background()

	suite.mockSource.On("GetBalanceCurrencies", ctx).Return([]string{"EUR", "USD"}, nil).Once()
	suite.mockSink.On("GetBankAccountByCode", ctx, "PHWK-EUR").
		Return(&domain.BankAccount{ID: "bank-1", Status: domain.AccountActive}, nil).Once()
	suite.mockSink.On("GetBankAccountByCode", ctx, "PHWK-USD").
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockSink.On("EnsureCurrency", ctx, "USD").Return(nil).Once()
	suite.mockSink.On("CreateBankAccount", ctx, "Payhawk USD", "PHWK-USD", "USD").
		Return(&domain.BankAccount{ID: "bank-2", Status: domain.AccountActive}, nil).Once()

	err := suite.service.EnsureCurrencyBankAccounts(ctx)

	suite.Require().NoError(err)
	suite.mockSink.AssertExpectations(suite.T())
	suite.mockSource.AssertExpectations(suite.T())
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}
