package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
	"github.com/flockpay/xero_adapter_app/internal/core/services"
	"github.com/flockpay/xero_adapter_app/internal/models"
)

const testAccountID = "acc-1"

type BankFeedServiceTestSuite struct {
	suite.Suite
	mockFeeds       *MockBankFeedsClient
	mockConnections *MockFeedConnectionRepository
	mockStatements  *MockFeedStatementRepository
	service         portssvc.BankFeedSvcFacade
}

func (suite *BankFeedServiceTestSuite) SetupTest() {
	suite.mockFeeds = new(MockBankFeedsClient)
	suite.mockConnections = new(MockFeedConnectionRepository)
	suite.mockStatements = new(MockFeedStatementRepository)
	suite.service = services.NewBankFeedService(testAccountID, suite.mockFeeds, suite.mockConnections, suite.mockStatements)
}

func eurBankAccount() *domain.BankAccount {
	return &domain.BankAccount{
		ID:           "bank-1",
		Name:         "Payhawk EUR",
		Code:         "PHWK-EUR",
		CurrencyCode: "EUR",
		Status:       domain.AccountActive,
	}
}

func statementParams() portssvc.CreateStatementParams {
	return portssvc.CreateStatementParams{
		BankAccount: eurBankAccount(),
		EntityID:    "txn-1",
		EntityType:  domain.EntityTransaction,
		Date:        time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("-25.50"),
		ContactName: "ACME Ltd",
		Description: "Team lunch",
	}
}

func (suite *BankFeedServiceTestSuite) TestGetOrCreateConnection_StoredMappingWins() {
	ctx := context.Background()

	suite.mockConnections.On("FindByCurrency", ctx, testAccountID, "EUR").
		Return(&models.FeedConnection{AccountID: testAccountID, BankConnectionID: "conn-1", CurrencyCode: "EUR"}, nil).Once()

	connection, err := suite.service.GetOrCreateConnection(ctx, eurBankAccount())

	suite.Require().NoError(err)
	suite.Equal("conn-1", connection.ID)
	suite.Equal(domain.FeedConnectionConnected, connection.Status)
	suite.mockFeeds.AssertNotCalled(suite.T(), "GetOrCreateFeedConnection", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *BankFeedServiceTestSuite) TestGetOrCreateConnection_ResolvesAndPersists() {
	ctx := context.Background()

	suite.mockConnections.On("FindByCurrency", ctx, testAccountID, "EUR").
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockFeeds.On("GetOrCreateFeedConnection", ctx, testAccountID, "PHWK-EUR", "EUR").
		Return(&domain.FeedConnection{ID: "conn-1", Currency: "EUR", Status: domain.FeedConnectionConnected}, nil).Once()
	suite.mockConnections.On("SaveConnection", ctx, mock.MatchedBy(func(c models.FeedConnection) bool {
		return c.AccountID == testAccountID && c.BankConnectionID == "conn-1" && c.CurrencyCode == "EUR"
	})).Return(nil).Once()

	connection, err := suite.service.GetOrCreateConnection(ctx, eurBankAccount())

	suite.Require().NoError(err)
	suite.Equal("conn-1", connection.ID)
	suite.mockFeeds.AssertExpectations(suite.T())
	suite.mockConnections.AssertExpectations(suite.T())
}

func (suite *BankFeedServiceTestSuite) TestHasStatement() {
	ctx := context.Background()

	suite.mockStatements.On("FindByEntity", ctx, testAccountID, "txn-1", domain.EntityTransaction).
		Return(&models.FeedStatement{AccountID: testAccountID, PayhawkEntityID: "txn-1"}, nil).Once()
	suite.mockStatements.On("FindByEntity", ctx, testAccountID, "txn-2", domain.EntityTransaction).
		Return(nil, apperrors.ErrNotFound).Once()

	exported, err := suite.service.HasStatement(ctx, "txn-1", domain.EntityTransaction)
	suite.Require().NoError(err)
	suite.True(exported)

	exported, err = suite.service.HasStatement(ctx, "txn-2", domain.EntityTransaction)
	suite.Require().NoError(err)
	suite.False(exported)
}

func (suite *BankFeedServiceTestSuite) TestCreateStatement_AlreadyExportedIsNoOp() {
	ctx := context.Background()
	params := statementParams()

	suite.mockStatements.On("FindByEntity", ctx, testAccountID, params.EntityID, params.EntityType).
		Return(&models.FeedStatement{AccountID: testAccountID, PayhawkEntityID: params.EntityID}, nil).Once()

	err := suite.service.CreateStatement(ctx, params)

	suite.Require().NoError(err)
	suite.mockFeeds.AssertNotCalled(suite.T(), "CreateFeedStatement", mock.Anything, mock.Anything)
	suite.mockStatements.AssertNotCalled(suite.T(), "SaveStatement", mock.Anything, mock.Anything)
}

func (suite *BankFeedServiceTestSuite) TestCreateStatement_NegativeAmountBecomesDebit() {
	ctx := context.Background()
	params := statementParams()

	suite.mockStatements.On("FindByEntity", ctx, testAccountID, params.EntityID, params.EntityType).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockConnections.On("FindByCurrency", ctx, testAccountID, "EUR").
		Return(&models.FeedConnection{AccountID: testAccountID, BankConnectionID: "conn-1", CurrencyCode: "EUR"}, nil).Once()
	suite.mockFeeds.On("CreateFeedStatement", ctx, mock.MatchedBy(func(s *domain.NewFeedStatement) bool {
		return s.FeedConnectionID == "conn-1" &&
			s.StatementKey == params.EntityID &&
			s.Indicator == domain.IndicatorDebit &&
			s.Amount.Equal(decimal.RequireFromString("25.50"))
	})).Return(&domain.StatementResult{StatementID: "stmt-1"}, nil).Once()
	suite.mockStatements.On("SaveStatement", ctx, mock.MatchedBy(func(s models.FeedStatement) bool {
		return s.AccountID == testAccountID &&
			s.PayhawkEntityID == params.EntityID &&
			s.PayhawkEntityType == string(params.EntityType) &&
			s.BankStatementID == "stmt-1"
	})).Return(nil).Once()

	err := suite.service.CreateStatement(ctx, params)

	suite.Require().NoError(err)
	suite.mockFeeds.AssertExpectations(suite.T())
	suite.mockStatements.AssertExpectations(suite.T())
}

func (suite *BankFeedServiceTestSuite) TestCreateStatement_DuplicateRejectionStillRecordsLocally() {
	ctx := context.Background()
	params := statementParams()

	suite.mockStatements.On("FindByEntity", ctx, testAccountID, params.EntityID, params.EntityType).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockConnections.On("FindByCurrency", ctx, testAccountID, "EUR").
		Return(&models.FeedConnection{AccountID: testAccountID, BankConnectionID: "conn-1", CurrencyCode: "EUR"}, nil).Once()
	suite.mockFeeds.On("CreateFeedStatement", ctx, mock.Anything).
		Return(&domain.StatementResult{
			Rejections: []domain.StatementRejection{{Type: domain.RejectionDuplicateStatement, Detail: "already delivered"}},
		}, nil).Once()
	suite.mockStatements.On("SaveStatement", ctx, mock.MatchedBy(func(s models.FeedStatement) bool {
		return s.PayhawkEntityID == params.EntityID && s.BankStatementID == ""
	})).Return(nil).Once()

	err := suite.service.CreateStatement(ctx, params)

	suite.Require().NoError(err)
	suite.mockStatements.AssertExpectations(suite.T())
}

func (suite *BankFeedServiceTestSuite) TestCreateStatement_StaleConnectionIsReacquiredOnce() {
	ctx := context.Background()
	params := statementParams()

	suite.mockStatements.On("FindByEntity", ctx, testAccountID, params.EntityID, params.EntityType).
		Return(nil, apperrors.ErrNotFound).Once()

	// First attempt resolves the stored connection, which the remote side no
	// longer recognizes.
	suite.mockConnections.On("FindByCurrency", ctx, testAccountID, "EUR").
		Return(&models.FeedConnection{AccountID: testAccountID, BankConnectionID: "conn-stale", CurrencyCode: "EUR"}, nil).Once()
	suite.mockFeeds.On("CreateFeedStatement", ctx, mock.MatchedBy(func(s *domain.NewFeedStatement) bool {
		return s.FeedConnectionID == "conn-stale"
	})).Return(&domain.StatementResult{
		Rejections: []domain.StatementRejection{{Type: domain.RejectionInvalidFeedConnection, Detail: "feed connection not found"}},
	}, nil).Once()
	suite.mockConnections.On("DeleteConnection", ctx, testAccountID, "conn-stale").Return(nil).Once()

	// The retry re-acquires a fresh remote connection and succeeds.
	suite.mockConnections.On("FindByCurrency", ctx, testAccountID, "EUR").
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockFeeds.On("GetOrCreateFeedConnection", ctx, testAccountID, "PHWK-EUR", "EUR").
		Return(&domain.FeedConnection{ID: "conn-fresh", Currency: "EUR", Status: domain.FeedConnectionConnected}, nil).Once()
	suite.mockConnections.On("SaveConnection", ctx, mock.Anything).Return(nil).Once()
	suite.mockFeeds.On("CreateFeedStatement", ctx, mock.MatchedBy(func(s *domain.NewFeedStatement) bool {
		return s.FeedConnectionID == "conn-fresh"
	})).Return(&domain.StatementResult{StatementID: "stmt-1"}, nil).Once()
	suite.mockStatements.On("SaveStatement", ctx, mock.Anything).Return(nil).Once()

	err := suite.service.CreateStatement(ctx, params)

	suite.Require().NoError(err)
	suite.mockFeeds.AssertExpectations(suite.T())
	suite.mockConnections.AssertExpectations(suite.T())
}

func (suite *BankFeedServiceTestSuite) TestCreateStatement_DateRejectionIsUserFacing() {
	ctx := context.Background()
	params := statementParams()

	suite.mockStatements.On("FindByEntity", ctx, testAccountID, params.EntityID, params.EntityType).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockConnections.On("FindByCurrency", ctx, testAccountID, "EUR").
		Return(&models.FeedConnection{AccountID: testAccountID, BankConnectionID: "conn-1", CurrencyCode: "EUR"}, nil).Once()
	suite.mockFeeds.On("CreateFeedStatement", ctx, mock.Anything).
		Return(&domain.StatementResult{
			Rejections: []domain.StatementRejection{{Type: domain.RejectionInvalidStartDate, Detail: "start date too old"}},
		}, nil).Once()

	err := suite.service.CreateStatement(ctx, params)

	var exportErr *apperrors.ExportError
	suite.Require().ErrorAs(err, &exportErr)
	suite.mockStatements.AssertNotCalled(suite.T(), "SaveStatement", mock.Anything, mock.Anything)
}

func (suite *BankFeedServiceTestSuite) TestCloseAllConnections_RemoteFailureStillDeletesLocally() {
	ctx := context.Background()
	stored := []models.FeedConnection{
		{AccountID: testAccountID, BankConnectionID: "conn-1", CurrencyCode: "EUR"},
		{AccountID: testAccountID, BankConnectionID: "conn-2", CurrencyCode: "USD"},
	}

	suite.mockConnections.On("ListByAccount", ctx, testAccountID).Return(stored, nil).Once()
	suite.mockFeeds.On("CloseFeedConnection", ctx, "conn-1").Return(assert.AnError).Once()
	suite.mockFeeds.On("CloseFeedConnection", ctx, "conn-2").Return(nil).Once()
	suite.mockConnections.On("DeleteConnection", ctx, testAccountID, "conn-1").Return(nil).Once()
	suite.mockConnections.On("DeleteConnection", ctx, testAccountID, "conn-2").Return(nil).Once()

	err := suite.service.CloseAllConnections(ctx)

	suite.Require().ErrorIs(err, assert.AnError)
	suite.mockConnections.AssertExpectations(suite.T())
}

func TestBankFeedServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BankFeedServiceTestSuite))
}
