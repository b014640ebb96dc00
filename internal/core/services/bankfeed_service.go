package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	portsclients "github.com/flockpay/xero_adapter_app/internal/core/ports/clients"
	portsrepo "github.com/flockpay/xero_adapter_app/internal/core/ports/repositories"
	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
	"github.com/flockpay/xero_adapter_app/internal/middleware"
	"github.com/flockpay/xero_adapter_app/internal/models"
)

const (
	// connectionPollAttempts is how many times a Pending remote connection is
	// re-checked before giving up.
	connectionPollAttempts = 3
	connectionPollDelay    = 3 * time.Second
)

var ErrConnectionPending = errors.New("bank feed connection is still pending")

// bankFeedService wraps feed-connection acquisition and the statement
// creation/repair protocol.
type bankFeedService struct {
	accountID   string
	feeds       portsclients.BankFeedsClient
	connections portsrepo.FeedConnectionRepository
	statements  portsrepo.FeedStatementRepository

	pollAttempts int
	pollDelay    time.Duration
}

// NewBankFeedService creates the bank feed manager for one account.
func NewBankFeedService(
	accountID string,
	feeds portsclients.BankFeedsClient,
	connections portsrepo.FeedConnectionRepository,
	statements portsrepo.FeedStatementRepository,
) portssvc.BankFeedSvcFacade {
	return &bankFeedService{
		accountID:    accountID,
		feeds:        feeds,
		connections:  connections,
		statements:   statements,
		pollAttempts: connectionPollAttempts,
		pollDelay:    connectionPollDelay,
	}
}

var _ portssvc.BankFeedSvcFacade = (*bankFeedService)(nil)

// GetOrCreateConnection resolves the feed connection for the bank account's
// currency. A stored mapping wins; otherwise the remote connection is
// resolved or created, polled out of Pending, and persisted locally.
func (s *bankFeedService) GetOrCreateConnection(ctx context.Context, bankAccount *domain.BankAccount) (*domain.FeedConnection, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	stored, err := s.connections.FindByCurrency(ctx, s.accountID, bankAccount.CurrencyCode)
	if err == nil {
		return &domain.FeedConnection{
			ID:            stored.BankConnectionID,
			BankAccountID: bankAccount.ID,
			Currency:      stored.CurrencyCode,
			Status:        domain.FeedConnectionConnected,
		}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up feed connection for %s: %w", bankAccount.CurrencyCode, err)
	}

	connection, err := s.feeds.GetOrCreateFeedConnection(ctx, s.accountID, bankAccount.Code, bankAccount.CurrencyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve remote feed connection: %w", err)
	}

	for attempt := 0; connection.Status == domain.FeedConnectionPending; attempt++ {
		if attempt >= s.pollAttempts {
			return nil, fmt.Errorf("%w: currency %s", ErrConnectionPending, bankAccount.CurrencyCode)
		}
		logger.Info("Feed connection pending, polling",
			slog.String("connection_id", connection.ID),
			slog.Int("attempt", attempt+1),
		)
		time.Sleep(s.pollDelay)
		connection, err = s.feeds.GetFeedConnection(ctx, connection.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll feed connection: %w", err)
		}
	}

	err = s.connections.SaveConnection(ctx, models.FeedConnection{
		AccountID:        s.accountID,
		BankConnectionID: connection.ID,
		CurrencyCode:     bankAccount.CurrencyCode,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist feed connection: %w", err)
	}

	logger.Info("Feed connection established", slog.String("connection_id", connection.ID), slog.String("currency", bankAccount.CurrencyCode))
	return connection, nil
}

// HasStatement reports whether a statement was already exported for the pair.
func (s *bankFeedService) HasStatement(ctx context.Context, entityID string, entityType domain.EntityType) (bool, error) {
	_, err := s.statements.FindByEntity(ctx, s.accountID, entityID, entityType)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// CreateStatement posts one statement line unless one was already exported
// for the entity. A stale-connection rejection is repaired by dropping the
// local mapping and re-acquiring the connection exactly once.
func (s *bankFeedService) CreateStatement(ctx context.Context, params portssvc.CreateStatementParams) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	exported, err := s.HasStatement(ctx, params.EntityID, params.EntityType)
	if err != nil {
		return fmt.Errorf("failed to check statement for %s/%s: %w", params.EntityType, params.EntityID, err)
	}
	if exported {
		logger.Info("Statement already exported, skipping",
			slog.String("entity_id", params.EntityID),
			slog.String("entity_type", string(params.EntityType)),
		)
		return nil
	}

	var statementID string
	err = attemptWithRepair(ctx, func(ctx context.Context) error {
		connection, connErr := s.GetOrCreateConnection(ctx, params.BankAccount)
		if connErr != nil {
			return connErr
		}
		var postErr error
		statementID, postErr = s.postStatement(ctx, connection.ID, params)
		return postErr
	}, func(ctx context.Context, err error) (bool, error) {
		var rejection *statementRejectedError
		if !errors.As(err, &rejection) || rejection.Type != domain.RejectionInvalidFeedConnection {
			return false, nil
		}
		logger.Warn("Feed connection no longer valid, re-acquiring", slog.String("currency", params.BankAccount.CurrencyCode))
		if delErr := s.connections.DeleteConnection(ctx, s.accountID, rejection.ConnectionID); delErr != nil {
			return false, delErr
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	// The duplicate-statement rejection resolves to an empty id; the remote
	// side already holds the line, so only the local record is missing.
	if statementID == "" {
		logger.Info("Statement already present remotely", slog.String("entity_id", params.EntityID))
	}

	err = s.statements.SaveStatement(ctx, models.FeedStatement{
		AccountID:         s.accountID,
		XeroEntityID:      statementID,
		PayhawkEntityID:   params.EntityID,
		PayhawkEntityType: string(params.EntityType),
		BankStatementID:   statementID,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to persist statement record: %w", err)
	}
	return nil
}

// statementRejectedError carries the first rejection of a refused statement
// through the retry helper.
type statementRejectedError struct {
	Type         domain.StatementRejectionType
	Detail       string
	ConnectionID string
}

func (e *statementRejectedError) Error() string {
	return fmt.Sprintf("statement rejected: %s (%s)", e.Type, e.Detail)
}

// postStatement posts the line and translates rejections: duplicates are
// success, date/internal rejections become user-facing export errors,
// stale-connection rejections become the typed error the repair step
// recognises, anything else is rethrown raw.
func (s *bankFeedService) postStatement(ctx context.Context, connectionID string, params portssvc.CreateStatementParams) (string, error) {
	// The feeds API wants an unsigned amount with an explicit direction:
	// money out of the account is a debit line.
	indicator := domain.IndicatorCredit
	amount := params.Amount
	if amount.IsNegative() {
		indicator = domain.IndicatorDebit
		amount = amount.Neg()
	}

	result, err := s.feeds.CreateFeedStatement(ctx, &domain.NewFeedStatement{
		FeedConnectionID: connectionID,
		StatementKey:     params.EntityID,
		Date:             params.Date,
		Amount:           amount,
		Indicator:        indicator,
		ContactName:      params.ContactName,
		Description:      params.Description,
	})
	if err != nil {
		return "", err
	}

	if len(result.Rejections) == 0 {
		return result.StatementID, nil
	}

	rejection := result.Rejections[0]
	switch rejection.Type {
	case domain.RejectionDuplicateStatement:
		return "", nil
	case domain.RejectionInvalidStartDate, domain.RejectionInvalidEndDate, domain.RejectionInternalError:
		return "", apperrors.NewExportError(
			"The bank statement was rejected by Xero. Please check the statement date and try again.",
			&statementRejectedError{Type: rejection.Type, Detail: rejection.Detail, ConnectionID: connectionID},
		)
	case domain.RejectionInvalidFeedConnection:
		return "", &statementRejectedError{Type: rejection.Type, Detail: rejection.Detail, ConnectionID: connectionID}
	default:
		return "", fmt.Errorf("statement rejected with unrecognized type %q: %s", rejection.Type, rejection.Detail)
	}
}

// CloseAllConnections closes every stored connection for the account. The
// local record is deleted regardless of the remote outcome; remote failures
// are collected and surfaced to the caller.
func (s *bankFeedService) CloseAllConnections(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	stored, err := s.connections.ListByAccount(ctx, s.accountID)
	if err != nil {
		return fmt.Errorf("failed to list feed connections: %w", err)
	}

	var closeErrs []error
	for _, c := range stored {
		if remoteErr := s.feeds.CloseFeedConnection(ctx, c.BankConnectionID); remoteErr != nil {
			logger.Warn("Failed to close feed connection remotely",
				slog.String("connection_id", c.BankConnectionID),
				slog.String("error", remoteErr.Error()),
			)
			closeErrs = append(closeErrs, remoteErr)
		}
		if delErr := s.connections.DeleteConnection(ctx, s.accountID, c.BankConnectionID); delErr != nil {
			closeErrs = append(closeErrs, delErr)
		}
	}
	return errors.Join(closeErrs...)
}
