package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	portsclients "github.com/flockpay/xero_adapter_app/internal/core/ports/clients"
	portsrepo "github.com/flockpay/xero_adapter_app/internal/core/ports/repositories"
	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
	"github.com/flockpay/xero_adapter_app/internal/middleware"
	"github.com/flockpay/xero_adapter_app/internal/models"
	"github.com/flockpay/xero_adapter_app/internal/utils"
)

const (
	oauthStateBytes = 32
	// oauthStateTTL bounds how long an issued consent state stays redeemable.
	oauthStateTTL = 15 * time.Minute
)

var (
	ErrInvalidOAuthState = errors.New("unknown or expired oauth state")
	ErrNotConnected      = errors.New("account is not connected to a tenant")
)

// connectionService owns the account's OAuth binding to the sink tenant and
// the initial-sync bootstrap that follows a fresh connection.
type connectionService struct {
	accountID string
	auth      portsclients.SinkAuthClient
	accounts  portsrepo.AccountRecordRepository
	entities  portssvc.EntitiesSvcFacade
	sync      portssvc.SyncSvcFacade
	exporter  portssvc.ExporterSvcFacade

	mu            sync.Mutex
	pendingStates map[string]time.Time
}

// NewConnectionService creates the connection lifecycle service.
func NewConnectionService(
	accountID string,
	auth portsclients.SinkAuthClient,
	accounts portsrepo.AccountRecordRepository,
	entities portssvc.EntitiesSvcFacade,
	syncSvc portssvc.SyncSvcFacade,
	exporter portssvc.ExporterSvcFacade,
) portssvc.ConnectionSvcFacade {
	return &connectionService{
		accountID:     accountID,
		auth:          auth,
		accounts:      accounts,
		entities:      entities,
		sync:          syncSvc,
		exporter:      exporter,
		pendingStates: make(map[string]time.Time),
	}
}

var _ portssvc.ConnectionSvcFacade = (*connectionService)(nil)

// GetAuthorizeURL issues a fresh CSRF state and builds the consent URL.
func (s *connectionService) GetAuthorizeURL(ctx context.Context) (string, error) {
	state, err := utils.GenerateSecureRandomString(oauthStateBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}

	s.mu.Lock()
	now := time.Now()
	for issued, at := range s.pendingStates {
		if now.Sub(at) > oauthStateTTL {
			delete(s.pendingStates, issued)
		}
	}
	s.pendingStates[state] = now
	s.mu.Unlock()

	return s.auth.GetAuthorizeURL(state), nil
}

// HandleCallback redeems the consent state, exchanges the code, binds the
// tenant and runs the initial sync when the account has not completed one.
func (s *connectionService) HandleCallback(ctx context.Context, code, state string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.mu.Lock()
	issuedAt, known := s.pendingStates[state]
	delete(s.pendingStates, state)
	s.mu.Unlock()
	if !known || time.Since(issuedAt) > oauthStateTTL {
		return ErrInvalidOAuthState
	}

	// The row has to exist before the exchange so the auth client can persist
	// the token it receives.
	account, err := s.ensureAccountRow(ctx)
	if err != nil {
		return err
	}

	tenantID, err := s.auth.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := s.accounts.UpdateTenant(ctx, s.accountID, &tenantID); err != nil {
		return fmt.Errorf("failed to bind tenant: %w", err)
	}
	logger.Info("Tenant connected", slog.String("tenant_id", tenantID))

	if account.InitialSyncCompleted {
		return nil
	}
	if err := s.Initialize(ctx); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}
	return nil
}

// IsConnected reports whether the account currently has a bound tenant.
func (s *connectionService) IsConnected(ctx context.Context) (bool, error) {
	account, err := s.accounts.FindByID(ctx, s.accountID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return account.TenantID != nil, nil
}

// Initialize bootstraps the connected tenant: fallback expense accounts,
// one bank account per balance currency, then a first catalog pull.
func (s *connectionService) Initialize(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.entities.EnsureDefaultExpenseAccounts(ctx); err != nil {
		return fmt.Errorf("failed to ensure default expense accounts: %w", err)
	}
	if err := s.sync.EnsureCurrencyBankAccounts(ctx); err != nil {
		return fmt.Errorf("failed to ensure currency bank accounts: %w", err)
	}
	if _, err := s.sync.GetExpenseAccounts(ctx); err != nil {
		return err
	}
	if _, err := s.sync.GetTaxRates(ctx); err != nil {
		return err
	}
	if _, err := s.sync.GetTrackingCategories(ctx); err != nil {
		return err
	}

	if err := s.accounts.MarkInitialSyncCompleted(ctx, s.accountID); err != nil {
		return fmt.Errorf("failed to mark initial sync completed: %w", err)
	}
	logger.Info("Initial sync completed")
	return nil
}

// Disconnect tears the binding down. The remote revocation and the feed
// disconnect are best effort; clearing the local tenant binding is not.
func (s *connectionService) Disconnect(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	connected, err := s.IsConnected(ctx)
	if err != nil {
		return err
	}
	if !connected {
		return ErrNotConnected
	}

	if err := s.exporter.DisconnectBankFeed(ctx); err != nil {
		logger.Warn("Failed to disconnect bank feed", slog.String("error", err.Error()))
	}
	if err := s.auth.RevokeConnection(ctx); err != nil {
		logger.Warn("Failed to revoke sink connection", slog.String("error", err.Error()))
	}

	if err := s.accounts.UpdateTenant(ctx, s.accountID, nil); err != nil {
		return fmt.Errorf("failed to clear tenant binding: %w", err)
	}
	logger.Info("Tenant disconnected")
	return nil
}

// SetAPIKey stores a bcrypt hash of the source-platform API key.
func (s *connectionService) SetAPIKey(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("%w: api key is empty", apperrors.ErrValidation)
	}

	if _, err := s.ensureAccountRow(ctx); err != nil {
		return err
	}
	hash, err := utils.HashAPIKey(apiKey)
	if err != nil {
		return fmt.Errorf("failed to hash api key: %w", err)
	}
	if err := s.accounts.UpdateAPIKeyHash(ctx, s.accountID, hash); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}
	middleware.GetLoggerFromCtx(ctx).Info("API key updated")
	return nil
}

// ensureAccountRow loads the account row, inserting it on first contact.
func (s *connectionService) ensureAccountRow(ctx context.Context) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, s.accountID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	now := time.Now().UTC()
	row := models.Account{
		AccountID:     s.accountID,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := s.accounts.SaveAccount(ctx, row); err != nil && !errors.Is(err, apperrors.ErrDuplicate) {
		return nil, fmt.Errorf("failed to create account row: %w", err)
	}
	return &row, nil
}
