package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	portsrepo "github.com/flockpay/xero_adapter_app/internal/core/ports/repositories"
	"github.com/flockpay/xero_adapter_app/internal/models"
)

type PgxAccountRepository struct {
	BaseRepository
}

func newPgxAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRecordRepository {
	return &PgxAccountRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.AccountRecordRepository = (*PgxAccountRepository)(nil)

// FindByID retrieves the account row.
func (r *PgxAccountRepository) FindByID(ctx context.Context, accountID string) (*models.Account, error) {
	query := `
		SELECT account_id, tenant_id, initial_sync_completed, api_key_hash, oauth_token, created_at, last_updated_at
		FROM accounts
		WHERE account_id = $1;
	`
	var account models.Account
	err := r.Pool.QueryRow(ctx, query, accountID).Scan(
		&account.AccountID,
		&account.TenantID,
		&account.InitialSyncCompleted,
		&account.APIKeyHash,
		&account.OAuthToken,
		&account.CreatedAt,
		&account.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	return &account, nil
}

// SaveAccount inserts the account row.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account models.Account) error {
	query := `
		INSERT INTO accounts (account_id, tenant_id, initial_sync_completed, api_key_hash, oauth_token, created_at, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.Pool.Exec(ctx, query,
		account.AccountID,
		account.TenantID,
		account.InitialSyncCompleted,
		account.APIKeyHash,
		account.OAuthToken,
		account.CreatedAt,
		account.LastUpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("account %s already exists: %w", account.AccountID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save account %s: %w", account.AccountID, err)
	}
	return nil
}

// UpdateTenant binds or clears the sink tenant id.
func (r *PgxAccountRepository) UpdateTenant(ctx context.Context, accountID string, tenantID *string) error {
	query := `
		UPDATE accounts
		SET tenant_id = $2, last_updated_at = $3
		WHERE account_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, accountID, tenantID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update tenant for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkInitialSyncCompleted flips the initial-sync flag.
func (r *PgxAccountRepository) MarkInitialSyncCompleted(ctx context.Context, accountID string) error {
	query := `
		UPDATE accounts
		SET initial_sync_completed = TRUE, last_updated_at = $2
		WHERE account_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, accountID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark initial sync for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateOAuthToken stores or clears the serialized sink OAuth token.
func (r *PgxAccountRepository) UpdateOAuthToken(ctx context.Context, accountID string, token *string) error {
	query := `
		UPDATE accounts
		SET oauth_token = $2, last_updated_at = $3
		WHERE account_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, accountID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update oauth token for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateAPIKeyHash stores the hash of the source API key.
func (r *PgxAccountRepository) UpdateAPIKeyHash(ctx context.Context, accountID string, hash string) error {
	query := `
		UPDATE accounts
		SET api_key_hash = $2, last_updated_at = $3
		WHERE account_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, accountID, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update api key for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
