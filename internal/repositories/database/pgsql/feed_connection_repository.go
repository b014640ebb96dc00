package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	portsrepo "github.com/flockpay/xero_adapter_app/internal/core/ports/repositories"
	"github.com/flockpay/xero_adapter_app/internal/models"
)

type PgxFeedConnectionRepository struct {
	BaseRepository
}

func newPgxFeedConnectionRepository(pool *pgxpool.Pool) portsrepo.FeedConnectionRepository {
	return &PgxFeedConnectionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.FeedConnectionRepository = (*PgxFeedConnectionRepository)(nil)

// FindByCurrency retrieves the connection mapping for the (account, currency)
// pair.
func (r *PgxFeedConnectionRepository) FindByCurrency(ctx context.Context, accountID, currency string) (*models.FeedConnection, error) {
	query := `
		SELECT account_id, bank_connection_id, currency_code, created_at
		FROM bank_feed_connections
		WHERE account_id = $1 AND currency_code = $2;
	`
	var connection models.FeedConnection
	err := r.Pool.QueryRow(ctx, query, accountID, currency).Scan(
		&connection.AccountID,
		&connection.BankConnectionID,
		&connection.CurrencyCode,
		&connection.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find feed connection for currency %s: %w", currency, err)
	}
	return &connection, nil
}

// ListByAccount retrieves every stored connection for the account.
func (r *PgxFeedConnectionRepository) ListByAccount(ctx context.Context, accountID string) ([]models.FeedConnection, error) {
	query := `
		SELECT account_id, bank_connection_id, currency_code, created_at
		FROM bank_feed_connections
		WHERE account_id = $1
		ORDER BY currency_code;
	`
	rows, err := r.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed connections: %w", err)
	}
	defer rows.Close()

	connections, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.FeedConnection, error) {
		var connection models.FeedConnection
		err := row.Scan(
			&connection.AccountID,
			&connection.BankConnectionID,
			&connection.CurrencyCode,
			&connection.CreatedAt,
		)
		return connection, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed connections: %w", err)
	}
	return connections, nil
}

// SaveConnection inserts the mapping row.
func (r *PgxFeedConnectionRepository) SaveConnection(ctx context.Context, connection models.FeedConnection) error {
	query := `
		INSERT INTO bank_feed_connections (account_id, bank_connection_id, currency_code, created_at)
		VALUES ($1, $2, $3, $4);
	`
	_, err := r.Pool.Exec(ctx, query,
		connection.AccountID,
		connection.BankConnectionID,
		connection.CurrencyCode,
		connection.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("feed connection for currency %s already exists: %w", connection.CurrencyCode, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save feed connection: %w", err)
	}
	return nil
}

// DeleteConnection removes the mapping row. Deleting an absent row is not an
// error; the repair path may race a concurrent delete.
func (r *PgxFeedConnectionRepository) DeleteConnection(ctx context.Context, accountID, bankConnectionID string) error {
	query := `
		DELETE FROM bank_feed_connections
		WHERE account_id = $1 AND bank_connection_id = $2;
	`
	_, err := r.Pool.Exec(ctx, query, accountID, bankConnectionID)
	if err != nil {
		return fmt.Errorf("failed to delete feed connection %s: %w", bankConnectionID, err)
	}
	return nil
}
