package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	portsrepo "github.com/flockpay/xero_adapter_app/internal/core/ports/repositories"
	"github.com/flockpay/xero_adapter_app/internal/models"
)

type PgxFeedStatementRepository struct {
	BaseRepository
}

func newPgxFeedStatementRepository(pool *pgxpool.Pool) portsrepo.FeedStatementRepository {
	return &PgxFeedStatementRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.FeedStatementRepository = (*PgxFeedStatementRepository)(nil)

// FindByEntity retrieves the statement record for the dedup triple.
func (r *PgxFeedStatementRepository) FindByEntity(ctx context.Context, accountID, entityID string, entityType domain.EntityType) (*models.FeedStatement, error) {
	query := `
		SELECT account_id, xero_entity_id, payhawk_entity_id, payhawk_entity_type, bank_statement_id, created_at
		FROM bank_feed_statements
		WHERE account_id = $1 AND payhawk_entity_id = $2 AND payhawk_entity_type = $3;
	`
	var statement models.FeedStatement
	err := r.Pool.QueryRow(ctx, query, accountID, entityID, string(entityType)).Scan(
		&statement.AccountID,
		&statement.XeroEntityID,
		&statement.PayhawkEntityID,
		&statement.PayhawkEntityType,
		&statement.BankStatementID,
		&statement.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find statement for %s/%s: %w", entityType, entityID, err)
	}
	return &statement, nil
}

// SaveStatement inserts the statement record.
func (r *PgxFeedStatementRepository) SaveStatement(ctx context.Context, statement models.FeedStatement) error {
	query := `
		INSERT INTO bank_feed_statements (account_id, xero_entity_id, payhawk_entity_id, payhawk_entity_type, bank_statement_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.Pool.Exec(ctx, query,
		statement.AccountID,
		statement.XeroEntityID,
		statement.PayhawkEntityID,
		statement.PayhawkEntityType,
		statement.BankStatementID,
		statement.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("statement for %s/%s already recorded: %w", statement.PayhawkEntityType, statement.PayhawkEntityID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save statement record: %w", err)
	}
	return nil
}
