package models

import "time"

// FeedConnection is a row in the bank_feed_connections table.
type FeedConnection struct {
	AccountID        string    `db:"account_id"`
	BankConnectionID string    `db:"bank_connection_id"`
	CurrencyCode     string    `db:"currency_code"`
	CreatedAt        time.Time `db:"created_at"`
}

// FeedStatement is a row in the bank_feed_statements table. The unique
// constraint over (account_id, payhawk_entity_id, payhawk_entity_type) is the
// at-most-once guard for statement export.
type FeedStatement struct {
	AccountID         string    `db:"account_id"`
	XeroEntityID      string    `db:"xero_entity_id"`
	PayhawkEntityID   string    `db:"payhawk_entity_id"`
	PayhawkEntityType string    `db:"payhawk_entity_type"`
	BankStatementID   string    `db:"bank_statement_id"`
	CreatedAt         time.Time `db:"created_at"`
}
