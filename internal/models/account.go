package models

import "time"

// Account is a row in the accounts table binding a local account to its sink
// tenant and tracking initial-sync state. OAuthToken carries the serialized
// token so a restarted process can resume the binding without a new consent.
type Account struct {
	AccountID            string    `db:"account_id"`
	TenantID             *string   `db:"tenant_id"`
	InitialSyncCompleted bool      `db:"initial_sync_completed"`
	APIKeyHash           *string   `db:"api_key_hash"`
	OAuthToken           *string   `db:"oauth_token"`
	CreatedAt            time.Time `db:"created_at"`
	LastUpdatedAt        time.Time `db:"last_updated_at"`
}
