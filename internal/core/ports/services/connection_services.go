package services

import "context"

// ConnectionSvcFacade owns the OAuth connection lifecycle between the local
// account and the sink tenant.
type ConnectionSvcFacade interface {
	// GetAuthorizeURL builds the sink consent URL for the connect redirect.
	GetAuthorizeURL(ctx context.Context) (string, error)

	// HandleCallback exchanges the authorization code, binds the tenant and
	// kicks off the initial sync when it has not completed yet.
	HandleCallback(ctx context.Context, code, state string) error

	// IsConnected reports whether a tenant is currently bound.
	IsConnected(ctx context.Context) (bool, error)

	// Initialize runs the initial sync: default expense accounts, currency
	// bank accounts and catalog mirrors.
	Initialize(ctx context.Context) error

	// Disconnect revokes the binding and disconnects the bank feed.
	Disconnect(ctx context.Context) error

	// SetAPIKey stores the source-platform API key for the account.
	SetAPIKey(ctx context.Context, apiKey string) error
}

// ServiceContainer bundles all services for dependency injection.
type ServiceContainer struct {
	Exporter   ExporterSvcFacade
	Entities   EntitiesSvcFacade
	BankFeed   BankFeedSvcFacade
	Sync       SyncSvcFacade
	Connection ConnectionSvcFacade
}
