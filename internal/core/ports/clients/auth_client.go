package clients

import "context"

// SinkAuthClient is the OAuth surface of the sink, kept separate from the
// accounting facade so the connection service does not depend on it.
type SinkAuthClient interface {
	// GetAuthorizeURL builds the consent URL carrying the CSRF state.
	GetAuthorizeURL(state string) string

	// ExchangeCode swaps the authorization code for tokens and resolves the
	// tenant id the user consented for.
	ExchangeCode(ctx context.Context, code string) (tenantID string, err error)

	// RevokeConnection disconnects the tenant on the sink side.
	RevokeConnection(ctx context.Context) error
}
