package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	portsclients "github.com/flockpay/xero_adapter_app/internal/core/ports/clients"
)

const (
	authorizeEndpoint   = "https://login.xero.com/identity/connect/authorize"
	tokenEndpoint       = "https://identity.xero.com/connect/token"
	revocationEndpoint  = "https://identity.xero.com/connect/revocation"
	connectionsEndpoint = "https://api.xero.com/connections"
)

// scopes cover the accounting documents, the bank-feeds sub-API and offline
// refresh.
var scopes = []string{
	"openid",
	"accounting.transactions",
	"accounting.contacts",
	"accounting.settings",
	"accounting.attachments",
	"bankfeeds",
	"offline_access",
}

// AuthConfig is the OAuth app registration.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Auth holds the OAuth binding for one tenant: the token (refreshed lazily)
// and the tenant id all API requests are scoped to.
type Auth struct {
	cfg *oauth2.Config

	connectionsURL string
	revocationURL  string
	httpClient     *http.Client

	saveToken func(token *oauth2.Token, tenantID string)

	mu       sync.Mutex
	token    *oauth2.Token
	tenantID string
}

// AuthOption customizes the auth client, used by tests to point at stubs.
type AuthOption func(*Auth)

func WithAuthEndpoints(authorizeURL, tokenURL, connectionsURL, revocationURL string) AuthOption {
	return func(a *Auth) {
		a.cfg.Endpoint = oauth2.Endpoint{AuthURL: authorizeURL, TokenURL: tokenURL}
		a.connectionsURL = connectionsURL
		a.revocationURL = revocationURL
	}
}

func WithAuthHTTPClient(h *http.Client) AuthOption {
	return func(a *Auth) { a.httpClient = h }
}

// WithTokenSaver registers a callback invoked whenever the binding changes:
// after a consent exchange, after a refresh rotation, and with a nil token
// after a revocation. The caller persists the binding across restarts.
func WithTokenSaver(save func(token *oauth2.Token, tenantID string)) AuthOption {
	return func(a *Auth) { a.saveToken = save }
}

// NewAuth creates the OAuth client.
func NewAuth(cfg AuthConfig, opts ...AuthOption) *Auth {
	a := &Auth{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authorizeEndpoint,
				TokenURL: tokenEndpoint,
			},
		},
		connectionsURL: connectionsEndpoint,
		revocationURL:  revocationEndpoint,
		httpClient:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ portsclients.SinkAuthClient = (*Auth)(nil)

// GetAuthorizeURL builds the consent URL carrying the CSRF state.
func (a *Auth) GetAuthorizeURL(state string) string {
	return a.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode swaps the code for tokens and resolves the tenant the user
// consented for. With the adapter registered as a single-organisation app the
// connections listing holds exactly one entry; the first one wins regardless.
func (a *Auth) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	token, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	tenantID, err := a.firstTenant(ctx, token)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.token = token
	a.tenantID = tenantID
	a.mu.Unlock()
	if a.saveToken != nil {
		a.saveToken(token, tenantID)
	}
	return tenantID, nil
}

// SetConnection seeds a previously persisted binding, so a restarted process
// can resume without a fresh consent round-trip.
func (a *Auth) SetConnection(token *oauth2.Token, tenantID string) {
	a.mu.Lock()
	a.token = token
	a.tenantID = tenantID
	a.mu.Unlock()
}

// RevokeConnection revokes the refresh token and forgets the binding.
func (a *Auth) RevokeConnection(ctx context.Context) error {
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()
	if token == nil {
		return fmt.Errorf("%w: no active connection", apperrors.ErrUnauthorized)
	}

	form := url.Values{
		"token":           {token.RefreshToken},
		"token_type_hint": {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revocation request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}

	a.mu.Lock()
	a.token = nil
	a.tenantID = ""
	a.mu.Unlock()
	if a.saveToken != nil {
		a.saveToken(nil, "")
	}
	return nil
}

// authorize stamps the request with a fresh access token and the tenant
// header. A refresh performed by the token source is persisted back so the
// refresh token rotation does not strand the binding.
func (a *Auth) authorize(ctx context.Context, req *http.Request) error {
	a.mu.Lock()
	token := a.token
	tenantID := a.tenantID
	a.mu.Unlock()
	if token == nil || tenantID == "" {
		return fmt.Errorf("%w: tenant is not connected", apperrors.ErrUnauthorized)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	fresh, err := a.cfg.TokenSource(ctx, token).Token()
	if err != nil {
		return fmt.Errorf("%w: token refresh failed: %v", apperrors.ErrUnauthorized, err)
	}
	if fresh.AccessToken != token.AccessToken {
		a.mu.Lock()
		a.token = fresh
		a.mu.Unlock()
		if a.saveToken != nil {
			a.saveToken(fresh, tenantID)
		}
	}

	fresh.SetAuthHeader(req)
	req.Header.Set("Xero-tenant-id", tenantID)
	return nil
}

type connectionEntry struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenantId"`
	TenantType string `json:"tenantType"`
}

func (a *Auth) firstTenant(ctx context.Context, token *oauth2.Token) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.connectionsURL, nil)
	if err != nil {
		return "", err
	}
	token.SetAuthHeader(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("connections request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", parseError(resp)
	}

	var entries []connectionEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return "", fmt.Errorf("failed to decode connections response: %w", err)
	}
	for _, e := range entries {
		if e.TenantType == "" || strings.EqualFold(e.TenantType, "ORGANISATION") {
			return e.TenantID, nil
		}
	}
	return "", fmt.Errorf("%w: the consent granted no organisation", apperrors.ErrForbidden)
}
