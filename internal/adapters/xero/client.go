package xero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	portsclients "github.com/flockpay/xero_adapter_app/internal/core/ports/clients"
)

const (
	defaultAccountingBaseURL = "https://api.xero.com/api.xro/2.0"
	defaultFeedsBaseURL      = "https://api.xero.com/bankfeeds.xro/1.0"

	requestTimeout = 30 * time.Second
)

// Client is the accounting-API facade for one connected tenant. All requests
// go through do, which serializes them: the remote API rejects concurrent
// writes for the same tenant and the documents we touch depend on each other.
type Client struct {
	auth *Auth

	accountingBaseURL string
	feedsBaseURL      string
	httpClient        *http.Client

	mu sync.Mutex
}

// ClientOption customizes the client, used by tests to point at a stub server.
type ClientOption func(*Client)

func WithAccountingBaseURL(u string) ClientOption {
	return func(c *Client) { c.accountingBaseURL = u }
}

func WithFeedsBaseURL(u string) ClientOption {
	return func(c *Client) { c.feedsBaseURL = u }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates the tenant-scoped API client.
func NewClient(auth *Auth, opts ...ClientOption) *Client {
	c := &Client{
		auth:              auth,
		accountingBaseURL: defaultAccountingBaseURL,
		feedsBaseURL:      defaultFeedsBaseURL,
		httpClient:        &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ portsclients.SinkClient = (*Client)(nil)
var _ portsclients.BankFeedsClient = (*Client)(nil)

// do performs one JSON request against the API and decodes the response into
// out when out is non-nil. Exactly one request per tenant is in flight at a
// time.
func (c *Client) do(ctx context.Context, method, rawURL string, body any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.auth.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// upload performs one multipart file upload. Uploads share the same
// serialization as JSON requests so attachment order is preserved.
func (c *Client) upload(ctx context.Context, rawURL, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open attachment %s: %w", path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read attachment %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := c.auth.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) accountingURL(path string, query url.Values) string {
	u := c.accountingBaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) feedsURL(path string) string {
	return c.feedsBaseURL + path
}
