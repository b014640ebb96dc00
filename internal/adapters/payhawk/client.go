// Package payhawk implements the ledger-source API client.
package payhawk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	portsclients "github.com/flockpay/xero_adapter_app/internal/core/ports/clients"
)

const (
	apiKeyHeader   = "X-Payhawk-ApiKey"
	requestTimeout = 30 * time.Second
	queryDateFmt   = "2006-01-02"
)

// Client talks to the expense platform's API for one account.
type Client struct {
	baseURL    string
	accountID  string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates the account-scoped source client. baseURL is the API
// root, e.g. https://api.payhawk.com/api/v3.
func NewClient(baseURL, accountID, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		accountID:  accountID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

var _ portsclients.SourceClient = (*Client)(nil)

func (c *Client) GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error) {
	var expense domain.Expense
	if err := c.get(ctx, c.accountURL("/expenses/"+expenseID, nil), &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (c *Client) GetTransfer(ctx context.Context, balanceID, transferID string) (*domain.Transfer, error) {
	var transfer domain.Transfer
	path := fmt.Sprintf("/funds/balances/%s/transfers/%s", balanceID, transferID)
	if err := c.get(ctx, c.accountURL(path, nil), &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (c *Client) GetTransfers(ctx context.Context, startDate, endDate time.Time) ([]domain.Transfer, error) {
	query := url.Values{
		"startDate": {startDate.Format(queryDateFmt)},
		"endDate":   {endDate.Format(queryDateFmt)},
	}
	var out struct {
		Items []domain.Transfer `json:"items"`
	}
	if err := c.get(ctx, c.accountURL("/funds/transfers", query), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) GetBalanceCurrencies(ctx context.Context) ([]string, error) {
	var out struct {
		Items []struct {
			Currency string `json:"currency"`
		} `json:"items"`
	}
	if err := c.get(ctx, c.accountURL("/funds/balances", nil), &out); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(out.Items))
	currencies := make([]string, 0, len(out.Items))
	for _, b := range out.Items {
		if !seen[b.Currency] {
			seen[b.Currency] = true
			currencies = append(currencies, b.Currency)
		}
	}
	return currencies, nil
}

// DownloadFiles fetches the expense's document files to local temp files.
// The caller owns the returned paths and removes them after the export.
func (c *Client) DownloadFiles(ctx context.Context, expense *domain.Expense) ([]domain.ExpenseFile, error) {
	if expense.Document == nil {
		return nil, nil
	}

	files := make([]domain.ExpenseFile, 0, len(expense.Document.Files))
	for _, f := range expense.Document.Files {
		path, err := c.downloadFile(ctx, expense.ID, f)
		if err != nil {
			removePaths(files)
			return nil, fmt.Errorf("failed to download %q: %w", f.FileName, err)
		}
		files = append(files, domain.ExpenseFile{
			FileName:    f.FileName,
			ContentType: f.ContentType,
			Path:        path,
		})
	}
	return files, nil
}

func (c *Client) UpdateExpenseLinks(ctx context.Context, expenseID string, links []domain.ExternalLink) error {
	payload := struct {
		Links []domain.ExternalLink `json:"links"`
	}{Links: links}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.accountURL("/expenses/"+expenseID+"/external-links", nil), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) downloadFile(ctx context.Context, expenseID string, f domain.ExpenseFile) (string, error) {
	fileURL := c.accountURL(
		fmt.Sprintf("/expenses/%s/files/%s", expenseID, url.PathEscape(f.FileName)), nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "payhawk-attachment-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// send executes the request and maps failure statuses onto the shared error
// set. On success the caller owns the body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, body)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, req.URL.Path)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRateLimited, resp.Header.Get("Retry-After"))
	default:
		return nil, &apperrors.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

func (c *Client) accountURL(path string, query url.Values) string {
	u := fmt.Sprintf("%s/accounts/%s%s", c.baseURL, c.accountID, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func removePaths(files []domain.ExpenseFile) {
	for _, f := range files {
		os.Remove(f.Path)
	}
}
