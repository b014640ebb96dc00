package xero

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
)

// GetOrCreateFeedConnection resolves the feed connection for the
// (account token, currency) pair. The bank-feeds API treats a create for an
// existing token+number pair as a lookup, so a single create call covers
// both cases.
func (c *Client) GetOrCreateFeedConnection(ctx context.Context, accountToken, accountNumber, currency string) (*domain.FeedConnection, error) {
	payload := feedConnectionsResponse{Items: []wireFeedConnection{{
		AccountToken:  accountToken,
		AccountNumber: accountNumber,
		AccountName:   fmt.Sprintf("Payhawk %s", currency),
		AccountType:   "BANK",
		Currency:      currency,
	}}}

	var out feedConnectionsResponse
	if err := c.do(ctx, http.MethodPost, c.feedsURL("/FeedConnections"), payload, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("feed connection create returned no connection")
	}
	connection := out.Items[0].toDomain()
	connection.Currency = currency
	return connection, nil
}

func (c *Client) GetFeedConnection(ctx context.Context, connectionID string) (*domain.FeedConnection, error) {
	var out wireFeedConnection
	if err := c.do(ctx, http.MethodGet, c.feedsURL("/FeedConnections/"+connectionID), nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// CreateFeedStatement posts one single-line statement. Rejections come back
// in the response body with a 2xx status; they are surfaced in the result,
// not as an error.
func (c *Client) CreateFeedStatement(ctx context.Context, statement *domain.NewFeedStatement) (*domain.StatementResult, error) {
	day := statement.Date.Format(apiDateFormat)
	line := wireStatementLine{
		PostedDate:           day,
		Description:          statement.Description,
		Amount:               statement.Amount,
		CreditDebitIndicator: string(statement.Indicator),
		TransactionID:        statement.StatementKey,
		PayeeName:            statement.ContactName,
	}
	payload := statementsRequest{Items: []wireStatement{{
		FeedConnectionID: statement.FeedConnectionID,
		StartDate:        day,
		EndDate:          day,
		StartBalance:     wireStatementAmount{CreditDebitIndicator: string(domain.IndicatorCredit)},
		EndBalance:       wireStatementAmount{CreditDebitIndicator: string(domain.IndicatorCredit)},
		StatementLines:   []wireStatementLine{line},
	}}}

	var out statementsResponse
	if err := c.do(ctx, http.MethodPost, c.feedsURL("/Statements"), payload, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("statement create returned no result")
	}

	item := out.Items[0]
	result := &domain.StatementResult{StatementID: item.ID}
	for _, e := range item.Errors {
		result.Rejections = append(result.Rejections, domain.StatementRejection{
			Type:   rejectionTypeFromWire(e.Type),
			Detail: e.Detail,
		})
	}
	return result, nil
}

func (c *Client) CloseFeedConnection(ctx context.Context, connectionID string) error {
	payload := feedConnectionsResponse{Items: []wireFeedConnection{{ID: connectionID}}}
	return c.do(ctx, http.MethodPost, c.feedsURL("/FeedConnections/DeleteRequests"), payload, nil)
}

// rejectionTypeFromWire normalizes the error type URI the feeds API reports
// onto the closed rejection set. Unknown types pass through so the caller's
// default branch sees the raw value.
func rejectionTypeFromWire(wireType string) domain.StatementRejectionType {
	t := wireType
	if i := strings.LastIndex(t, "/"); i >= 0 {
		t = t[i+1:]
	}
	return domain.StatementRejectionType(t)
}
