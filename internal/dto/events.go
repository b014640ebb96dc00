package dto

// Webhook event names delivered by the source platform.
const (
	EventExpenseExport          = "expense-export"
	EventExpenseDelete          = "expense-delete"
	EventTransferExport         = "transfer-export"
	EventTransfersExport        = "transfers-export"
	EventBankStatementExport    = "bank-statement-export"
	EventChartOfAccountsSync    = "chart-of-accounts-sync"
	EventTaxRatesSync           = "tax-rates-sync"
	EventBankAccountsSync       = "bank-accounts-sync"
	EventTrackingCategoriesSync = "tracking-categories-sync"
	EventInitialize             = "initialize"
	EventDisconnect             = "disconnect"
	EventAPIKeySet              = "api-key-set"
)

// WebhookEventRequest is the envelope of every webhook delivery. The data
// block is a union; each event validates the fields it needs.
type WebhookEventRequest struct {
	Event string           `json:"event" binding:"required,webhookevent"`
	Data  WebhookEventData `json:"data"`
}

// WebhookEventData carries the per-event parameters.
type WebhookEventData struct {
	ExpenseID  string `json:"expenseId,omitempty"`
	BalanceID  string `json:"balanceId,omitempty"`
	TransferID string `json:"transferId,omitempty"`

	// Window for bulk transfer export, inclusive, formatted 2006-01-02.
	StartDate string `json:"startDate,omitempty" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"endDate,omitempty" binding:"omitempty,datetime=2006-01-02"`

	APIKey string `json:"apiKey,omitempty"`
}

// WebhookAcceptedResponse acknowledges a processed event.
type WebhookAcceptedResponse struct {
	Event string `json:"event"`
}

// ExportErrorResponse carries a user-facing export failure back to the
// source platform, which displays the message on the expense.
type ExportErrorResponse struct {
	Error string `json:"error"`
}

// ConnectionStatusResponse reports whether a sink tenant is bound.
type ConnectionStatusResponse struct {
	IsConnected bool `json:"isConnected"`
}

// AuthorizeURLResponse carries the consent URL for the connect redirect.
type AuthorizeURLResponse struct {
	URL string `json:"url"`
}
