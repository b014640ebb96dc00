package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the source entity a bank-feed statement mirrors. The
// (account, entity type, entity id) triple is the statement dedup key.
type EntityType string

const (
	EntityExpense        EntityType = "EXPENSE"
	EntityTransfer       EntityType = "TRANSFER"
	EntityTransaction    EntityType = "TRANSACTION"
	EntityBalancePayment EntityType = "BALANCE_PAYMENT"
)

// FeedConnectionStatus is the remote state of a bank-feed connection.
type FeedConnectionStatus string

const (
	FeedConnectionPending   FeedConnectionStatus = "PENDING"
	FeedConnectionConnected FeedConnectionStatus = "CONNECTED"
)

// FeedConnection is a remote handle associating a sink bank account with the
// source platform's feed. At most one active connection exists per
// (account, currency) pair.
type FeedConnection struct {
	ID            string               `json:"id"`
	BankAccountID string               `json:"bankAccountId"`
	AccountToken  string               `json:"accountToken"`
	Currency      string               `json:"currency"`
	Status        FeedConnectionStatus `json:"status"`
}

// CreditDebitIndicator marks the direction of a statement line.
type CreditDebitIndicator string

const (
	IndicatorCredit CreditDebitIndicator = "CREDIT"
	IndicatorDebit  CreditDebitIndicator = "DEBIT"
)

// NewFeedStatement is the create payload for one bank-feed statement line.
type NewFeedStatement struct {
	FeedConnectionID string               `json:"feedConnectionId"`
	StatementKey     string               `json:"statementKey"`
	Date             time.Time            `json:"date"`
	Amount           decimal.Decimal      `json:"amount"`
	Indicator        CreditDebitIndicator `json:"indicator"`
	ContactName      string               `json:"contactName"`
	Description      string               `json:"description"`
}

// StatementRejectionType is the closed set of rejection codes the bank-feeds
// API reports on a refused statement.
type StatementRejectionType string

const (
	RejectionInvalidFeedConnection StatementRejectionType = "invalid-feed-connection"
	RejectionDuplicateStatement    StatementRejectionType = "duplicate-statement"
	RejectionInvalidStartDate      StatementRejectionType = "invalid-start-date"
	RejectionInvalidEndDate        StatementRejectionType = "invalid-end-date"
	RejectionInternalError         StatementRejectionType = "internal-error"
)

// StatementRejection is one rejection error on a refused statement.
type StatementRejection struct {
	Type   StatementRejectionType `json:"type"`
	Detail string                 `json:"detail"`
}

// StatementResult is the bank-feeds API response for one created statement.
type StatementResult struct {
	StatementID string               `json:"statementId"`
	Rejections  []StatementRejection `json:"rejections"`
}
