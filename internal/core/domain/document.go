package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the sink-side lifecycle state of a bill or credit note.
type InvoiceStatus string

const (
	InvoiceDraft      InvoiceStatus = "DRAFT"
	InvoiceSubmitted  InvoiceStatus = "SUBMITTED"
	InvoiceAuthorised InvoiceStatus = "AUTHORISED"
	InvoicePaid       InvoiceStatus = "PAID"
	InvoiceVoided     InvoiceStatus = "VOIDED"
)

// BankTransactionStatus is the sink-side state of an account transaction.
type BankTransactionStatus string

const (
	BankTransactionAuthorised BankTransactionStatus = "AUTHORISED"
	BankTransactionReconciled BankTransactionStatus = "RECONCILED"
	BankTransactionDeleted    BankTransactionStatus = "DELETED"
)

// DocumentLine is one coded line of a bill, credit note or account
// transaction sent to the sink.
type DocumentLine struct {
	Description     string           `json:"description"`
	Amount          decimal.Decimal  `json:"amount"`
	TaxAmount       *decimal.Decimal `json:"taxAmount"`
	AccountCode     string           `json:"accountCode"`
	TaxType         string           `json:"taxType"`
	TrackingOptions []TrackingOption `json:"trackingOptions"`
}

// BillPayment records a payment to be registered against a bill after upsert.
type BillPayment struct {
	Amount        decimal.Decimal `json:"amount"`
	FxRate        decimal.Decimal `json:"fxRate"`
	Date          time.Time       `json:"date"`
	BankAccountID string          `json:"bankAccountId"`
}

// NewBill is the upsert payload for a sink bill. URL is the durable
// idempotency key: the sink stores it on the document and the manager finds
// existing documents by it on every attempt.
type NewBill struct {
	URL         string          `json:"url"`
	ContactID   string          `json:"contactId"`
	Date        time.Time       `json:"date"`
	DueDate     time.Time       `json:"dueDate"`
	Reference   string          `json:"reference"`
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Lines       []DocumentLine  `json:"lines"`
	Files       []ExpenseFile   `json:"files"`
	Payment     *BillPayment    `json:"payment"`
}

// NewCreditNote is the create payload for a sink credit note, located by its
// credit-note number rather than by URL.
type NewCreditNote struct {
	Number      string          `json:"number"`
	ContactID   string          `json:"contactId"`
	Date        time.Time       `json:"date"`
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Lines       []DocumentLine  `json:"lines"`
	Files       []ExpenseFile   `json:"files"`
	Payments    []BillPayment   `json:"payments"`
}

// NewAccountTransaction is the upsert payload for a sink spend/receive money
// transaction, keyed by URL like bills.
type NewAccountTransaction struct {
	URL           string          `json:"url"`
	BankAccountID string          `json:"bankAccountId"`
	ContactID     string          `json:"contactId"`
	Date          time.Time       `json:"date"`
	Reference     string          `json:"reference"`
	Currency      string          `json:"currency"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	FxFees        decimal.Decimal `json:"fxFees"`
	PosFees       decimal.Decimal `json:"posFees"`
	BankFees      decimal.Decimal `json:"bankFees"`
	Lines         []DocumentLine  `json:"lines"`
	Files         []ExpenseFile   `json:"files"`
}

// Invoice is a sink bill or credit note record.
type Invoice struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"`
	Status     InvoiceStatus   `json:"status"`
	AmountDue  decimal.Decimal `json:"amountDue"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	Currency   string          `json:"currency"`
}

// BankTransaction is a sink account transaction record.
type BankTransaction struct {
	ID     string                `json:"id"`
	Status BankTransactionStatus `json:"status"`
}

// Attachment is a file already uploaded against a sink document.
type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
}

// Contact is a sink counterparty record.
type Contact struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
