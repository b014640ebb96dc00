package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType indicates how an expense was (or will be) paid.
type PaymentType string

const (
	PaymentTypeCard    PaymentType = "CARD"
	PaymentTypeBank    PaymentType = "BANK"
	PaymentTypeBalance PaymentType = "BALANCE"
)

// ExpenseOwner is the employee the expense belongs to.
type ExpenseOwner struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Supplier identifies the counterparty of an expense.
type Supplier struct {
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
	VAT         string `json:"vat"`
	UIC         string `json:"uic"`
}

// ExpenseFile is a downloaded attachment, referenced by local path after the
// source client has fetched it.
type ExpenseFile struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Path        string `json:"path"`
}

// ExpenseDocument holds invoice metadata captured on the source platform.
type ExpenseDocument struct {
	Date   *time.Time    `json:"date"`
	Number string        `json:"number"`
	Files  []ExpenseFile `json:"files"`
}

// CustomField is a source-platform custom dimension. Fields tagged with
// ExternalSource "xero" mirror the sink's tracking categories.
type CustomField struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	ExternalSource string `json:"externalSource"`
	SelectedValue  string `json:"selectedValue"`
}

// Reconciliation is the accounting block of an expense or line item.
type Reconciliation struct {
	ExpenseCurrency    string          `json:"expenseCurrency"`
	ExpenseTotalAmount decimal.Decimal `json:"expenseTotalAmount"`
	ExpenseTaxAmount   decimal.Decimal `json:"expenseTaxAmount"`
	AccountCode        string          `json:"accountCode"`
	TaxCode            string          `json:"taxCode"`
	CustomFields       []CustomField   `json:"customFields"`
}

// CardTransaction is one card movement settling (part of) an expense.
type CardTransaction struct {
	ID             string          `json:"id"`
	CardAmount     decimal.Decimal `json:"cardAmount"`
	CardCurrency   string          `json:"cardCurrency"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	PaidCurrency   string          `json:"paidCurrency"`
	FxFees         decimal.Decimal `json:"fxFees"`
	PosFees        decimal.Decimal `json:"posFees"`
	BankFees       decimal.Decimal `json:"bankFees"`
	Date           time.Time       `json:"date"`
	SettlementDate *time.Time      `json:"settlementDate"`
	Description    string          `json:"description"`
}

// BalancePaymentStatus is the source platform's settlement state for a
// payment made from the account balance.
type BalancePaymentStatus string

const (
	BalancePaymentSettled BalancePaymentStatus = "SETTLED"
	BalancePaymentPending BalancePaymentStatus = "PENDING"
	BalancePaymentFailed  BalancePaymentStatus = "FAILED"
)

// BalancePayment is a payment issued from the source platform balance, either
// for a single expense or for a bulk payout covering several.
type BalancePayment struct {
	ID                string               `json:"id"`
	Amount            decimal.Decimal      `json:"amount"`
	Currency          string               `json:"currency"`
	FxRate            decimal.Decimal      `json:"fxRate"`
	BankFees          decimal.Decimal      `json:"bankFees"`
	FxFees            decimal.Decimal      `json:"fxFees"`
	Date              time.Time            `json:"date"`
	Status            BalancePaymentStatus `json:"status"`
	RelatedExpenseIDs []string             `json:"relatedExpenseIds"`
}

// LineItem is a sub-division of an expense with its own reconciliation block.
type LineItem struct {
	ID             string         `json:"id"`
	Reconciliation Reconciliation `json:"reconciliation"`
	TaxRate        *TaxRateRef    `json:"taxRate"`
}

// TaxRateRef references a sink tax rate picked on the source platform.
type TaxRateRef struct {
	Code string          `json:"code"`
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

// Expense is the read-only snapshot fetched from the ledger source per export
// call. It is never mutated locally; after a successful export the engine only
// writes external links back through the source client.
type Expense struct {
	ID                       string            `json:"id"`
	CreatedAt                time.Time         `json:"createdAt"`
	Title                    string            `json:"title"`
	Note                     string            `json:"note"`
	Owner                    ExpenseOwner      `json:"owner"`
	Document                 *ExpenseDocument  `json:"document"`
	Supplier                 Supplier          `json:"supplier"`
	Reconciliation           Reconciliation    `json:"reconciliation"`
	Transactions             []CardTransaction `json:"transactions"`
	BalancePayments          []BalancePayment  `json:"balancePayments"`
	LineItems                []LineItem        `json:"lineItems"`
	PaymentType              PaymentType       `json:"paymentType"`
	IsPaid                   bool              `json:"isPaid"`
	IsLocked                 bool              `json:"isLocked"`
	IsReadyForReconciliation bool              `json:"isReadyForReconciliation"`
	RecipientContactID       string            `json:"recipientContactId"`
}

// Date resolves the document date used for export: the captured invoice date
// when present, otherwise the expense creation date.
func (e *Expense) Date() time.Time {
	if e.Document != nil && e.Document.Date != nil {
		return *e.Document.Date
	}
	return e.CreatedAt
}

// SettledBalancePayments returns the balance payments confirmed by the source.
func (e *Expense) SettledBalancePayments() []BalancePayment {
	var settled []BalancePayment
	for _, p := range e.BalancePayments {
		if p.Status == BalancePaymentSettled {
			settled = append(settled, p)
		}
	}
	return settled
}

// ExternalLink is a deep link into an external system, written back to the
// source platform after export.
type ExternalLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
