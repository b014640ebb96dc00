package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentModel is one normalized payment leg of an export model.
// OriginalAmount is expressed in the model currency; PaidAmount in the
// currency the money actually moved in.
type PaymentModel struct {
	ID                string          `json:"id"`
	OriginalAmount    decimal.Decimal `json:"originalAmount"`
	OriginalCurrency  string          `json:"originalCurrency"`
	FxRate            decimal.Decimal `json:"fxRate"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	PaidCurrency      string          `json:"paidCurrency"`
	BankFees          decimal.Decimal `json:"bankFees"`
	FxFees            decimal.Decimal `json:"fxFees"`
	PosFees           decimal.Decimal `json:"posFees"`
	Date              time.Time       `json:"date"`
	RelatedExpenseIDs []string        `json:"relatedExpenseIds"`
}

// ExpenseModel is the ledger-ready projection of an expense produced by the
// pure builders: one canonical currency, reconciled totals and the payment
// legs that settle them. Invariant: the payment original amounts sum exactly
// to TotalAmount after remainder redistribution. FxRate converts
// expense-currency amounts into the model currency, whatever the builder
// chose as canonical; line-item splits rely on that meaning.
type ExpenseModel struct {
	Currency    string           `json:"currency"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	TaxAmount   *decimal.Decimal `json:"taxAmount"`
	FxRate      decimal.Decimal  `json:"fxRate"`
	Payments    []PaymentModel   `json:"payments"`
}

// TotalFees sums fx, pos and bank fees across all payment legs.
func (m *ExpenseModel) TotalFees() decimal.Decimal {
	total := decimal.Zero
	for _, p := range m.Payments {
		total = total.Add(p.FxFees).Add(p.PosFees).Add(p.BankFees)
	}
	return total
}
