package reconciliation

import (
	"errors"
	"fmt"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNoTransactions     = errors.New("expense has no card transactions")
	ErrMixedTxnCurrencies = errors.New("expense transactions are in different currencies")
	ErrZeroExpenseAmount  = errors.New("expense total amount is zero")
)

// fxRatePrecision is the scale used for derived FX rates.
const fxRatePrecision = 6

// amountPrecision is the scale of every monetary amount sent to the sink.
const amountPrecision = 2

// BuildCardModel normalizes a card-paid expense into a ledger-ready model.
//
// When the card currency equals the organisation's base currency the expense
// currency stays canonical: each settled transaction becomes a payment whose
// original amount is derived through the expense-to-card rate, and the
// rounding remainder is absorbed by the first payment, whose own rate is then
// recomputed from its amounts. Otherwise the card currency is canonical, the
// card amounts are used verbatim and only the tax amount is converted.
//
// The builder is pure: it never performs I/O and is fully determined by the
// expense snapshot and the base currency.
func BuildCardModel(expense *domain.Expense, baseCurrency string) (*domain.ExpenseModel, error) {
	txns := expense.Transactions
	if len(txns) == 0 {
		return nil, ErrNoTransactions
	}

	txnCurrency := txns[0].CardCurrency
	txnTotal := decimal.Zero
	for _, t := range txns {
		if t.CardCurrency != txnCurrency {
			return nil, fmt.Errorf("%w: %s and %s", ErrMixedTxnCurrencies, txnCurrency, t.CardCurrency)
		}
		txnTotal = txnTotal.Add(t.CardAmount)
	}

	rec := expense.Reconciliation
	if txnCurrency == baseCurrency && rec.ExpenseCurrency != txnCurrency {
		return buildCardModelInExpenseCurrency(expense, txnTotal)
	}
	return buildCardModelInCardCurrency(expense, txnCurrency, txnTotal)
}

// buildCardModelInExpenseCurrency keeps the expense currency canonical and
// derives every payment's original amount through the reverse card rate.
func buildCardModelInExpenseCurrency(expense *domain.Expense, txnTotal decimal.Decimal) (*domain.ExpenseModel, error) {
	rec := expense.Reconciliation
	if txnTotal.IsZero() {
		return nil, ErrZeroExpenseAmount
	}

	// reverse rate converts a card amount back into the expense currency
	reverseFxRate := rec.ExpenseTotalAmount.Div(txnTotal)
	taxAmount := rec.ExpenseTaxAmount

	// The model stays in the expense currency, so its own rate is 1; the
	// reverse rate only shapes the per-payment amounts below.
	model := &domain.ExpenseModel{
		Currency:    rec.ExpenseCurrency,
		TotalAmount: rec.ExpenseTotalAmount,
		TaxAmount:   &taxAmount,
		FxRate:      decimal.NewFromInt(1),
	}

	if !allSettled(expense.Transactions) {
		return model, nil
	}

	payments := make([]domain.PaymentModel, 0, len(expense.Transactions))
	assigned := decimal.Zero
	for _, t := range expense.Transactions {
		original := t.CardAmount.Mul(reverseFxRate).Round(amountPrecision)
		assigned = assigned.Add(original)
		payments = append(payments, domain.PaymentModel{
			ID:               t.ID,
			OriginalAmount:   original,
			OriginalCurrency: rec.ExpenseCurrency,
			FxRate:           paymentRate(original, t.CardAmount),
			PaidAmount:       t.CardAmount,
			PaidCurrency:     t.CardCurrency,
			FxFees:           t.FxFees,
			PosFees:          t.PosFees,
			BankFees:         t.BankFees,
			Date:             *t.SettlementDate,
		})
	}

	// The rounding remainder lands entirely on the first payment, whose rate
	// is recomputed so originalAmount/paidAmount stays internally consistent.
	remainder := rec.ExpenseTotalAmount.Sub(assigned)
	if !remainder.IsZero() {
		payments[0].OriginalAmount = payments[0].OriginalAmount.Add(remainder)
		payments[0].FxRate = paymentRate(payments[0].OriginalAmount, payments[0].PaidAmount)
	}

	model.Payments = payments
	return model, nil
}

// buildCardModelInCardCurrency keeps the card currency canonical: card
// amounts are used verbatim and the tax amount is converted when the expense
// was captured in another currency.
func buildCardModelInCardCurrency(expense *domain.Expense, txnCurrency string, txnTotal decimal.Decimal) (*domain.ExpenseModel, error) {
	rec := expense.Reconciliation

	fxRate := decimal.NewFromInt(1)
	var taxAmount *decimal.Decimal
	if rec.ExpenseCurrency == txnCurrency {
		tax := rec.ExpenseTaxAmount
		taxAmount = &tax
	} else if !rec.ExpenseTotalAmount.IsZero() {
		fxRate = txnTotal.Div(rec.ExpenseTotalAmount).Round(fxRatePrecision)
		tax := rec.ExpenseTaxAmount.Mul(fxRate).Round(amountPrecision)
		taxAmount = &tax
	}

	model := &domain.ExpenseModel{
		Currency:    txnCurrency,
		TotalAmount: txnTotal,
		TaxAmount:   taxAmount,
		FxRate:      fxRate,
	}

	if !allSettled(expense.Transactions) {
		return model, nil
	}

	payments := make([]domain.PaymentModel, 0, len(expense.Transactions))
	for _, t := range expense.Transactions {
		payments = append(payments, domain.PaymentModel{
			ID:               t.ID,
			OriginalAmount:   t.CardAmount,
			OriginalCurrency: txnCurrency,
			FxRate:           decimal.NewFromInt(1),
			PaidAmount:       t.CardAmount,
			PaidCurrency:     t.CardCurrency,
			FxFees:           t.FxFees,
			PosFees:          t.PosFees,
			BankFees:         t.BankFees,
			Date:             *t.SettlementDate,
		})
	}

	model.Payments = payments
	return model, nil
}

// paymentRate derives the per-payment FX rate from its two amounts.
func paymentRate(original, paid decimal.Decimal) decimal.Decimal {
	if paid.IsZero() {
		return decimal.NewFromInt(1)
	}
	return original.Div(paid).Round(fxRatePrecision)
}

func allSettled(txns []domain.CardTransaction) bool {
	for _, t := range txns {
		if t.SettlementDate == nil {
			return false
		}
	}
	return len(txns) > 0
}
