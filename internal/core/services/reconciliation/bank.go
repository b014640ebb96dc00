package reconciliation

import (
	"sort"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BuildReimbursableModel normalizes a bank-paid (reimbursable) expense.
//
// The most recent non-failed balance payment is canonical, preferring settled
// ones. When it is in the organisation's base currency (or no payment exists)
// the expense currency stays canonical with an FX rate of 1. Otherwise the
// payment currency is canonical: single-expense payments derive the rate from
// the two totals, bulk payouts reuse the rate stored on the payment and the
// total is recomputed from it.
func BuildReimbursableModel(expense *domain.Expense, baseCurrency string) (*domain.ExpenseModel, error) {
	payment := pickCanonicalPayment(expense.BalancePayments)

	rec := expense.Reconciliation
	if payment == nil || payment.Currency == baseCurrency || payment.Currency == rec.ExpenseCurrency {
		tax := rec.ExpenseTaxAmount
		model := &domain.ExpenseModel{
			Currency:    rec.ExpenseCurrency,
			TotalAmount: rec.ExpenseTotalAmount,
			TaxAmount:   &tax,
			FxRate:      decimal.NewFromInt(1),
		}
		if payment != nil && payment.Status == domain.BalancePaymentSettled {
			model.Payments = []domain.PaymentModel{buildBalanceLeg(*payment, rec.ExpenseTotalAmount, rec.ExpenseCurrency, decimal.NewFromInt(1))}
		}
		return model, nil
	}

	var fxRate decimal.Decimal
	var totalAmount decimal.Decimal
	if len(payment.RelatedExpenseIDs) > 1 {
		// Bulk payouts settle several expenses at once; the per-expense split
		// is only recoverable through the rate captured at payout time.
		fxRate = payment.FxRate
		totalAmount = rec.ExpenseTotalAmount.Mul(fxRate).Round(amountPrecision)
	} else {
		if rec.ExpenseTotalAmount.IsZero() {
			return nil, ErrZeroExpenseAmount
		}
		fxRate = payment.Amount.Div(rec.ExpenseTotalAmount).Round(fxRatePrecision)
		totalAmount = payment.Amount
	}

	tax := rec.ExpenseTaxAmount.Mul(fxRate).Round(amountPrecision)
	model := &domain.ExpenseModel{
		Currency:    payment.Currency,
		TotalAmount: totalAmount,
		TaxAmount:   &tax,
		FxRate:      fxRate,
	}
	if payment.Status == domain.BalancePaymentSettled {
		model.Payments = []domain.PaymentModel{buildBalanceLeg(*payment, totalAmount, payment.Currency, fxRate)}
	}
	return model, nil
}

// pickCanonicalPayment orders payments by date descending and returns the
// most recent settled one, falling back to the most recent non-failed one.
func pickCanonicalPayment(payments []domain.BalancePayment) *domain.BalancePayment {
	if len(payments) == 0 {
		return nil
	}

	ordered := make([]domain.BalancePayment, len(payments))
	copy(ordered, payments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.After(ordered[j].Date)
	})

	for _, p := range ordered {
		if p.Status == domain.BalancePaymentSettled {
			return &p
		}
	}
	for _, p := range ordered {
		if p.Status != domain.BalancePaymentFailed {
			return &p
		}
	}
	return nil
}

func buildBalanceLeg(payment domain.BalancePayment, originalAmount decimal.Decimal, originalCurrency string, fxRate decimal.Decimal) domain.PaymentModel {
	return domain.PaymentModel{
		ID:                payment.ID,
		OriginalAmount:    originalAmount,
		OriginalCurrency:  originalCurrency,
		FxRate:            fxRate,
		PaidAmount:        payment.Amount,
		PaidCurrency:      payment.Currency,
		BankFees:          payment.BankFees,
		FxFees:            payment.FxFees,
		Date:              payment.Date,
		RelatedExpenseIDs: payment.RelatedExpenseIDs,
	}
}
