package reconciliation

import (
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// trackedSource is the external-source tag marking a custom field as a
// mirrored sink tracking category.
const trackedSource = "xero"

// BuildLines maps an expense onto sink document lines in the model currency.
//
// An expense without line items yields a single synthesized line carrying the
// top-level reconciliation. Otherwise every line item maps 1:1, its amount
// converted through the model's FX rate; the conversion remainder against the
// model total is folded into the first line. Account codes are cleared when
// the expense is not ready for reconciliation so a half-coded expense never
// reaches the ledger with a stale code.
func BuildLines(expense *domain.Expense, model *domain.ExpenseModel) []domain.DocumentLine {
	if len(expense.LineItems) == 0 {
		return []domain.DocumentLine{buildTopLevelLine(expense, model)}
	}

	lines := make([]domain.DocumentLine, 0, len(expense.LineItems))
	assigned := decimal.Zero
	for _, item := range expense.LineItems {
		amount := item.Reconciliation.ExpenseTotalAmount.Mul(model.FxRate).Round(amountPrecision)
		assigned = assigned.Add(amount)

		accountCode := item.Reconciliation.AccountCode
		if !expense.IsReadyForReconciliation {
			accountCode = ""
		}

		line := domain.DocumentLine{
			Description:     lineDescription(expense),
			Amount:          amount,
			AccountCode:     accountCode,
			TaxType:         lineTaxType(item),
			TrackingOptions: trackingOptions(item.Reconciliation.CustomFields),
		}

		// Tax amounts only survive the mapping when no conversion happened;
		// a converted tax figure would no longer match the sink's own math.
		if item.Reconciliation.ExpenseCurrency == model.Currency {
			tax := item.Reconciliation.ExpenseTaxAmount
			line.TaxAmount = &tax
		}
		lines = append(lines, line)
	}

	remainder := model.TotalAmount.Sub(assigned)
	if !remainder.IsZero() {
		lines[0].Amount = lines[0].Amount.Add(remainder)
	}
	return lines
}

// SumLineReconciliations totals the line items' own reconciliation amounts,
// in the expense currency. Callers compare it against the expense total.
func SumLineReconciliations(expense *domain.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range expense.LineItems {
		sum = sum.Add(item.Reconciliation.ExpenseTotalAmount)
	}
	return sum
}

func buildTopLevelLine(expense *domain.Expense, model *domain.ExpenseModel) domain.DocumentLine {
	rec := expense.Reconciliation

	accountCode := rec.AccountCode
	if !expense.IsReadyForReconciliation {
		accountCode = ""
	}

	line := domain.DocumentLine{
		Description:     lineDescription(expense),
		Amount:          model.TotalAmount,
		AccountCode:     accountCode,
		TaxType:         rec.TaxCode,
		TrackingOptions: trackingOptions(rec.CustomFields),
	}
	if model.TaxAmount != nil {
		tax := *model.TaxAmount
		line.TaxAmount = &tax
	}
	return line
}

func lineDescription(expense *domain.Expense) string {
	if expense.Title != "" {
		return expense.Title
	}
	if expense.Note != "" {
		return expense.Note
	}
	return expense.Supplier.Name
}

func lineTaxType(item domain.LineItem) string {
	if item.Reconciliation.TaxCode != "" {
		return item.Reconciliation.TaxCode
	}
	if item.TaxRate != nil {
		return item.TaxRate.Code
	}
	return ""
}

// trackingOptions extracts the custom fields mirrored from the sink.
func trackingOptions(fields []domain.CustomField) []domain.TrackingOption {
	var options []domain.TrackingOption
	for _, f := range fields {
		if f.ExternalSource != trackedSource || f.SelectedValue == "" {
			continue
		}
		options = append(options, domain.TrackingOption{
			CategoryName: f.Label,
			Option:       f.SelectedValue,
		})
	}
	return options
}
