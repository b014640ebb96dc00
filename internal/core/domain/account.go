package domain

import "github.com/shopspring/decimal"

// AccountStatus is the lifecycle state of a sink chart-of-accounts entry.
type AccountStatus string

const (
	AccountActive   AccountStatus = "ACTIVE"
	AccountArchived AccountStatus = "ARCHIVED"
)

const (
	// DefaultAccountCode is the fallback expense account every export can be
	// re-coded to when the requested account code is rejected by the sink.
	DefaultAccountCode = "999999"
	DefaultAccountName = "Payhawk General"

	// FeesAccountCode holds card and transfer fees; created with no tax.
	FeesAccountCode = "888888"
	FeesAccountName = "Fees"
)

// ExpenseAccount is a sink chart-of-accounts entry expenses can be coded to.
type ExpenseAccount struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Code        string        `json:"code"`
	Status      AccountStatus `json:"status"`
	TaxType     string        `json:"taxType"`
	Description string        `json:"description"`
}

// BankAccount is a sink bank account, one per source-balance currency.
type BankAccount struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Code         string        `json:"code"`
	CurrencyCode string        `json:"currencyCode"`
	Status       AccountStatus `json:"status"`
}

// TaxRate mirrors a sink tax rate.
type TaxRate struct {
	Name          string          `json:"name"`
	TaxType       string          `json:"taxType"`
	EffectiveRate decimal.Decimal `json:"effectiveRate"`
	Status        AccountStatus   `json:"status"`
}

// TrackingCategory mirrors a sink custom dimension and its allowed options.
type TrackingCategory struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Status  AccountStatus `json:"status"`
	Options []string      `json:"options"`
}

// TrackingOption is one selected tracking-category value on a document line.
type TrackingOption struct {
	CategoryName string `json:"categoryName"`
	Option       string `json:"option"`
}
