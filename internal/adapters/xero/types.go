package xero

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flockpay/xero_adapter_app/internal/core/domain"
)

const apiDateFormat = "2006-01-02"

// apiDate marshals to the accounting API's plain date format.
type apiDate struct {
	time.Time
}

func newAPIDate(t time.Time) apiDate { return apiDate{t} }

func (d apiDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(apiDateFormat) + `"`), nil
}

func (d *apiDate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	// Timestamps come back with or without a time part.
	for _, layout := range []string{apiDateFormat, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	t, err := time.Parse(apiDateFormat, s[:len(apiDateFormat)])
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

type wireOrganisation struct {
	Name              string   `json:"Name"`
	BaseCurrency      string   `json:"BaseCurrency"`
	ShortCode         string   `json:"ShortCode"`
	IsDemoCompany     bool     `json:"IsDemoCompany"`
	PeriodLockDate    *apiDate `json:"PeriodLockDate"`
	EndOfYearLockDate *apiDate `json:"EndOfYearLockDate"`
}

type organisationsResponse struct {
	Organisations []wireOrganisation `json:"Organisations"`
}

func (w wireOrganisation) toDomain() *domain.Organisation {
	org := &domain.Organisation{
		Name:          w.Name,
		BaseCurrency:  w.BaseCurrency,
		ShortCode:     w.ShortCode,
		IsDemoCompany: w.IsDemoCompany,
	}
	if w.PeriodLockDate != nil {
		t := w.PeriodLockDate.Time
		org.PeriodLockDate = &t
	}
	if w.EndOfYearLockDate != nil {
		t := w.EndOfYearLockDate.Time
		org.EndOfYearLockDate = &t
	}
	return org
}

type wireContact struct {
	ContactID string `json:"ContactID,omitempty"`
	Name      string `json:"Name"`
	TaxNumber string `json:"TaxNumber,omitempty"`
}

type contactsResponse struct {
	Contacts []wireContact `json:"Contacts"`
}

type wireAccount struct {
	AccountID    string `json:"AccountID,omitempty"`
	Code         string `json:"Code,omitempty"`
	Name         string `json:"Name"`
	Type         string `json:"Type"`
	Status       string `json:"Status,omitempty"`
	TaxType      string `json:"TaxType,omitempty"`
	Description  string `json:"Description,omitempty"`
	CurrencyCode string `json:"CurrencyCode,omitempty"`
}

type accountsResponse struct {
	Accounts []wireAccount `json:"Accounts"`
}

func (w wireAccount) toExpenseAccount() domain.ExpenseAccount {
	return domain.ExpenseAccount{
		ID:          w.AccountID,
		Name:        w.Name,
		Code:        w.Code,
		Status:      domain.AccountStatus(w.Status),
		TaxType:     w.TaxType,
		Description: w.Description,
	}
}

func (w wireAccount) toBankAccount() domain.BankAccount {
	return domain.BankAccount{
		ID:           w.AccountID,
		Name:         w.Name,
		Code:         w.Code,
		CurrencyCode: w.CurrencyCode,
		Status:       domain.AccountStatus(w.Status),
	}
}

type wireTaxRate struct {
	Name          string          `json:"Name"`
	TaxType       string          `json:"TaxType"`
	EffectiveRate decimal.Decimal `json:"EffectiveRate"`
	Status        string          `json:"Status"`
}

type taxRatesResponse struct {
	TaxRates []wireTaxRate `json:"TaxRates"`
}

type wireTrackingOption struct {
	Name   string `json:"Name"`
	Status string `json:"Status,omitempty"`
}

type wireTrackingCategory struct {
	TrackingCategoryID string               `json:"TrackingCategoryID"`
	Name               string               `json:"Name"`
	Status             string               `json:"Status"`
	Options            []wireTrackingOption `json:"Options"`
}

type trackingCategoriesResponse struct {
	TrackingCategories []wireTrackingCategory `json:"TrackingCategories"`
}

type wireLineTracking struct {
	Name   string `json:"Name"`
	Option string `json:"Option"`
}

type wireLineItem struct {
	Description string             `json:"Description"`
	Quantity    decimal.Decimal    `json:"Quantity"`
	UnitAmount  decimal.Decimal    `json:"UnitAmount"`
	TaxAmount   *decimal.Decimal   `json:"TaxAmount,omitempty"`
	AccountCode string             `json:"AccountCode,omitempty"`
	TaxType     string             `json:"TaxType,omitempty"`
	Tracking    []wireLineTracking `json:"Tracking,omitempty"`
}

func toWireLines(lines []domain.DocumentLine) []wireLineItem {
	out := make([]wireLineItem, 0, len(lines))
	for _, l := range lines {
		item := wireLineItem{
			Description: l.Description,
			Quantity:    decimal.NewFromInt(1),
			UnitAmount:  l.Amount,
			TaxAmount:   l.TaxAmount,
			AccountCode: l.AccountCode,
			TaxType:     l.TaxType,
		}
		for _, t := range l.TrackingOptions {
			item.Tracking = append(item.Tracking, wireLineTracking{Name: t.CategoryName, Option: t.Option})
		}
		out = append(out, item)
	}
	return out
}

type wireInvoice struct {
	InvoiceID       string          `json:"InvoiceID,omitempty"`
	Type            string          `json:"Type,omitempty"`
	InvoiceNumber   string          `json:"InvoiceNumber,omitempty"`
	Contact         *wireContact    `json:"Contact,omitempty"`
	Date            *apiDate        `json:"Date,omitempty"`
	DueDate         *apiDate        `json:"DueDate,omitempty"`
	Reference       string          `json:"Reference,omitempty"`
	CurrencyCode    string          `json:"CurrencyCode,omitempty"`
	Status          string          `json:"Status,omitempty"`
	LineAmountTypes string          `json:"LineAmountTypes,omitempty"`
	LineItems       []wireLineItem  `json:"LineItems,omitempty"`
	URL             string          `json:"Url,omitempty"`
	AmountDue       decimal.Decimal `json:"AmountDue"`
	AmountPaid      decimal.Decimal `json:"AmountPaid"`
}

type invoicesResponse struct {
	Invoices []wireInvoice `json:"Invoices"`
}

func (w wireInvoice) toDomain() *domain.Invoice {
	return &domain.Invoice{
		ID:         w.InvoiceID,
		Number:     w.InvoiceNumber,
		Status:     domain.InvoiceStatus(w.Status),
		AmountDue:  w.AmountDue,
		AmountPaid: w.AmountPaid,
		Currency:   w.CurrencyCode,
	}
}

type wireCreditNote struct {
	CreditNoteID     string         `json:"CreditNoteID,omitempty"`
	Type             string         `json:"Type,omitempty"`
	CreditNoteNumber string         `json:"CreditNoteNumber,omitempty"`
	Contact          *wireContact   `json:"Contact,omitempty"`
	Date             *apiDate       `json:"Date,omitempty"`
	CurrencyCode     string         `json:"CurrencyCode,omitempty"`
	Status           string         `json:"Status,omitempty"`
	LineAmountTypes  string         `json:"LineAmountTypes,omitempty"`
	LineItems        []wireLineItem `json:"LineItems,omitempty"`
}

type creditNotesResponse struct {
	CreditNotes []wireCreditNote `json:"CreditNotes"`
}

type wireBankAccountRef struct {
	AccountID string `json:"AccountID"`
}

type wireBankTransaction struct {
	BankTransactionID string              `json:"BankTransactionID,omitempty"`
	Type              string              `json:"Type,omitempty"`
	Contact           *wireContact        `json:"Contact,omitempty"`
	BankAccount       *wireBankAccountRef `json:"BankAccount,omitempty"`
	Date              *apiDate            `json:"Date,omitempty"`
	Reference         string              `json:"Reference,omitempty"`
	CurrencyCode      string              `json:"CurrencyCode,omitempty"`
	Status            string              `json:"Status,omitempty"`
	IsReconciled      bool                `json:"IsReconciled"`
	LineAmountTypes   string              `json:"LineAmountTypes,omitempty"`
	LineItems         []wireLineItem      `json:"LineItems,omitempty"`
	URL               string              `json:"Url,omitempty"`
}

type bankTransactionsResponse struct {
	BankTransactions []wireBankTransaction `json:"BankTransactions"`
}

func (w wireBankTransaction) toDomain() *domain.BankTransaction {
	status := domain.BankTransactionStatus(w.Status)
	if w.IsReconciled {
		status = domain.BankTransactionReconciled
	}
	return &domain.BankTransaction{ID: w.BankTransactionID, Status: status}
}

type wirePayment struct {
	Invoice      *wireInvoiceRef  `json:"Invoice,omitempty"`
	CreditNote   *wireNoteRef     `json:"CreditNote,omitempty"`
	Account      *wireAccountRef  `json:"Account"`
	Date         apiDate          `json:"Date"`
	Amount       decimal.Decimal  `json:"Amount"`
	CurrencyRate *decimal.Decimal `json:"CurrencyRate,omitempty"`
}

type wireInvoiceRef struct {
	InvoiceID string `json:"InvoiceID"`
}

type wireNoteRef struct {
	CreditNoteID string `json:"CreditNoteID"`
}

type wireAccountRef struct {
	AccountID string `json:"AccountID"`
}

type paymentsRequest struct {
	Payments []wirePayment `json:"Payments"`
}

type wireAttachment struct {
	AttachmentID string `json:"AttachmentID"`
	FileName     string `json:"FileName"`
}

type attachmentsResponse struct {
	Attachments []wireAttachment `json:"Attachments"`
}

type wireCurrency struct {
	Code string `json:"Code"`
}

type currenciesResponse struct {
	Currencies []wireCurrency `json:"Currencies"`
}

type wireFeedConnection struct {
	ID            string `json:"id,omitempty"`
	AccountToken  string `json:"accountToken,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	AccountName   string `json:"accountName,omitempty"`
	AccountType   string `json:"accountType,omitempty"`
	Currency      string `json:"currency,omitempty"`
	Status        string `json:"status,omitempty"`
}

type feedConnectionsResponse struct {
	Items []wireFeedConnection `json:"items"`
}

func (w wireFeedConnection) toDomain() *domain.FeedConnection {
	status := domain.FeedConnectionConnected
	if strings.EqualFold(w.Status, "PENDING") {
		status = domain.FeedConnectionPending
	}
	return &domain.FeedConnection{
		ID:           w.ID,
		AccountToken: w.AccountToken,
		Currency:     w.Currency,
		Status:       status,
	}
}

type wireStatementAmount struct {
	Amount               decimal.Decimal `json:"amount"`
	CreditDebitIndicator string          `json:"creditDebitIndicator"`
}

type wireStatementLine struct {
	PostedDate           string          `json:"postedDate"`
	Description          string          `json:"description"`
	Amount               decimal.Decimal `json:"amount"`
	CreditDebitIndicator string          `json:"creditDebitIndicator"`
	TransactionID        string          `json:"transactionId"`
	PayeeName            string          `json:"payeeName,omitempty"`
}

type wireStatement struct {
	FeedConnectionID string              `json:"feedConnectionId"`
	StartDate        string              `json:"startDate"`
	EndDate          string              `json:"endDate"`
	StartBalance     wireStatementAmount `json:"startBalance"`
	EndBalance       wireStatementAmount `json:"endBalance"`
	StatementLines   []wireStatementLine `json:"statementLines"`
}

type statementsRequest struct {
	Items []wireStatement `json:"items"`
}

type wireStatementError struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type wireStatementResult struct {
	ID     string               `json:"id"`
	Status string               `json:"status"`
	Errors []wireStatementError `json:"errors"`
}

type statementsResponse struct {
	Items []wireStatementResult `json:"items"`
}
