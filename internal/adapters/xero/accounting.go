package xero

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
)

func (c *Client) GetOrganisation(ctx context.Context) (*domain.Organisation, error) {
	var out organisationsResponse
	if err := c.do(ctx, "GET", c.accountingURL("/Organisation", nil), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Organisations) == 0 {
		return nil, fmt.Errorf("%w: organisation", apperrors.ErrNotFound)
	}
	return out.Organisations[0].toDomain(), nil
}

func (c *Client) FindContact(ctx context.Context, name, vat string) (*domain.Contact, error) {
	where := fmt.Sprintf(`Name=="%s"`, escapeWhereString(name))
	if vat != "" {
		where = fmt.Sprintf(`TaxNumber=="%s"`, escapeWhereString(vat))
	}
	query := url.Values{"where": {where}}

	var out contactsResponse
	if err := c.do(ctx, "GET", c.accountingURL("/Contacts", query), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Contacts) == 0 {
		return nil, nil
	}
	w := out.Contacts[0]
	return &domain.Contact{ID: w.ContactID, Name: w.Name}, nil
}

func (c *Client) CreateContact(ctx context.Context, name, vat string) (*domain.Contact, error) {
	payload := map[string][]wireContact{
		"Contacts": {{Name: name, TaxNumber: vat}},
	}
	var out contactsResponse
	if err := c.do(ctx, "POST", c.accountingURL("/Contacts", nil), payload, &out); err != nil {
		return nil, err
	}
	if len(out.Contacts) == 0 {
		return nil, fmt.Errorf("contact creation returned no contact")
	}
	w := out.Contacts[0]
	return &domain.Contact{ID: w.ContactID, Name: w.Name}, nil
}

func (c *Client) GetBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	query := url.Values{"where": {`Type=="BANK"`}}
	var out accountsResponse
	if err := c.do(ctx, "GET", c.accountingURL("/Accounts", query), nil, &out); err != nil {
		return nil, err
	}
	accounts := make([]domain.BankAccount, 0, len(out.Accounts))
	for _, w := range out.Accounts {
		accounts = append(accounts, w.toBankAccount())
	}
	return accounts, nil
}

func (c *Client) GetBankAccountByCode(ctx context.Context, code string) (*domain.BankAccount, error) {
	query := url.Values{"where": {fmt.Sprintf(`Type=="BANK" AND Code=="%s"`, escapeWhereString(code))}}
	var out accountsResponse
	if err := c.do(ctx, "GET", c.accountingURL("/Accounts", query), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Accounts) == 0 {
		return nil, fmt.Errorf("%w: bank account %q", apperrors.ErrNotFound, code)
	}
	account := out.Accounts[0].toBankAccount()
	return &account, nil
}

func (c *Client) CreateBankAccount(ctx context.Context, name, code, currency string) (*domain.BankAccount, error) {
	payload := wireAccount{
		Name:         name,
		Code:         code,
		Type:         "BANK",
		CurrencyCode: currency,
	}
	var out accountsResponse
	if err := c.do(ctx, "PUT", c.accountingURL("/Accounts", nil), payload, &out); err != nil {
		return nil, err
	}
	if len(out.Accounts) == 0 {
		return nil, fmt.Errorf("bank account creation returned no account")
	}
	account := out.Accounts[0].toBankAccount()
	return &account, nil
}

func (c *Client) ActivateBankAccount(ctx context.Context, bankAccountID string) error {
	payload := map[string]string{"Status": "ACTIVE"}
	return c.do(ctx, "POST", c.accountingURL("/Accounts/"+bankAccountID, nil), payload, nil)
}

// EnsureCurrency registers the currency with the organisation. The currencies
// endpoint rejects duplicates, so an already-registered currency is success.
func (c *Client) EnsureCurrency(ctx context.Context, currencyCode string) error {
	var out currenciesResponse
	if err := c.do(ctx, "GET", c.accountingURL("/Currencies", nil), nil, &out); err != nil {
		return err
	}
	for _, cur := range out.Currencies {
		if cur.Code == currencyCode {
			return nil
		}
	}
	payload := wireCurrency{Code: currencyCode}
	return c.do(ctx, "PUT", c.accountingURL("/Currencies", nil), payload, nil)
}

func (c *Client) GetInvoiceByURL(ctx context.Context, idempotencyURL string) (*domain.Invoice, error) {
	query := url.Values{"where": {fmt.Sprintf(`Type=="ACCPAY" AND Url=="%s"`, escapeWhereString(idempotencyURL))}}
	var out invoicesResponse
	if err := c.do(ctx, "GET", c.accountingURL("/Invoices", query), nil, &out); err != nil {
		return nil, err
	}
	for _, w := range out.Invoices {
		if w.Status != string(domain.InvoiceVoided) {
			return w.toDomain(), nil
		}
	}
	return nil, nil
}

func (c *Client) GetCreditNoteByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	query := url.Values{"where": {fmt.Sprintf(`CreditNoteNumber=="%s"`, escapeWhereString(number))}}
	var out creditNotesResponse
	if err := c.do(ctx, "GET", c.accountingURL("/CreditNotes", query), nil, &out); err != nil {
		return nil, err
	}
	for _, w := range out.CreditNotes {
		if w.Status != string(domain.InvoiceVoided) {
			return &domain.Invoice{
				ID:       w.CreditNoteID,
				Number:   w.CreditNoteNumber,
				Status:   domain.InvoiceStatus(w.Status),
				Currency: w.CurrencyCode,
			}, nil
		}
	}
	return nil, nil
}

func (c *Client) CreateInvoice(ctx context.Context, bill *domain.NewBill) (string, error) {
	payload := c.billPayload(bill)
	var out invoicesResponse
	if err := c.do(ctx, "PUT", c.accountingURL("/Invoices", nil), payload, &out); err != nil {
		return "", err
	}
	if len(out.Invoices) == 0 {
		return "", fmt.Errorf("invoice creation returned no invoice")
	}
	return out.Invoices[0].InvoiceID, nil
}

func (c *Client) UpdateInvoice(ctx context.Context, invoiceID string, bill *domain.NewBill) error {
	payload := c.billPayload(bill)
	return c.do(ctx, "POST", c.accountingURL("/Invoices/"+invoiceID, nil), payload, nil)
}

func (c *Client) DeleteInvoice(ctx context.Context, invoiceID string) error {
	payload := map[string]string{"Status": string(domain.InvoiceVoided)}
	return c.do(ctx, "POST", c.accountingURL("/Invoices/"+invoiceID, nil), payload, nil)
}

func (c *Client) billPayload(bill *domain.NewBill) wireInvoice {
	date := newAPIDate(bill.Date)
	due := newAPIDate(bill.DueDate)
	return wireInvoice{
		Type:            "ACCPAY",
		Contact:         &wireContact{ContactID: bill.ContactID},
		Date:            &date,
		DueDate:         &due,
		Reference:       bill.Reference,
		CurrencyCode:    bill.Currency,
		Status:          string(domain.InvoiceAuthorised),
		LineAmountTypes: "Inclusive",
		LineItems:       toWireLines(bill.Lines),
		URL:             bill.URL,
	}
}

func (c *Client) CreateCreditNote(ctx context.Context, note *domain.NewCreditNote) (string, error) {
	date := newAPIDate(note.Date)
	payload := wireCreditNote{
		Type:             "ACCPAYCREDIT",
		CreditNoteNumber: note.Number,
		Contact:          &wireContact{ContactID: note.ContactID},
		Date:             &date,
		CurrencyCode:     note.Currency,
		Status:           string(domain.InvoiceAuthorised),
		LineAmountTypes:  "Inclusive",
		LineItems:        toWireLines(note.Lines),
	}
	var out creditNotesResponse
	if err := c.do(ctx, "PUT", c.accountingURL("/CreditNotes", nil), payload, &out); err != nil {
		return "", err
	}
	if len(out.CreditNotes) == 0 {
		return "", fmt.Errorf("credit note creation returned no credit note")
	}
	return out.CreditNotes[0].CreditNoteID, nil
}

func (c *Client) CreateBankTransaction(ctx context.Context, txn *domain.NewAccountTransaction) (string, error) {
	payload := c.bankTransactionPayload(txn)
	var out bankTransactionsResponse
	if err := c.do(ctx, "PUT", c.accountingURL("/BankTransactions", nil), payload, &out); err != nil {
		return "", err
	}
	if len(out.BankTransactions) == 0 {
		return "", fmt.Errorf("bank transaction creation returned no transaction")
	}
	return out.BankTransactions[0].BankTransactionID, nil
}

func (c *Client) UpdateBankTransaction(ctx context.Context, transactionID string, txn *domain.NewAccountTransaction) error {
	payload := c.bankTransactionPayload(txn)
	return c.do(ctx, "POST", c.accountingURL("/BankTransactions/"+transactionID, nil), payload, nil)
}

func (c *Client) DeleteBankTransaction(ctx context.Context, transactionID string) error {
	payload := map[string]string{"Status": string(domain.BankTransactionDeleted)}
	return c.do(ctx, "POST", c.accountingURL("/BankTransactions/"+transactionID, nil), payload, nil)
}

func (c *Client) GetBankTransactionByURL(ctx context.Context, idempotencyURL string) (*domain.BankTransaction, error) {
	query := url.Values{"where": {fmt.Sprintf(`Url=="%s"`, escapeWhereString(idempotencyURL))}}
	var out bankTransactionsResponse
	if err := c.do(ctx, "GET", c.accountingURL("/BankTransactions", query), nil, &out); err != nil {
		return nil, err
	}
	for _, w := range out.BankTransactions {
		if w.Status != string(domain.BankTransactionDeleted) {
			return w.toDomain(), nil
		}
	}
	return nil, nil
}

// bankTransactionPayload maps the transaction onto the wire. A negative total
// is a refund and becomes a receive-money with positive line amounts. Card
// fees travel as extra lines coded to the dedicated fees account.
func (c *Client) bankTransactionPayload(txn *domain.NewAccountTransaction) wireBankTransaction {
	txnType := "SPEND"
	sign := decimal.NewFromInt(1)
	if txn.TotalAmount.IsNegative() {
		txnType = "RECEIVE"
		sign = decimal.NewFromInt(-1)
	}

	lines := make([]domain.DocumentLine, 0, len(txn.Lines)+3)
	for _, l := range txn.Lines {
		l.Amount = l.Amount.Mul(sign)
		if l.TaxAmount != nil {
			tax := l.TaxAmount.Mul(sign)
			l.TaxAmount = &tax
		}
		lines = append(lines, l)
	}
	for _, fee := range []struct {
		name   string
		amount decimal.Decimal
	}{
		{"FX fees", txn.FxFees},
		{"POS fees", txn.PosFees},
		{"Bank fees", txn.BankFees},
	} {
		if fee.amount.IsZero() {
			continue
		}
		lines = append(lines, domain.DocumentLine{
			Description: fee.name,
			Amount:      fee.amount.Mul(sign),
			AccountCode: domain.FeesAccountCode,
			TaxType:     "NONE",
		})
	}

	date := newAPIDate(txn.Date)
	return wireBankTransaction{
		Type:            txnType,
		Contact:         &wireContact{ContactID: txn.ContactID},
		BankAccount:     &wireBankAccountRef{AccountID: txn.BankAccountID},
		Date:            &date,
		Reference:       txn.Reference,
		CurrencyCode:    txn.Currency,
		Status:          string(domain.BankTransactionAuthorised),
		LineAmountTypes: "Inclusive",
		LineItems:       toWireLines(lines),
		URL:             txn.URL,
	}
}

func (c *Client) CreatePayment(ctx context.Context, documentID string, payment *domain.BillPayment) error {
	wire := wirePayment{
		Invoice: &wireInvoiceRef{InvoiceID: documentID},
		Account: &wireAccountRef{AccountID: payment.BankAccountID},
		Date:    newAPIDate(payment.Date),
		Amount:  payment.Amount,
	}
	if !payment.FxRate.IsZero() {
		rate := payment.FxRate
		wire.CurrencyRate = &rate
	}
	payload := paymentsRequest{Payments: []wirePayment{wire}}
	return c.do(ctx, "PUT", c.accountingURL("/Payments", nil), payload, nil)
}

func (c *Client) GetAttachments(ctx context.Context, endpoint, documentID string) ([]domain.Attachment, error) {
	var out attachmentsResponse
	path := fmt.Sprintf("/%s/%s/Attachments", endpoint, documentID)
	err := c.do(ctx, "GET", c.accountingURL(path, nil), nil, &out)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	attachments := make([]domain.Attachment, 0, len(out.Attachments))
	for _, w := range out.Attachments {
		attachments = append(attachments, domain.Attachment{ID: w.AttachmentID, FileName: w.FileName})
	}
	return attachments, nil
}

func (c *Client) UploadAttachment(ctx context.Context, endpoint, documentID string, file domain.ExpenseFile) error {
	path := fmt.Sprintf("/%s/%s/Attachments/%s", endpoint, documentID, url.PathEscape(file.FileName))
	return c.upload(ctx, c.accountingURL(path, nil), file.Path)
}

func (c *Client) GetExpenseAccounts(ctx context.Context) ([]domain.ExpenseAccount, error) {
	query := url.Values{"where": {`Class=="EXPENSE"`}}
	var out accountsResponse
	if err := c.do(ctx, "GET", c.accountingURL("/Accounts", query), nil, &out); err != nil {
		return nil, err
	}
	accounts := make([]domain.ExpenseAccount, 0, len(out.Accounts))
	for _, w := range out.Accounts {
		accounts = append(accounts, w.toExpenseAccount())
	}
	return accounts, nil
}

func (c *Client) CreateExpenseAccount(ctx context.Context, account domain.ExpenseAccount) (*domain.ExpenseAccount, error) {
	payload := wireAccount{
		Name:        account.Name,
		Code:        account.Code,
		Type:        "EXPENSE",
		TaxType:     account.TaxType,
		Description: account.Description,
	}
	var out accountsResponse
	if err := c.do(ctx, "PUT", c.accountingURL("/Accounts", nil), payload, &out); err != nil {
		return nil, err
	}
	if len(out.Accounts) == 0 {
		return nil, fmt.Errorf("expense account creation returned no account")
	}
	created := out.Accounts[0].toExpenseAccount()
	return &created, nil
}

func (c *Client) GetTaxRates(ctx context.Context) ([]domain.TaxRate, error) {
	var out taxRatesResponse
	if err := c.do(ctx, "GET", c.accountingURL("/TaxRates", nil), nil, &out); err != nil {
		return nil, err
	}
	rates := make([]domain.TaxRate, 0, len(out.TaxRates))
	for _, w := range out.TaxRates {
		rates = append(rates, domain.TaxRate{
			Name:          w.Name,
			TaxType:       w.TaxType,
			EffectiveRate: w.EffectiveRate,
			Status:        domain.AccountStatus(w.Status),
		})
	}
	return rates, nil
}

func (c *Client) GetTrackingCategories(ctx context.Context) ([]domain.TrackingCategory, error) {
	var out trackingCategoriesResponse
	if err := c.do(ctx, "GET", c.accountingURL("/TrackingCategories", nil), nil, &out); err != nil {
		return nil, err
	}
	categories := make([]domain.TrackingCategory, 0, len(out.TrackingCategories))
	for _, w := range out.TrackingCategories {
		category := domain.TrackingCategory{
			ID:     w.TrackingCategoryID,
			Name:   w.Name,
			Status: domain.AccountStatus(w.Status),
		}
		for _, o := range w.Options {
			if o.Status == "" || o.Status == "ACTIVE" {
				category.Options = append(category.Options, o.Name)
			}
		}
		categories = append(categories, category)
	}
	return categories, nil
}

// escapeWhereString escapes a value embedded into a where filter literal.
func escapeWhereString(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
