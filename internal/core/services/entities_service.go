package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	portsclients "github.com/flockpay/xero_adapter_app/internal/core/ports/clients"
	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
	"github.com/flockpay/xero_adapter_app/internal/middleware"
)

const (
	taxTypeNone = "NONE"

	// maxAttachments is the sink's hard cap on files per document.
	maxAttachments = 10

	invoicesEndpoint         = "Invoices"
	creditNotesEndpoint      = "CreditNotes"
	bankTransactionsEndpoint = "BankTransactions"
)

var (
	ErrTooManyAttachments = errors.New("document exceeds the maximum number of attachments")

	// The sink only reports account-code problems as free text; these two
	// patterns are the closed set of recoverable coding failures.
	archivedAccountCodeRe = regexp.MustCompile(`(?i)account code '[^']*' has been archived`)
	invalidAccountCodeRe  = regexp.MustCompile(`(?i)account code '[^']*' is not a valid code|invalid account code`)
)

// entitiesService orchestrates sink client calls into idempotent upsert
// operations with the retry-once default-account fallback.
type entitiesService struct {
	xero portsclients.SinkClient
}

// NewEntitiesService creates the ledger entities manager.
func NewEntitiesService(xero portsclients.SinkClient) portssvc.EntitiesSvcFacade {
	return &entitiesService{xero: xero}
}

var _ portssvc.EntitiesSvcFacade = (*entitiesService)(nil)

func (s *entitiesService) GetOrganisation(ctx context.Context) (*domain.Organisation, error) {
	return s.xero.GetOrganisation(ctx)
}

// GetContactID finds the sink contact by name and VAT, creating it if absent.
func (s *entitiesService) GetContactID(ctx context.Context, name, vat string) (string, error) {
	contact, err := s.xero.FindContact(ctx, name, vat)
	if err != nil {
		return "", fmt.Errorf("failed to find contact %q: %w", name, err)
	}
	if contact != nil {
		return contact.ID, nil
	}

	contact, err = s.xero.CreateContact(ctx, name, vat)
	if err != nil {
		return "", fmt.Errorf("failed to create contact %q: %w", name, err)
	}
	return contact.ID, nil
}

// CreateOrUpdateBill upserts a bill by its idempotency URL.
func (s *entitiesService) CreateOrUpdateBill(ctx context.Context, bill *domain.NewBill) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	existing, err := s.xero.GetInvoiceByURL(ctx, bill.URL)
	if err != nil {
		return "", fmt.Errorf("failed to look up bill by URL: %w", err)
	}

	var invoiceID string
	if existing == nil {
		err = s.withDefaultAccountFallback(ctx, billLines(bill), func(ctx context.Context) error {
			var createErr error
			invoiceID, createErr = s.xero.CreateInvoice(ctx, bill)
			return createErr
		})
		if err != nil {
			return "", err
		}
		logger.Info("Bill created", slog.String("invoice_id", invoiceID))
	} else {
		if existing.Status == domain.InvoicePaid {
			return "", apperrors.NewNotAllowedError("bill is already paid and cannot be modified")
		}
		invoiceID = existing.ID
		err = s.withDefaultAccountFallback(ctx, billLines(bill), func(ctx context.Context) error {
			return s.xero.UpdateInvoice(ctx, invoiceID, bill)
		})
		if err != nil {
			return "", err
		}
		logger.Info("Bill updated", slog.String("invoice_id", invoiceID))
	}

	if err := s.uploadMissingAttachments(ctx, invoicesEndpoint, invoiceID, bill.Files); err != nil {
		return "", err
	}

	// A paid expense also books the payment, once the bill carries a value.
	if bill.Payment != nil && bill.TotalAmount.IsPositive() {
		if err := s.xero.CreatePayment(ctx, invoiceID, bill.Payment); err != nil {
			return "", fmt.Errorf("failed to create payment for bill %s: %w", invoiceID, err)
		}
	}

	return invoiceID, nil
}

// CreateOrUpdateAccountTransaction upserts an account transaction by URL. A
// transaction the user already reconciled is returned without modification.
func (s *entitiesService) CreateOrUpdateAccountTransaction(ctx context.Context, txn *domain.NewAccountTransaction) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	existing, err := s.xero.GetBankTransactionByURL(ctx, txn.URL)
	if err != nil {
		return "", fmt.Errorf("failed to look up account transaction by URL: %w", err)
	}

	var transactionID string
	if existing == nil {
		err = s.withDefaultAccountFallback(ctx, txnLines(txn), func(ctx context.Context) error {
			var createErr error
			transactionID, createErr = s.xero.CreateBankTransaction(ctx, txn)
			return createErr
		})
		if err != nil {
			return "", err
		}
		logger.Info("Account transaction created", slog.String("transaction_id", transactionID))
	} else {
		if existing.Status == domain.BankTransactionReconciled {
			logger.Info("Account transaction already reconciled, skipping update", slog.String("transaction_id", existing.ID))
			return existing.ID, nil
		}
		transactionID = existing.ID
		err = s.withDefaultAccountFallback(ctx, txnLines(txn), func(ctx context.Context) error {
			return s.xero.UpdateBankTransaction(ctx, transactionID, txn)
		})
		if err != nil {
			return "", err
		}
		logger.Info("Account transaction updated", slog.String("transaction_id", transactionID))
	}

	if err := s.uploadMissingAttachments(ctx, bankTransactionsEndpoint, transactionID, txn.Files); err != nil {
		return "", err
	}
	return transactionID, nil
}

// CreateOrUpdateCreditNote creates a credit note by number. Credit notes are
// create-once; an existing note only receives the attachments it is missing.
func (s *entitiesService) CreateOrUpdateCreditNote(ctx context.Context, note *domain.NewCreditNote) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	existing, err := s.xero.GetCreditNoteByNumber(ctx, note.Number)
	if err != nil {
		return "", fmt.Errorf("failed to look up credit note %q: %w", note.Number, err)
	}

	var creditNoteID string
	created := false
	if existing == nil {
		err = s.withDefaultAccountFallback(ctx, noteLines(note), func(ctx context.Context) error {
			var createErr error
			creditNoteID, createErr = s.xero.CreateCreditNote(ctx, note)
			return createErr
		})
		if err != nil {
			return "", err
		}
		created = true
		logger.Info("Credit note created", slog.String("credit_note_id", creditNoteID))
	} else {
		creditNoteID = existing.ID
	}

	if err := s.uploadMissingAttachments(ctx, creditNotesEndpoint, creditNoteID, note.Files); err != nil {
		return "", err
	}

	if created {
		for i := range note.Payments {
			if err := s.xero.CreatePayment(ctx, creditNoteID, &note.Payments[i]); err != nil {
				return "", fmt.Errorf("failed to create payment for credit note %s: %w", creditNoteID, err)
			}
		}
	}
	return creditNoteID, nil
}

// DeleteBill voids the still-mutable bill stored under the URL.
func (s *entitiesService) DeleteBill(ctx context.Context, url string) error {
	existing, err := s.xero.GetInvoiceByURL(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to look up bill by URL: %w", err)
	}
	if existing == nil {
		return nil
	}
	if existing.Status == domain.InvoicePaid {
		return apperrors.NewNotAllowedError("bill is already paid and cannot be deleted")
	}
	return s.xero.DeleteInvoice(ctx, existing.ID)
}

// DeleteAccountTransaction deletes the transaction stored under the URL.
func (s *entitiesService) DeleteAccountTransaction(ctx context.Context, url string) error {
	existing, err := s.xero.GetBankTransactionByURL(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to look up account transaction by URL: %w", err)
	}
	if existing == nil {
		return nil
	}
	if existing.Status == domain.BankTransactionReconciled {
		return apperrors.NewNotAllowedError("account transaction is already reconciled and cannot be deleted")
	}
	return s.xero.DeleteBankTransaction(ctx, existing.ID)
}

// EnsureDefaultExpenseAccounts idempotently creates the two fallback expense
// accounts. Other flows force account codes to these on coding failures, so
// an archived default is a hard error rather than something to work around.
func (s *entitiesService) EnsureDefaultExpenseAccounts(ctx context.Context) error {
	accounts, err := s.xero.GetExpenseAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list expense accounts: %w", err)
	}

	byCode := make(map[string]domain.ExpenseAccount, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = a
	}

	defaults := []domain.ExpenseAccount{
		{Name: domain.DefaultAccountName, Code: domain.DefaultAccountCode},
		{Name: domain.FeesAccountName, Code: domain.FeesAccountCode, TaxType: taxTypeNone},
	}
	for _, def := range defaults {
		existing, ok := byCode[def.Code]
		if !ok {
			if _, err := s.xero.CreateExpenseAccount(ctx, def); err != nil {
				return fmt.Errorf("failed to create expense account %q: %w", def.Code, err)
			}
			continue
		}
		if existing.Status != domain.AccountActive {
			return fmt.Errorf("default expense account '%s' exists but is not active", def.Code)
		}
	}
	return nil
}

// withDefaultAccountFallback runs the remote write and, when it fails with a
// recoverable account-code error, ensures the default accounts exist, forces
// every line to the default account code and retries exactly once. Any other
// error, and any error on the retried attempt, propagates unchanged.
func (s *entitiesService) withDefaultAccountFallback(ctx context.Context, lines []domain.DocumentLine, write func(ctx context.Context) error) error {
	return attemptWithRepair(ctx, write, func(ctx context.Context, err error) (bool, error) {
		if !isRecoverableAccountCodeError(err) {
			return false, nil
		}

		middleware.GetLoggerFromCtx(ctx).Warn("Account code rejected by the sink, falling back to the default account", slog.String("error", err.Error()))
		if ensureErr := s.EnsureDefaultExpenseAccounts(ctx); ensureErr != nil {
			return false, ensureErr
		}
		for i := range lines {
			lines[i].AccountCode = domain.DefaultAccountCode
		}
		return true, nil
	})
}

// isRecoverableAccountCodeError matches the two remote validation messages
// the default-account fallback repairs.
func isRecoverableAccountCodeError(err error) bool {
	var httpErr *apperrors.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return archivedAccountCodeRe.MatchString(httpErr.Body) || invalidAccountCodeRe.MatchString(httpErr.Body)
}

// uploadMissingAttachments diffs the requested filenames against the files
// already uploaded and uploads only the delta, preserving the requested
// order. Uploads stay sequential: the sink displays attachments in upload
// order and the authenticated client admits one request at a time anyway.
func (s *entitiesService) uploadMissingAttachments(ctx context.Context, endpoint, documentID string, files []domain.ExpenseFile) error {
	if len(files) == 0 {
		return nil
	}

	uploaded, err := s.xero.GetAttachments(ctx, endpoint, documentID)
	if err != nil {
		return fmt.Errorf("failed to list attachments for %s/%s: %w", endpoint, documentID, err)
	}

	existing := make(map[string]struct{}, len(uploaded))
	for _, a := range uploaded {
		existing[a.FileName] = struct{}{}
	}

	var missing []domain.ExpenseFile
	for _, f := range files {
		if _, ok := existing[f.FileName]; !ok {
			missing = append(missing, f)
		}
	}

	if len(uploaded)+len(missing) > maxAttachments {
		return fmt.Errorf("%w: %d uploaded, %d requested, cap %d", ErrTooManyAttachments, len(uploaded), len(missing), maxAttachments)
	}

	for _, f := range missing {
		if err := s.xero.UploadAttachment(ctx, endpoint, documentID, f); err != nil {
			return fmt.Errorf("failed to upload attachment %q: %w", f.FileName, err)
		}
	}
	return nil
}

func billLines(bill *domain.NewBill) []domain.DocumentLine { return bill.Lines }

func txnLines(txn *domain.NewAccountTransaction) []domain.DocumentLine { return txn.Lines }

func noteLines(note *domain.NewCreditNote) []domain.DocumentLine { return note.Lines }
