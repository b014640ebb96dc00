package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	portsclients "github.com/flockpay/xero_adapter_app/internal/core/ports/clients"
	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
	"github.com/flockpay/xero_adapter_app/internal/core/services/reconciliation"
	"github.com/flockpay/xero_adapter_app/internal/middleware"
	"github.com/shopspring/decimal"
)

// deepLinkParamCutover gates the legacy query-parameter name on document deep
// links. Documents for expenses created before the cutover keep the old
// `account` parameter so links embedded years ago stay valid.
var deepLinkParamCutover = time.Date(2020, time.January, 29, 0, 0, 0, 0, time.UTC)

const transferContactName = "New Deposit"

// exportService is the export engine: it consumes one normalized event,
// decides the document shape, computes the FX reconciliation through the pure
// builders and delegates persistence to the entities and bank feed managers.
type exportService struct {
	accountID     string
	portalBaseURL string
	source        portsclients.SourceClient
	entities      portssvc.EntitiesSvcFacade
	bankFeed      portssvc.BankFeedSvcFacade
	sync          portssvc.SyncSvcFacade
}

// NewExportService creates the export engine for one account.
func NewExportService(
	accountID string,
	portalBaseURL string,
	source portsclients.SourceClient,
	entities portssvc.EntitiesSvcFacade,
	bankFeed portssvc.BankFeedSvcFacade,
	syncSvc portssvc.SyncSvcFacade,
) portssvc.ExporterSvcFacade {
	return &exportService{
		accountID:     accountID,
		portalBaseURL: portalBaseURL,
		source:        source,
		entities:      entities,
		bankFeed:      bankFeed,
		sync:          syncSvc,
	}
}

var _ portssvc.ExporterSvcFacade = (*exportService)(nil)

// ExportExpense projects one expense into a sink document. Locked and
// not-ready expenses are acknowledged without exporting anything.
func (s *exportService) ExportExpense(ctx context.Context, expenseID string) error {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("expense_id", expenseID))

	expense, err := s.source.GetExpense(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("failed to fetch expense %s: %w", expenseID, err)
	}
	if expense.IsLocked {
		logger.Info("Expense is locked, skipping export")
		return nil
	}
	if !expense.IsReadyForReconciliation {
		logger.Info("Expense is not ready for reconciliation, skipping export")
		return nil
	}

	files, err := s.source.DownloadFiles(ctx, expense)
	if err != nil {
		return classifyExportError(ctx, err, categoryExpense)
	}
	// Downloaded files are removed regardless of the export outcome.
	defer s.removeFiles(ctx, files)

	err = s.exportExpenseDocument(ctx, expense, files)
	if err != nil {
		return classifyExportError(ctx, err, categoryExpense)
	}
	return nil
}

func (s *exportService) exportExpenseDocument(ctx context.Context, expense *domain.Expense, files []domain.ExpenseFile) error {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("expense_id", expense.ID))

	organisation, err := s.entities.GetOrganisation(ctx)
	if err != nil {
		return err
	}

	exportDate := expense.Date()
	if organisation.IsDateLocked(exportDate) {
		return apperrors.NewExportError(
			"The date of the export falls within a locked period in Xero. Please move the lock date and export again.", nil)
	}

	hasTransactions := len(expense.Transactions) > 0

	var model *domain.ExpenseModel
	if hasTransactions {
		model, err = reconciliation.BuildCardModel(expense, organisation.BaseCurrency)
		if errors.Is(err, reconciliation.ErrMixedTxnCurrencies) {
			return apperrors.NewExportError(
				"All card transactions of the expense must be in the same currency to export it.", err)
		}
		if err != nil {
			return err
		}
	} else {
		model, err = reconciliation.BuildReimbursableModel(expense, organisation.BaseCurrency)
		if err != nil {
			return err
		}
	}

	if len(expense.LineItems) > 0 {
		sum := reconciliation.SumLineReconciliations(expense)
		if !sum.Equal(expense.Reconciliation.ExpenseTotalAmount) {
			return apperrors.NewExportError(fmt.Sprintf(
				"The line item amounts (%s) do not add up to the expense total amount (%s).",
				sum.String(), expense.Reconciliation.ExpenseTotalAmount.String()), nil)
		}
	}

	lines := reconciliation.BuildLines(expense, model)

	contactID, err := s.resolveContactID(ctx, expense)
	if err != nil {
		return err
	}

	var links []domain.ExternalLink
	switch {
	case hasTransactions && allAmountsNegative(expense.Transactions):
		links, err = s.exportCreditNote(ctx, expense, model, lines, files, contactID, organisation)
	case hasTransactions:
		links, err = s.exportAccountTransactions(ctx, expense, model, lines, files, contactID, organisation)
	default:
		links, err = s.exportBill(ctx, expense, model, lines, files, contactID, organisation, exportDate)
	}
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}

	if err := s.source.UpdateExpenseLinks(ctx, expense.ID, links); err != nil {
		// The document is already in the ledger; a failed link write-back
		// must not fail the export.
		logger.Warn("Failed to write external links back to the expense", slog.String("error", err.Error()))
	}
	return nil
}

// exportBill handles the no-transactions path: one bill per expense, with a
// payment booked when the expense was already paid from the balance.
func (s *exportService) exportBill(
	ctx context.Context,
	expense *domain.Expense,
	model *domain.ExpenseModel,
	lines []domain.DocumentLine,
	files []domain.ExpenseFile,
	contactID string,
	organisation *domain.Organisation,
	exportDate time.Time,
) ([]domain.ExternalLink, error) {
	bill := &domain.NewBill{
		URL:         s.idempotencyURL(expense.ID),
		ContactID:   contactID,
		Date:        exportDate,
		DueDate:     exportDate,
		Reference:   documentReference(expense),
		Currency:    model.Currency,
		TotalAmount: model.TotalAmount,
		Lines:       lines,
		Files:       files,
	}

	if expense.IsPaid && expense.PaymentType == domain.PaymentTypeBalance && len(model.Payments) > 0 {
		leg := model.Payments[0]
		bankAccount, err := s.sync.GetCurrencyBankAccount(ctx, leg.PaidCurrency)
		if err != nil {
			return nil, err
		}
		bill.Payment = &domain.BillPayment{
			Amount:        model.TotalAmount,
			FxRate:        leg.FxRate,
			Date:          leg.Date,
			BankAccountID: bankAccount.ID,
		}
	}

	invoiceID, err := s.entities.CreateOrUpdateBill(ctx, bill)
	if err != nil {
		return nil, err
	}
	return []domain.ExternalLink{{
		Title: "View in Xero",
		URL:   s.documentDeepLink(organisation.ShortCode, invoiceID, expense.CreatedAt),
	}}, nil
}

// exportCreditNote handles the all-negative-card-amounts path. The note's
// total is the absolute refunded amount minus the fees retained by the
// processor.
func (s *exportService) exportCreditNote(
	ctx context.Context,
	expense *domain.Expense,
	model *domain.ExpenseModel,
	lines []domain.DocumentLine,
	files []domain.ExpenseFile,
	contactID string,
	organisation *domain.Organisation,
) ([]domain.ExternalLink, error) {
	total := model.TotalAmount.Neg().Sub(model.TotalFees())

	noteLines := make([]domain.DocumentLine, len(lines))
	copy(noteLines, lines)
	for i := range noteLines {
		noteLines[i].Amount = noteLines[i].Amount.Neg()
		if noteLines[i].TaxAmount != nil {
			tax := noteLines[i].TaxAmount.Neg()
			noteLines[i].TaxAmount = &tax
		}
	}

	note := &domain.NewCreditNote{
		Number:      creditNoteNumber(expense),
		ContactID:   contactID,
		Date:        expense.Date(),
		Currency:    model.Currency,
		TotalAmount: total,
		Lines:       noteLines,
		Files:       files,
	}

	for _, leg := range model.Payments {
		bankAccount, err := s.sync.GetCurrencyBankAccount(ctx, leg.PaidCurrency)
		if err != nil {
			return nil, err
		}
		note.Payments = append(note.Payments, domain.BillPayment{
			Amount:        leg.OriginalAmount.Neg(),
			FxRate:        leg.FxRate,
			Date:          leg.Date,
			BankAccountID: bankAccount.ID,
		})
	}

	creditNoteID, err := s.entities.CreateOrUpdateCreditNote(ctx, note)
	if err != nil {
		return nil, err
	}
	return []domain.ExternalLink{{
		Title: "View in Xero",
		URL:   s.documentDeepLink(organisation.ShortCode, creditNoteID, expense.CreatedAt),
	}}, nil
}

// exportAccountTransactions creates one account transaction per settled card
// payment. Unsettled transactions only log: the next export after settlement
// picks them up through the same idempotency keys.
func (s *exportService) exportAccountTransactions(
	ctx context.Context,
	expense *domain.Expense,
	model *domain.ExpenseModel,
	lines []domain.DocumentLine,
	files []domain.ExpenseFile,
	contactID string,
	organisation *domain.Organisation,
) ([]domain.ExternalLink, error) {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("expense_id", expense.ID))

	if len(model.Payments) == 0 {
		logger.Info("Card transactions are not settled yet, skipping account transaction export")
		return nil, nil
	}

	var links []domain.ExternalLink
	for _, leg := range model.Payments {
		bankAccount, err := s.sync.GetCurrencyBankAccount(ctx, leg.PaidCurrency)
		if err != nil {
			return nil, err
		}

		txn := &domain.NewAccountTransaction{
			URL:           s.transactionIdempotencyURL(expense.ID, leg.ID),
			BankAccountID: bankAccount.ID,
			ContactID:     contactID,
			Date:          leg.Date,
			Reference:     documentReference(expense),
			Currency:      model.Currency,
			TotalAmount:   leg.OriginalAmount,
			FxFees:        leg.FxFees,
			PosFees:       leg.PosFees,
			BankFees:      leg.BankFees,
			Lines:         transactionLines(expense, model, lines, leg),
			Files:         files,
		}

		transactionID, err := s.entities.CreateOrUpdateAccountTransaction(ctx, txn)
		if err != nil {
			return nil, err
		}
		links = append(links, domain.ExternalLink{
			Title: "View in Xero",
			URL:   s.documentDeepLink(organisation.ShortCode, transactionID, expense.CreatedAt),
		})
	}
	return links, nil
}

// transactionLines returns the full line set for a single-payment expense.
// When several payments settle the expense, each transaction carries one
// synthesized line over its own share; the sink cannot split coded lines
// across documents.
func transactionLines(expense *domain.Expense, model *domain.ExpenseModel, lines []domain.DocumentLine, leg domain.PaymentModel) []domain.DocumentLine {
	if len(model.Payments) == 1 {
		return lines
	}

	accountCode := expense.Reconciliation.AccountCode
	if !expense.IsReadyForReconciliation {
		accountCode = ""
	}
	return []domain.DocumentLine{{
		Description: expense.Title,
		Amount:      leg.OriginalAmount,
		AccountCode: accountCode,
		TaxType:     expense.Reconciliation.TaxCode,
	}}
}

// DeleteExpense removes the still-mutable sink documents for the expense.
func (s *exportService) DeleteExpense(ctx context.Context, expenseID string) error {
	url := s.idempotencyURL(expenseID)
	if err := s.entities.DeleteBill(ctx, url); err != nil {
		return classifyExportError(ctx, err, categoryExpense)
	}
	if err := s.entities.DeleteAccountTransaction(ctx, url); err != nil {
		return classifyExportError(ctx, err, categoryExpense)
	}
	return nil
}

// ExportBankStatementForExpense mirrors the expense's settled movements into
// the sink's bank feed, one statement line per movement.
func (s *exportService) ExportBankStatementForExpense(ctx context.Context, expenseID string) error {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("expense_id", expenseID))

	expense, err := s.source.GetExpense(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("failed to fetch expense %s: %w", expenseID, err)
	}
	if expense.IsLocked {
		logger.Info("Expense is locked, skipping bank statement export")
		return nil
	}

	settledBalancePayments := expense.SettledBalancePayments()
	paidFromBalance := expense.IsPaid && expense.PaymentType == domain.PaymentTypeBalance && len(settledBalancePayments) > 0
	if len(expense.Transactions) == 0 && !paidFromBalance {
		logger.Info("Expense has no settled movements, skipping bank statement export")
		return nil
	}

	err = s.exportExpenseStatements(ctx, expense, settledBalancePayments)
	if err != nil {
		return classifyExportError(ctx, err, categoryStatement)
	}
	return nil
}

func (s *exportService) exportExpenseStatements(ctx context.Context, expense *domain.Expense, settledBalancePayments []domain.BalancePayment) error {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("expense_id", expense.ID))

	organisation, err := s.entities.GetOrganisation(ctx)
	if err != nil {
		return err
	}
	if organisation.IsDemoCompany {
		return apperrors.NewExportError("Bank feeds are not available for Xero demo organisations.", nil)
	}
	if organisation.IsDateLocked(expense.Date()) {
		return apperrors.NewExportError(
			"The date of the export falls within a locked period in Xero. Please move the lock date and export again.", nil)
	}

	currency := statementCurrency(expense)
	if currency == "" {
		return apperrors.NewExportError("The expense has no currency to export a bank statement in.", nil)
	}

	// Legacy whole-expense dedup key, kept for statements exported before
	// per-movement keys existed.
	exported, err := s.bankFeed.HasStatement(ctx, expense.ID, domain.EntityExpense)
	if err != nil {
		return err
	}
	if exported {
		logger.Info("Bank statement already exported for expense, skipping")
		return nil
	}

	bankAccount, err := s.sync.GetCurrencyBankAccount(ctx, currency)
	if err != nil {
		return err
	}

	if len(expense.Transactions) > 0 {
		for _, txn := range expense.Transactions {
			if txn.SettlementDate == nil {
				logger.Info("Card transaction not settled, skipping statement line", slog.String("transaction_id", txn.ID))
				continue
			}
			// Statement amounts are bank-account movements: a spend with its
			// fees leaves the account, so the positive card amount negates.
			movement := txn.CardAmount.Add(txn.FxFees).Add(txn.PosFees).Neg()
			err = s.bankFeed.CreateStatement(ctx, portssvc.CreateStatementParams{
				BankAccount: bankAccount,
				EntityID:    txn.ID,
				EntityType:  domain.EntityTransaction,
				Date:        *txn.SettlementDate,
				Amount:      movement,
				ContactName: expense.Supplier.Name,
				Description: statementDescription(movement, expense.Supplier.Name),
			})
			if err != nil {
				return err
			}
		}
		return nil
	}

	payment := settledBalancePayments[0]
	movement := payment.Amount.Add(payment.FxFees).Add(payment.BankFees).Neg()
	return s.bankFeed.CreateStatement(ctx, portssvc.CreateStatementParams{
		BankAccount: bankAccount,
		EntityID:    payment.ID,
		EntityType:  domain.EntityBalancePayment,
		Date:        payment.Date,
		Amount:      movement,
		ContactName: expense.Supplier.Name,
		Description: statementDescription(movement, expense.Supplier.Name),
	})
}

// ExportBankStatementForTransfer mirrors one balance transfer as a single
// statement line keyed by the (balance, transfer) pair.
func (s *exportService) ExportBankStatementForTransfer(ctx context.Context, balanceID, transferID string) error {
	transfer, err := s.source.GetTransfer(ctx, balanceID, transferID)
	if err != nil {
		return fmt.Errorf("failed to fetch transfer %s/%s: %w", balanceID, transferID, err)
	}

	err = s.exportTransferStatement(ctx, transfer)
	if err != nil {
		return classifyExportError(ctx, err, categoryStatement)
	}
	return nil
}

func (s *exportService) exportTransferStatement(ctx context.Context, transfer *domain.Transfer) error {
	organisation, err := s.entities.GetOrganisation(ctx)
	if err != nil {
		return err
	}
	if organisation.IsDemoCompany {
		return apperrors.NewExportError("Bank feeds are not available for Xero demo organisations.", nil)
	}
	if organisation.IsDateLocked(transfer.Date) {
		return apperrors.NewExportError(
			"The date of the export falls within a locked period in Xero. Please move the lock date and export again.", nil)
	}

	bankAccount, err := s.sync.GetCurrencyBankAccount(ctx, transfer.Currency)
	if err != nil {
		return err
	}

	direction := "received"
	if transfer.Amount.IsNegative() {
		direction = "sent"
	}

	return s.bankFeed.CreateStatement(ctx, portssvc.CreateStatementParams{
		BankAccount: bankAccount,
		EntityID:    fmt.Sprintf("%s-%s", transfer.BalanceID, transfer.ID),
		EntityType:  domain.EntityTransfer,
		Date:        transfer.Date,
		Amount:      transfer.Amount,
		ContactName: transferContactName,
		Description: fmt.Sprintf("Bank wire %s on %s", direction, transfer.Date.Format("2 Jan 2006")),
	})
}

// ExportTransfers exports a statement for every transfer in the window,
// collecting per-transfer failures into one error.
func (s *exportService) ExportTransfers(ctx context.Context, startDate, endDate time.Time) error {
	transfers, err := s.source.GetTransfers(ctx, startDate, endDate)
	if err != nil {
		return fmt.Errorf("failed to list transfers: %w", err)
	}

	var exportErrs []error
	for _, t := range transfers {
		if err := s.ExportBankStatementForTransfer(ctx, t.BalanceID, t.ID); err != nil {
			exportErrs = append(exportErrs, fmt.Errorf("transfer %s: %w", t.ID, err))
		}
	}
	return errors.Join(exportErrs...)
}

// DisconnectBankFeed closes every stored feed connection. A remotely
// disconnected or demo organisation is a no-op.
func (s *exportService) DisconnectBankFeed(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	organisation, err := s.entities.GetOrganisation(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) || errors.Is(err, apperrors.ErrForbidden) {
			logger.Info("Organisation already disconnected, skipping bank feed disconnect")
			return nil
		}
		return err
	}
	if organisation.IsDemoCompany {
		logger.Info("Demo organisation, skipping bank feed disconnect")
		return nil
	}

	return s.bankFeed.CloseAllConnections(ctx)
}

func (s *exportService) resolveContactID(ctx context.Context, expense *domain.Expense) (string, error) {
	if expense.RecipientContactID != "" {
		return expense.RecipientContactID, nil
	}
	return s.entities.GetContactID(ctx, expense.Supplier.Name, expense.Supplier.VAT)
}

// idempotencyURL is the durable key embedded in every document: the deep link
// back to the expense on the source platform.
func (s *exportService) idempotencyURL(expenseID string) string {
	return fmt.Sprintf("%s/expenses/%s?accountId=%s", s.portalBaseURL, expenseID, s.accountID)
}

func (s *exportService) transactionIdempotencyURL(expenseID, transactionID string) string {
	return fmt.Sprintf("%s&transactionId=%s", s.idempotencyURL(expenseID), transactionID)
}

// documentDeepLink builds the sink UI link written back to the source.
// Expenses created before the cutover keep the legacy parameter name; this
// pattern is frozen and must not spread to new link types.
func (s *exportService) documentDeepLink(shortCode, documentID string, createdAt time.Time) string {
	param := "accountId"
	if createdAt.Before(deepLinkParamCutover) {
		param = "account"
	}
	return fmt.Sprintf("https://go.xero.com/organisationlogin/default.aspx?shortcode=%s&redirecturl=/AccountsPayable/View.aspx?%s=%s", shortCode, param, documentID)
}

func (s *exportService) removeFiles(ctx context.Context, files []domain.ExpenseFile) {
	logger := middleware.GetLoggerFromCtx(ctx)
	for _, f := range files {
		if f.Path == "" {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove downloaded file", slog.String("path", f.Path), slog.String("error", err.Error()))
		}
	}
}

func allAmountsNegative(txns []domain.CardTransaction) bool {
	for _, t := range txns {
		if !t.CardAmount.IsNegative() {
			return false
		}
	}
	return len(txns) > 0
}

func statementCurrency(expense *domain.Expense) string {
	if len(expense.Transactions) > 0 {
		return expense.Transactions[0].CardCurrency
	}
	if settled := expense.SettledBalancePayments(); len(settled) > 0 {
		return settled[0].Currency
	}
	return expense.Reconciliation.ExpenseCurrency
}

/// statementDescription labels a bank-account movement: money out is a payment
// to the supplier, money in a refund from them.
func statementDescription(movement decimal.Decimal, supplierName string) string {
	if movement.IsNegative() {
		return fmt.Sprintf("Payment to %s", supplierName)
	}
	return fmt.Sprintf("Refund from %s", supplierName)
}

func documentReference(expense *domain.Expense) string {
	if expense.Document != nil && expense.Document.Number != "" {
		return expense.Document.Number
	}
	return expense.ID
}

func creditNoteNumber(expense *domain.Expense) string {
	if expense.Document != nil && expense.Document.Number != "" {
		return expense.Document.Number
	}
	return fmt.Sprintf("CN-%s", expense.ID)
}
