package services

import (
	"context"
	"time"
)

// ExpenseExporterSvc covers document export for expenses.
type ExpenseExporterSvc interface {
	// ExportExpense projects one expense into a sink document (bill, credit
	// note or account transactions). Locked or not-ready expenses are a no-op.
	ExportExpense(ctx context.Context, expenseID string) error

	// DeleteExpense removes the still-mutable sink document for the expense.
	DeleteExpense(ctx context.Context, expenseID string) error
}

// StatementExporterSvc covers bank-feed statement export.
type StatementExporterSvc interface {
	// ExportBankStatementForExpense mirrors the expense's settled movements
	// into the sink's bank feed, one statement line per movement.
	ExportBankStatementForExpense(ctx context.Context, expenseID string) error

	// ExportBankStatementForTransfer mirrors one balance transfer.
	ExportBankStatementForTransfer(ctx context.Context, balanceID, transferID string) error

	// ExportTransfers exports a statement for every transfer in the window,
	// collecting per-transfer failures into one error.
	ExportTransfers(ctx context.Context, startDate, endDate time.Time) error
}

// ExporterSvcFacade combines the export engine operations.
type ExporterSvcFacade interface {
	ExpenseExporterSvc
	StatementExporterSvc

	// DisconnectBankFeed closes every stored feed connection. A remotely
	// disconnected or demo organisation is a no-op.
	DisconnectBankFeed(ctx context.Context) error
}
