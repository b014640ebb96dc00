package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	"github.com/flockpay/xero_adapter_app/internal/core/domain"
	"github.com/flockpay/xero_adapter_app/internal/middleware"
)

// exportCategory selects the generic fallback message for unmatched errors.
type exportCategory string

const (
	categoryExpense   exportCategory = "expense"
	categoryStatement exportCategory = "bank statement"
)

const tryAgainMessage = "There was a temporary error in Xero. Please try the export again in a few minutes."

var genericExportMessages = map[exportCategory]string{
	categoryExpense:   "Failed to export the expense to Xero. Please contact support if the problem persists.",
	categoryStatement: "Failed to export the bank statement to Xero. Please contact support if the problem persists.",
}

// remoteErrorPattern maps one known remote validation message onto the
// user-facing message the end user can act on.
type remoteErrorPattern struct {
	match   *regexp.Regexp
	message string
}

// The order matters: the first match wins. The remote API reports these
// failures as free text only, so message matching is the fallback strategy;
// it is isolated here so a structured-code lookup can replace it without
// touching call sites.
var remoteErrorPatterns = []remoteErrorPattern{
	{
		match:   regexp.MustCompile(`(?i)account code '[^']*' has been archived`),
		message: "The expense account code is archived in Xero. Please select a different account code and export again.",
	},
	{
		match:   regexp.MustCompile(`(?i)account code '[^']*' is not a valid code|invalid account code`),
		message: "The expense account code is not valid in Xero. Please select a different account code and export again.",
	},
	{
		match:   regexp.MustCompile(`(?i)bank account .* (is|has been) archived`),
		message: "The bank account is archived in Xero. Please activate it and export again.",
	},
	{
		match:   regexp.MustCompile(`(?i)(period lock date|end of year lock date|date falls within a locked period)`),
		message: "The date of the export falls within a locked period in Xero. Please move the lock date and export again.",
	},
	{
		match:   regexp.MustCompile(`(?i)(already|has been) reconciled`),
		message: "The expense is already reconciled in Xero and can no longer be updated.",
	},
	{
		match:   regexp.MustCompile(`default expense account '` + domain.DefaultAccountCode + `' exists but is not active`),
		message: "The fallback account '" + domain.DefaultAccountName + "' (" + domain.DefaultAccountCode + ") is archived in Xero. Please restore it and export again.",
	},
	{
		match:   regexp.MustCompile(`default expense account '` + domain.FeesAccountCode + `' exists but is not active`),
		message: "The fallback account '" + domain.FeesAccountName + "' (" + domain.FeesAccountCode + ") is archived in Xero. Please restore it and export again.",
	},
	{
		match:   regexp.MustCompile(`(?i)tracking (category|option) .* (is not valid|cannot be found|has been archived)`),
		message: "A tracking category on the expense no longer matches Xero. Please re-select the custom field values and export again.",
	},
}

// classifyExportError is the single boundary turning opaque failures into the
// closed user-facing taxonomy. Already-classified errors pass unchanged,
// remote 5xx becomes a try-again export error, known validation messages map
// to their user message, and everything else falls through to the generic
// category message with the original error logged for diagnostics.
func classifyExportError(ctx context.Context, err error, category exportCategory) error {
	if err == nil {
		return nil
	}

	var exportErr *apperrors.ExportError
	if errors.As(err, &exportErr) {
		return exportErr
	}
	var notAllowed *apperrors.NotAllowedError
	if errors.As(err, &notAllowed) {
		return notAllowed
	}

	body := err.Error()
	var httpErr *apperrors.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 500 || httpErr.StatusCode == 504 {
			return apperrors.NewExportError(tryAgainMessage, err)
		}
		body = httpErr.Body
	}

	for _, pattern := range remoteErrorPatterns {
		if pattern.match.MatchString(body) {
			return apperrors.NewExportError(pattern.message, err)
		}
	}

	middleware.GetLoggerFromCtx(ctx).Error("Unrecognized export failure",
		slog.String("category", string(category)),
		slog.String("error", err.Error()),
	)
	return apperrors.NewExportError(genericExportMessages[category], err)
}
