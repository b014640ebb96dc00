package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
	"github.com/flockpay/xero_adapter_app/internal/dto"
	"github.com/flockpay/xero_adapter_app/internal/middleware"
)

const webhookDateFormat = "2006-01-02"

// webhookHandler dispatches source-platform events to the service layer.
type webhookHandler struct {
	services *portssvc.ServiceContainer
}

func newWebhookHandler(services *portssvc.ServiceContainer) *webhookHandler {
	return &webhookHandler{services: services}
}

// registerWebhookRoutes registers the event intake endpoint.
func registerWebhookRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := newWebhookHandler(services)
	rg.POST("/events", h.handleEvent)
}

func (h *webhookHandler) handleEvent(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromCtx(ctx)

	var req dto.WebhookEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind webhook event", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("event", req.Event))
	logger.Info("Webhook event received")

	err := h.dispatch(c, req)
	if err == nil {
		c.JSON(http.StatusOK, dto.WebhookAcceptedResponse{Event: req.Event})
		return
	}

	var exportErr *apperrors.ExportError
	if errors.As(err, &exportErr) {
		// The source platform shows this message on the expense and retries
		// on the user's request.
		logger.Warn("Export rejected", slog.String("reason", exportErr.Message))
		c.JSON(http.StatusBadRequest, dto.ExportErrorResponse{Error: exportErr.Message})
		return
	}
	var notAllowed *apperrors.NotAllowedError
	if errors.As(err, &notAllowed) {
		// The sink document has moved past the point where the operation
		// applies; acknowledging stops redelivery.
		logger.Warn("Operation not allowed, acknowledging", slog.String("reason", notAllowed.Message))
		c.Status(http.StatusNoContent)
		return
	}
	if errors.Is(err, errUnknownEvent) {
		logger.Warn("Unknown webhook event")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event: " + req.Event})
		return
	}
	if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.Error("Webhook event failed", slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
}

var errUnknownEvent = errors.New("unknown event")

func (h *webhookHandler) dispatch(c *gin.Context, req dto.WebhookEventRequest) error {
	ctx := c.Request.Context()
	data := req.Data

	switch req.Event {
	case dto.EventExpenseExport:
		if err := requireFields(map[string]string{"expenseId": data.ExpenseID}); err != nil {
			return err
		}
		return h.services.Exporter.ExportExpense(ctx, data.ExpenseID)

	case dto.EventExpenseDelete:
		if err := requireFields(map[string]string{"expenseId": data.ExpenseID}); err != nil {
			return err
		}
		return h.services.Exporter.DeleteExpense(ctx, data.ExpenseID)

	case dto.EventBankStatementExport:
		if data.ExpenseID != "" {
			return h.services.Exporter.ExportBankStatementForExpense(ctx, data.ExpenseID)
		}
		if err := requireFields(map[string]string{"balanceId": data.BalanceID, "transferId": data.TransferID}); err != nil {
			return err
		}
		return h.services.Exporter.ExportBankStatementForTransfer(ctx, data.BalanceID, data.TransferID)

	case dto.EventTransferExport:
		if err := requireFields(map[string]string{"balanceId": data.BalanceID, "transferId": data.TransferID}); err != nil {
			return err
		}
		return h.services.Exporter.ExportBankStatementForTransfer(ctx, data.BalanceID, data.TransferID)

	case dto.EventTransfersExport:
		start, end, err := parseWindow(data.StartDate, data.EndDate)
		if err != nil {
			return err
		}
		return h.services.Exporter.ExportTransfers(ctx, start, end)

	case dto.EventChartOfAccountsSync:
		_, err := h.services.Sync.GetExpenseAccounts(ctx)
		return err

	case dto.EventTaxRatesSync:
		_, err := h.services.Sync.GetTaxRates(ctx)
		return err

	case dto.EventTrackingCategoriesSync:
		_, err := h.services.Sync.GetTrackingCategories(ctx)
		return err

	case dto.EventBankAccountsSync:
		return h.services.Sync.EnsureCurrencyBankAccounts(ctx)

	case dto.EventInitialize:
		return h.services.Connection.Initialize(ctx)

	case dto.EventDisconnect:
		return h.services.Connection.Disconnect(ctx)

	case dto.EventAPIKeySet:
		if err := requireFields(map[string]string{"apiKey": data.APIKey}); err != nil {
			return err
		}
		return h.services.Connection.SetAPIKey(ctx, data.APIKey)

	default:
		return errUnknownEvent
	}
}

func requireFields(fields map[string]string) error {
	for name, value := range fields {
		if value == "" {
			return apperrors.NewValidationError("missing required field: " + name)
		}
	}
	return nil
}

func parseWindow(startDate, endDate string) (time.Time, time.Time, error) {
	if startDate == "" || endDate == "" {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("startDate and endDate are required")
	}
	start, err := time.Parse(webhookDateFormat, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("invalid startDate: " + startDate)
	}
	end, err := time.Parse(webhookDateFormat, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("invalid endDate: " + endDate)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("endDate precedes startDate")
	}
	return start, end, nil
}
