package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/flockpay/xero_adapter_app/internal/dto"
)

var knownEvents = map[string]bool{
	dto.EventExpenseExport:          true,
	dto.EventExpenseDelete:          true,
	dto.EventTransferExport:         true,
	dto.EventTransfersExport:        true,
	dto.EventBankStatementExport:    true,
	dto.EventChartOfAccountsSync:    true,
	dto.EventTaxRatesSync:           true,
	dto.EventBankAccountsSync:       true,
	dto.EventTrackingCategoriesSync: true,
	dto.EventInitialize:             true,
	dto.EventDisconnect:             true,
	dto.EventAPIKeySet:              true,
}

// registerCustomValidations installs the webhookevent binding tag so unknown
// event names are rejected at bind time.
func registerCustomValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("webhookevent", func(fl validator.FieldLevel) bool {
			return knownEvents[fl.Field().String()]
		})
	}
}
