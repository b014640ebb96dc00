package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is a balance top-up or withdrawal on the source platform, mirrored
// into the sink's bank feed as a single statement line.
type Transfer struct {
	ID        string          `json:"id"`
	BalanceID string          `json:"balanceId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Date      time.Time       `json:"date"`
}
