package domain

import "time"

// Organisation is the sink-side tenant snapshot. It is fetched fresh on every
// export because the lock dates change independently and gate each export.
type Organisation struct {
	Name              string     `json:"name"`
	BaseCurrency      string     `json:"baseCurrency"`
	ShortCode         string     `json:"shortCode"`
	IsDemoCompany     bool       `json:"isDemoCompany"`
	PeriodLockDate    *time.Time `json:"periodLockDate"`
	EndOfYearLockDate *time.Time `json:"endOfYearLockDate"`
}

// IsDateLocked reports whether d falls on or before either lock date.
func (o *Organisation) IsDateLocked(d time.Time) bool {
	for _, lock := range []*time.Time{o.PeriodLockDate, o.EndOfYearLockDate} {
		if lock != nil && !d.After(*lock) {
			return true
		}
	}
	return false
}
