package models

import "time"

// BillingPeriod is one row of the billing schedule
type BillingPeriod struct {
	Start time.Time // Midnight
	End   time.Time // Midnight, inclusive
	Label string
}

// DurationDays returns the inclusive length of the period in days
func (p BillingPeriod) DurationDays() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}
