package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Stream identifies one of the independent usage series
type Stream string

const (
	Electricity Stream = "electricity"
	Gas         Stream = "gas"
)

// Streams lists every usage stream in processing order
var Streams = []Stream{Electricity, Gas}

// ParseStream validates a stream name from the command line
func ParseStream(s string) (Stream, error) {
	switch Stream(s) {
	case Electricity, Gas:
		return Stream(s), nil
	default:
		return "", fmt.Errorf("unknown stream: %s (available: electricity, gas)", s)
	}
}

// UsageRecord represents a single hourly meter reading
type UsageRecord struct {
	Timestamp   time.Time           `json:"timestamp"` // Local wall clock, stored in UTC
	RawDate     string              `json:"raw_date"`
	Kind        string              `json:"kind,omitempty"`
	Usage       decimal.NullDecimal `json:"usage"`
	Unit        string              `json:"unit"`
	Cost        decimal.NullDecimal `json:"cost"`
	ISODate     string              `json:"iso_date"`
	Weekday     string              `json:"weekday"`
	Month       string              `json:"month"`
	Year        int                 `json:"year"`
	DayPart     string              `json:"day_part"`
	DayPartFine string              `json:"day_part_fine"`
	BillMonth   *string             `json:"bill_month,omitempty"`
}

// BillMonthLabel returns the assigned bill month or an empty string
func (r UsageRecord) BillMonthLabel() string {
	if r.BillMonth == nil {
		return ""
	}
	return *r.BillMonth
}

// MaxTimestamp returns the latest timestamp in records
func MaxTimestamp(records []UsageRecord) (time.Time, bool) {
	if len(records) == 0 {
		return time.Time{}, false
	}
	max := records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp.After(max) {
			max = r.Timestamp
		}
	}
	return max, true
}
