// Package report aggregates usage snapshots for the summary views.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jgoulah/usagesync/internal/enrich"
	"github.com/jgoulah/usagesync/pkg/models"
)

// BillMonthTotal is the running total of one bill month
type BillMonthTotal struct {
	Label   string          `json:"bill_month"`
	Usage   decimal.Decimal `json:"usage"`
	Cost    decimal.Decimal `json:"cost"`
	Unit    string          `json:"unit"`
	Days    int             `json:"days"`
	Records int             `json:"records"`
	First   time.Time       `json:"first"`
	Last    time.Time       `json:"last"`
	Current bool            `json:"current"`
}

// BillMonthSummary totals usage and cost per bill month in order of first
// appearance. Rows without a bill month are left out. The month holding the
// newest assigned row is flagged Current.
func BillMonthSummary(records []models.UsageRecord) []BillMonthTotal {
	index := map[string]int{}
	days := map[string]map[string]bool{}
	var totals []BillMonthTotal
	var newest time.Time
	current := ""

	for _, r := range records {
		label := r.BillMonthLabel()
		if label == "" {
			continue
		}

		i, ok := index[label]
		if !ok {
			i = len(totals)
			index[label] = i
			days[label] = map[string]bool{}
			totals = append(totals, BillMonthTotal{Label: label, First: r.Timestamp, Last: r.Timestamp})
		}

		t := &totals[i]
		if r.Usage.Valid {
			t.Usage = t.Usage.Add(r.Usage.Decimal)
		}
		if r.Cost.Valid {
			t.Cost = t.Cost.Add(r.Cost.Decimal)
		}
		if t.Unit == "" {
			t.Unit = r.Unit
		}
		if r.Timestamp.Before(t.First) {
			t.First = r.Timestamp
		}
		if r.Timestamp.After(t.Last) {
			t.Last = r.Timestamp
		}
		days[label][r.Timestamp.Format("2006-01-02")] = true
		t.Records++

		if current == "" || r.Timestamp.After(newest) {
			newest = r.Timestamp
			current = label
		}
	}

	for i := range totals {
		totals[i].Days = len(days[totals[i].Label])
		totals[i].Current = totals[i].Label == current
	}
	return totals
}

// Current returns the current bill month total, if any
func Current(totals []BillMonthTotal) (BillMonthTotal, bool) {
	for _, t := range totals {
		if t.Current {
			return t, true
		}
	}
	return BillMonthTotal{}, false
}

// DayPartMean is the mean hourly usage of a fine daypart within a calendar month
type DayPartMean struct {
	Month   string          `json:"month"`
	DayPart string          `json:"day_part"`
	Mean    decimal.Decimal `json:"mean"`
	Count   int             `json:"count"`
}

// DayPartBreakdown averages usage per calendar month and fine daypart,
// ordered January to December and by clock order within a month
func DayPartBreakdown(records []models.UsageRecord) []DayPartMean {
	type key struct {
		month   time.Month
		dayPart string
	}
	sums := map[key]decimal.Decimal{}
	counts := map[key]int{}

	for _, r := range records {
		if !r.Usage.Valid {
			continue
		}
		dp := r.DayPartFine
		if dp == "" {
			dp = enrich.DayPartFine(r.Timestamp)
		}
		k := key{month: r.Timestamp.Month(), dayPart: dp}
		sums[k] = sums[k].Add(r.Usage.Decimal)
		counts[k]++
	}

	rank := map[string]int{}
	for i, dp := range enrich.FineOrder {
		rank[dp] = i
	}

	keys := make([]key, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].month != keys[j].month {
			return keys[i].month < keys[j].month
		}
		return rank[keys[i].dayPart] < rank[keys[j].dayPart]
	})

	out := make([]DayPartMean, len(keys))
	for i, k := range keys {
		out[i] = DayPartMean{
			Month:   k.month.String(),
			DayPart: k.dayPart,
			Mean:    sums[k].Div(decimal.NewFromInt(int64(counts[k]))),
			Count:   counts[k],
		}
	}
	return out
}
