package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/usagesync/internal/enrich"
	"github.com/jgoulah/usagesync/pkg/models"
)

func rec(ts time.Time, usage, cost string, label string) models.UsageRecord {
	r := models.UsageRecord{Timestamp: ts, Unit: "kWh"}
	if usage != "" {
		r.Usage = decimal.NewNullDecimal(decimal.RequireFromString(usage))
	}
	if cost != "" {
		r.Cost = decimal.NewNullDecimal(decimal.RequireFromString(cost))
	}
	if label != "" {
		r.BillMonth = &label
	}
	return enrich.Record(r)
}

func TestBillMonthSummary(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	records := []models.UsageRecord{
		rec(jan, "1.5", "0.30", "Jan"),
		rec(jan.Add(time.Hour), "0.5", "0.10", "Jan"),
		rec(jan.Add(25*time.Hour), "", "0.05", "Jan"),
		rec(jan.Add(15*24*time.Hour), "9", "2", ""),
		rec(feb, "2.25", "0.45", "Feb"),
	}

	totals := BillMonthSummary(records)
	require.Len(t, totals, 2)

	assert.Equal(t, "Jan", totals[0].Label)
	assert.Equal(t, "2", totals[0].Usage.String())
	assert.Equal(t, "0.45", totals[0].Cost.String())
	assert.Equal(t, 2, totals[0].Days)
	assert.Equal(t, 3, totals[0].Records)
	assert.False(t, totals[0].Current)

	assert.Equal(t, "Feb", totals[1].Label)
	assert.True(t, totals[1].Current)

	cur, ok := Current(totals)
	require.True(t, ok)
	assert.Equal(t, "Feb", cur.Label)
}

func TestBillMonthSummaryEmpty(t *testing.T) {
	assert.Empty(t, BillMonthSummary(nil))
	_, ok := Current(nil)
	assert.False(t, ok)
}

func TestDayPartBreakdown(t *testing.T) {
	feb := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	records := []models.UsageRecord{
		rec(feb.Add(17*time.Hour), "3", "", ""),
		rec(jan.Add(1*time.Hour), "1", "", ""),
		rec(jan.Add(2*time.Hour), "2", "", ""),
		rec(jan.Add(17*time.Hour), "4", "", ""),
		rec(jan.Add(5*time.Hour), "", "", ""),
	}

	out := DayPartBreakdown(records)
	require.Len(t, out, 3)
	assert.Equal(t, DayPartMean{Month: "January", DayPart: enrich.Atapo, Mean: out[0].Mean, Count: 2}, out[0])
	assert.Equal(t, "1.5", out[0].Mean.String())
	assert.Equal(t, enrich.Dinner, out[1].DayPart)
	assert.Equal(t, "February", out[2].Month)
}
