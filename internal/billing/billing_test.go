package billing

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/usagesync/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func hourly(from, to time.Time) []models.UsageRecord {
	var records []models.UsageRecord
	for ts := from; !ts.After(to); ts = ts.Add(time.Hour) {
		records = append(records, models.UsageRecord{Timestamp: ts})
	}
	return records
}

func labelAt(records []models.UsageRecord, ts time.Time) *string {
	for _, r := range records {
		if r.Timestamp.Equal(ts) {
			return r.BillMonth
		}
	}
	panic("no record at " + ts.String())
}

var janFeb = []models.BillingPeriod{
	{Start: date(2025, 1, 1), End: date(2025, 1, 31), Label: "Jan"},
	{Start: date(2025, 2, 1), End: date(2025, 2, 28), Label: "Feb"},
}

func TestAssignRollingWindow(t *testing.T) {
	records := hourly(date(2025, 1, 1), date(2025, 2, 10).Add(23*time.Hour))
	assert.Equal(t, 10, ElapsedDays(records[len(records)-1].Timestamp, janFeb))

	out, counts, err := NewAssigner(janFeb, false, nil).Assign(records)
	require.NoError(t, err)

	require.NotNil(t, labelAt(out, date(2025, 1, 1)))
	assert.Equal(t, "Jan", *labelAt(out, date(2025, 1, 1)))
	assert.Equal(t, "Jan", *labelAt(out, date(2025, 1, 10).Add(23*time.Hour)))
	assert.Nil(t, labelAt(out, date(2025, 1, 11)))
	assert.Nil(t, labelAt(out, date(2025, 1, 31).Add(12*time.Hour)))
	assert.Equal(t, "Feb", *labelAt(out, date(2025, 2, 5)))
	assert.Equal(t, "Feb", *labelAt(out, date(2025, 2, 10).Add(23*time.Hour)))

	require.Len(t, counts, 2)
	assert.Equal(t, 240, counts[0].Records)
	assert.Equal(t, 240, counts[1].Records)
	assert.True(t, date(2025, 1, 11).Equal(counts[0].To))
}

func TestAssignClearsPreviousLabels(t *testing.T) {
	stale := "Dec"
	records := []models.UsageRecord{
		{Timestamp: date(2025, 1, 20), BillMonth: &stale},
		{Timestamp: date(2025, 2, 2)},
	}
	out, _, err := NewAssigner(janFeb, false, nil).Assign(records)
	require.NoError(t, err)
	assert.Nil(t, out[0].BillMonth)
	assert.Equal(t, "Feb", *out[1].BillMonth)
	assert.Equal(t, "Dec", *records[0].BillMonth)
}

func TestAssignLastWriterWins(t *testing.T) {
	schedule := []models.BillingPeriod{
		{Start: date(2025, 1, 1), End: date(2025, 1, 31), Label: "A"},
		{Start: date(2025, 1, 3), End: date(2025, 2, 2), Label: "B"},
	}
	records := hourly(date(2025, 1, 1), date(2025, 1, 10))

	out, _, err := NewAssigner(schedule, false, nil).Assign(records)
	require.NoError(t, err)
	assert.Equal(t, "A", *labelAt(out, date(2025, 1, 2)))
	assert.Equal(t, "B", *labelAt(out, date(2025, 1, 5)))

	_, _, err = NewAssigner(schedule, true, nil).Assign(records)
	assert.True(t, errors.Is(err, ErrScheduleOverlap))
}

func TestAssignEmptyInputs(t *testing.T) {
	out, counts, err := NewAssigner(janFeb, false, nil).Assign(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, counts)

	_, _, err = NewAssigner(nil, false, nil).Assign(hourly(date(2025, 1, 1), date(2025, 1, 2)))
	assert.True(t, errors.Is(err, ErrEmptySchedule))
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(janFeb))

	gap := []models.BillingPeriod{
		{Start: date(2025, 1, 1), End: date(2025, 1, 30), Label: "Jan"},
		{Start: date(2025, 2, 1), End: date(2025, 2, 28), Label: "Feb"},
	}
	assert.True(t, errors.Is(ValidateSchedule(gap), ErrScheduleGap))

	// Order in the file does not matter
	reversed := []models.BillingPeriod{janFeb[1], janFeb[0]}
	assert.NoError(t, ValidateSchedule(reversed))
}

func TestLoadScheduleMissing(t *testing.T) {
	_, err := LoadSchedule(filepath.Join(t.TempDir(), "billing_periods.csv"))
	assert.True(t, errors.Is(err, ErrScheduleNotFound))
}

func TestLoadSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billing_periods.csv")
	content := `bill_period_start,bill_period_end,month
2025-01-14,2025-02-12 00:00:00,January
13 February 2025,2025-03-13T12:00:00,February
,,
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	periods, err := LoadSchedule(path)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.True(t, date(2025, 1, 14).Equal(periods[0].Start))
	assert.True(t, date(2025, 3, 13).Equal(periods[1].End))
	assert.Equal(t, "February", periods[1].Label)
	assert.Equal(t, 30, periods[0].DurationDays())
	assert.True(t, date(2025, 2, 13).Equal(CurrentStart(periods)))
}

func TestParseScheduleErrors(t *testing.T) {
	_, err := ParseSchedule(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptySchedule))

	_, err = ParseSchedule(strings.NewReader("bill_period_start,bill_period_end,month\n"))
	assert.True(t, errors.Is(err, ErrEmptySchedule))

	_, err = ParseSchedule(strings.NewReader("start,end\n2025-01-01,2025-01-31\n"))
	assert.Error(t, err)

	_, err = ParseSchedule(strings.NewReader("bill_period_start,bill_period_end,month\nsoon,2025-01-31,Jan\n"))
	assert.Error(t, err)
}
