package enrich

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/usagesync/pkg/models"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 7, 21, hour, minute, 0, 0, time.UTC)
}

func TestEveryMinuteHasExactlyOneLabel(t *testing.T) {
	for _, buckets := range [][]bucket{coarse, fine} {
		for m := 0; m < 24*60; m++ {
			matches := 0
			for _, b := range buckets {
				if m >= b.from && m <= b.to {
					matches++
				}
			}
			require.Equal(t, 1, matches, "minute %d", m)
		}
	}
}

func TestDayPartBoundaries(t *testing.T) {
	tests := []struct {
		hour, minute int
		coarse, fine string
	}{
		{0, 0, Atapo, Atapo},
		{3, 59, Atapo, Atapo},
		{4, 0, Atapo, Breakfast},
		{5, 59, Atapo, Breakfast},
		{6, 0, Ata, Breakfast},
		{8, 0, Ata, Ata},
		{11, 59, Ata, Ata},
		{12, 0, Ahiahi, Ahiahi},
		{14, 30, Ahiahi, Ahiahi},
		{16, 0, Ahiahi, Dinner},
		{18, 0, Po, Dinner},
		{19, 59, Po, Dinner},
		{20, 0, Po, Po},
		{23, 59, Po, Po},
	}
	for _, tt := range tests {
		ts := at(tt.hour, tt.minute)
		assert.Equal(t, tt.coarse, DayPart(ts), "coarse %s", ts.Format("15:04"))
		assert.Equal(t, tt.fine, DayPartFine(ts), "fine %s", ts.Format("15:04"))
	}
}

func TestRecordCalendarFields(t *testing.T) {
	r := Record(models.UsageRecord{Timestamp: time.Date(2025, 2, 10, 18, 0, 0, 0, time.UTC)})
	assert.Equal(t, "2025-02-10", r.ISODate)
	assert.Equal(t, "Monday", r.Weekday)
	assert.Equal(t, "February", r.Month)
	assert.Equal(t, 2025, r.Year)
	assert.Equal(t, Po, r.DayPart)
	assert.Equal(t, Dinner, r.DayPartFine)
}

func TestRecordsDoesNotMutateInput(t *testing.T) {
	in := []models.UsageRecord{{Timestamp: at(1, 0)}}
	out := Records(in)
	assert.Empty(t, in[0].ISODate)
	assert.Equal(t, "2025-07-21", out[0].ISODate)
}
