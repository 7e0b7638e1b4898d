package normalize

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripOrdinalSuffix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"5th", "5"},
		{"21st", "21"},
		{"2nd", "2"},
		{"23rd", "23"},
		{"11th August 2025", "11 August 2025"},
		{"1st", "1"},
		{"August", "August"},
		{"Thursday", "Thursday"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripOrdinalSuffix(tt.in), tt.in)
	}
}

func TestStripThenParseMatchesManualRemoval(t *testing.T) {
	for day := 1; day <= 31; day++ {
		suffix := "th"
		switch {
		case day == 1 || day == 21 || day == 31:
			suffix = "st"
		case day == 2 || day == 22:
			suffix = "nd"
		case day == 3 || day == 23:
			suffix = "rd"
		}
		withSuffix := fmtDate(day, suffix)
		manual := fmtDate(day, "")

		got, err := ParseTimestamp(withSuffix)
		require.NoError(t, err, withSuffix)
		want, err := ParseTimestamp(manual)
		require.NoError(t, err, manual)
		assert.True(t, want.Equal(got), withSuffix)
		assert.Equal(t, day, got.Day())
	}
}

func fmtDate(day int, suffix string) string {
	return "4:00pm " + strconv.Itoa(day) + suffix + " March 2025"
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"5:00pm 21st July 2025", time.Date(2025, 7, 21, 17, 0, 0, 0, time.UTC)},
		{"12:00am 1st January 2025", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"12:30PM 2nd February 2025", time.Date(2025, 2, 2, 12, 30, 0, 0, time.UTC)},
		{"  9:00am   3rd march 2025 ", time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "date", "Total", "25:00pm 1st July 2025"} {
		_, err := ParseTimestamp(in)
		assert.Error(t, err, in)
	}
}

func TestParseUsage(t *testing.T) {
	v, unit := ParseUsage("0.523 kWh")
	require.True(t, v.Valid)
	assert.Equal(t, "0.523", v.Decimal.String())
	assert.Equal(t, "kWh", unit)

	v, unit = ParseUsage("1.2   cubic metres")
	require.True(t, v.Valid)
	assert.Equal(t, "1.2", v.Decimal.String())
	assert.Equal(t, "cubic metres", unit)

	v, unit = ParseUsage("n/a kWh")
	assert.False(t, v.Valid)
	assert.Equal(t, "kWh", unit)

	v, unit = ParseUsage("")
	assert.False(t, v.Valid)
	assert.Empty(t, unit)
}

func TestParseCost(t *testing.T) {
	v := ParseCost("$0.17")
	require.True(t, v.Valid)
	assert.Equal(t, "0.17", v.Decimal.String())

	v = ParseCost("$1,204.50")
	require.True(t, v.Valid)
	assert.Equal(t, "1204.5", v.Decimal.String())

	assert.False(t, ParseCost("").Valid)
	assert.False(t, ParseCost("$abc").Valid)
}
