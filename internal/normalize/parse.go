package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// DateLayout is the export date format once ordinal suffixes are removed and the text is lowercased
const DateLayout = "3:04pm 2 January 2006"

var ordinalSuffix = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)`)

// StripOrdinalSuffix removes st/nd/rd/th directly after a digit ("21st" -> "21")
func StripOrdinalSuffix(s string) string {
	return ordinalSuffix.ReplaceAllString(s, "${1}")
}

// ParseTimestamp parses an export date such as "5:00pm 21st July 2025".
// The result is the local wall clock held in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	text := strings.ToLower(strings.Join(strings.Fields(StripOrdinalSuffix(s)), " "))
	if text == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := time.Parse(DateLayout, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// ParseUsage splits "<number> <unit>" on the first whitespace run.
// An unparseable number yields a null usage; the unit is still returned.
func ParseUsage(s string) (decimal.NullDecimal, string) {
	s = strings.TrimSpace(s)
	value, unit := s, ""
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		value = s[:i]
		unit = strings.TrimSpace(s[i:])
	}
	return parseDecimal(value), unit
}

// ParseCost parses "$<number>", dropping the currency symbol and thousands separators
func ParseCost(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return parseDecimal(s)
}

func parseDecimal(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
