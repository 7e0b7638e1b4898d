// Package forecast reads retailer usage forecasts.
package forecast

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/usagesync/pkg/models"
)

// Durations that are kept
const (
	Day   = "day"
	Week  = "week"
	Month = "month"
)

// Summary is the forecast view: the last seven daily forecasts in date order
// and the latest weekly and monthly ones
type Summary struct {
	Daily   []models.Forecast `json:"daily"`
	Weekly  *models.Forecast  `json:"weekly,omitempty"`
	Monthly *models.Forecast  `json:"monthly,omitempty"`
}

// Load reads and summarizes the forecasts file
func Load(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening forecasts: %w", err)
	}
	defer f.Close()

	forecasts, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Summarize(forecasts), nil
}

// Parse reads forecast rows with date, duration, value, forecast and optional label columns
func Parse(r io.Reader) ([]models.Forecast, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "duration", "value", "forecast"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing %s column", required)
		}
	}
	get := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var forecasts []models.Forecast
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		duration := strings.ToLower(get(row, "duration"))
		if duration != Day && duration != Week && duration != Month {
			continue
		}
		date, err := time.Parse("2006-01-02", get(row, "date"))
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", get(row, "date"), err)
		}
		value, err := strconv.ParseFloat(get(row, "value"), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing value %q: %w", get(row, "value"), err)
		}

		forecasts = append(forecasts, models.Forecast{
			Date:     date,
			Duration: duration,
			Value:    value,
			Label:    get(row, "forecast"),
			Range:    get(row, "label"),
		})
	}
	return forecasts, nil
}

// Summarize picks the forecasts shown to the user
func Summarize(forecasts []models.Forecast) *Summary {
	byDuration := map[string][]models.Forecast{}
	for _, f := range forecasts {
		byDuration[f.Duration] = append(byDuration[f.Duration], f)
	}
	for _, list := range byDuration {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	}

	s := &Summary{}
	daily := byDuration[Day]
	if len(daily) > 7 {
		daily = daily[len(daily)-7:]
	}
	s.Daily = daily

	if weekly := byDuration[Week]; len(weekly) > 0 {
		latest := weekly[len(weekly)-1]
		latest.Range = ""
		s.Weekly = &latest
	}
	if monthly := byDuration[Month]; len(monthly) > 0 {
		latest := monthly[len(monthly)-1]
		s.Monthly = &latest
	}
	return s
}
