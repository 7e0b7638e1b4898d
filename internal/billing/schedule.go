// Package billing maps usage records to billing months.
package billing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jgoulah/usagesync/pkg/models"
)

var (
	// ErrScheduleNotFound is returned when the schedule file does not exist
	ErrScheduleNotFound = errors.New("billing schedule not found")
	// ErrEmptySchedule is returned when the schedule has no periods
	ErrEmptySchedule = errors.New("billing schedule is empty")
	// ErrScheduleGap is returned in strict mode when days fall between two periods
	ErrScheduleGap = errors.New("billing schedule has a gap")
	// ErrScheduleOverlap is returned in strict mode when two periods share days
	ErrScheduleOverlap = errors.New("billing schedule has overlapping periods")
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2 January 2006",
	"2 Jan 2006",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LoadSchedule reads a billing schedule CSV with bill_period_start, bill_period_end and month columns
func LoadSchedule(path string) ([]models.BillingPeriod, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening schedule: %w", err)
	}
	defer f.Close()

	periods, err := ParseSchedule(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return periods, nil
}

// ParseSchedule reads schedule rows in file order
func ParseSchedule(r io.Reader) ([]models.BillingPeriod, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptySchedule
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	startCol, endCol, labelCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "bill_period_start":
			startCol = i
		case "bill_period_end":
			endCol = i
		case "month":
			labelCol = i
		}
	}
	if startCol == -1 || endCol == -1 || labelCol == -1 {
		return nil, fmt.Errorf("schedule needs bill_period_start, bill_period_end and month columns, got %v", header)
	}

	var periods []models.BillingPeriod
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if len(row) <= startCol || len(row) <= endCol || len(row) <= labelCol {
			continue
		}
		if strings.TrimSpace(row[startCol]) == "" {
			continue
		}

		line, _ := reader.FieldPos(0)
		start, err := parseDate(row[startCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: bill_period_start: %w", line, err)
		}
		end, err := parseDate(row[endCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: bill_period_end: %w", line, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("line %d: period ends before it starts", line)
		}

		periods = append(periods, models.BillingPeriod{
			Start: start,
			End:   end,
			Label: strings.TrimSpace(row[labelCol]),
		})
	}

	if len(periods) == 0 {
		return nil, ErrEmptySchedule
	}
	return periods, nil
}

// ValidateSchedule checks that periods, ordered by start, tile the calendar without gaps or overlaps
func ValidateSchedule(periods []models.BillingPeriod) error {
	if len(periods) == 0 {
		return ErrEmptySchedule
	}

	sorted := make([]models.BillingPeriod, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		next := prev.End.AddDate(0, 0, 1)
		switch {
		case cur.Start.After(next):
			return fmt.Errorf("%w: %s ends %s, %s starts %s", ErrScheduleGap,
				prev.Label, prev.End.Format("2006-01-02"), cur.Label, cur.Start.Format("2006-01-02"))
		case cur.Start.Before(next):
			return fmt.Errorf("%w: %s ends %s, %s starts %s", ErrScheduleOverlap,
				prev.Label, prev.End.Format("2006-01-02"), cur.Label, cur.Start.Format("2006-01-02"))
		}
	}
	return nil
}
