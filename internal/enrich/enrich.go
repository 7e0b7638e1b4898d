// Package enrich derives calendar fields and dayparts from record timestamps.
package enrich

import (
	"time"

	"github.com/jgoulah/usagesync/pkg/models"
)

// Coarse and fine daypart labels
const (
	Atapo     = "Atapo"
	Breakfast = "Breakfast"
	Ata       = "Ata"
	Ahiahi    = "Ahiahi"
	Dinner    = "Dinner"
	Po        = "Po"
)

// FineOrder lists the fine dayparts in clock order
var FineOrder = []string{Atapo, Breakfast, Ata, Ahiahi, Dinner, Po}

// CoarseOrder lists the coarse dayparts in clock order
var CoarseOrder = []string{Atapo, Ata, Ahiahi, Po}

type bucket struct {
	from, to int // Minutes of day, inclusive
	label    string
}

var coarse = []bucket{
	{0, 5*60 + 59, Atapo},
	{6 * 60, 11*60 + 59, Ata},
	{12 * 60, 17*60 + 59, Ahiahi},
	{18 * 60, 23*60 + 59, Po},
}

var fine = []bucket{
	{0, 3*60 + 59, Atapo},
	{4 * 60, 7*60 + 59, Breakfast},
	{8 * 60, 11*60 + 59, Ata},
	{12 * 60, 15*60 + 59, Ahiahi},
	{16 * 60, 19*60 + 59, Dinner},
	{20 * 60, 23*60 + 59, Po},
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func lookup(buckets []bucket, minute int) string {
	for _, b := range buckets {
		if minute >= b.from && minute <= b.to {
			return b.label
		}
	}
	return ""
}

// DayPart returns the coarse daypart for the wall-clock time of t
func DayPart(t time.Time) string {
	return lookup(coarse, minuteOfDay(t))
}

// DayPartFine returns the fine daypart for the wall-clock time of t
func DayPartFine(t time.Time) string {
	return lookup(fine, minuteOfDay(t))
}

// Record fills the derived calendar and daypart fields of r
func Record(r models.UsageRecord) models.UsageRecord {
	ts := r.Timestamp
	r.ISODate = ts.Format("2006-01-02")
	r.Weekday = ts.Weekday().String()
	r.Month = ts.Month().String()
	r.Year = ts.Year()
	r.DayPart = DayPart(ts)
	r.DayPartFine = DayPartFine(ts)
	return r
}

// Records returns enriched copies of records
func Records(records []models.UsageRecord) []models.UsageRecord {
	out := make([]models.UsageRecord, len(records))
	for i, r := range records {
		out[i] = Record(r)
	}
	return out
}
