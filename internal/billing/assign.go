package billing

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/jgoulah/usagesync/pkg/models"
)

const day = 24 * time.Hour

// PeriodCount is the number of records a period labelled during assignment
type PeriodCount struct {
	Label   string
	From    time.Time
	To      time.Time // Exclusive
	Records int
}

// Assigner labels records with bill months from a schedule
type Assigner struct {
	Schedule []models.BillingPeriod
	Strict   bool
	Logger   *zap.Logger
}

// NewAssigner creates an assigner for schedule
func NewAssigner(schedule []models.BillingPeriod, strict bool, logger *zap.Logger) *Assigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assigner{Schedule: schedule, Strict: strict, Logger: logger}
}

// ElapsedDays is the number of days of the latest period covered by data up to maxTS
func ElapsedDays(maxTS time.Time, schedule []models.BillingPeriod) int {
	current := CurrentStart(schedule)
	return int(math.Floor(float64(maxTS.Sub(current))/float64(day))) + 1
}

// CurrentStart returns the latest period start
func CurrentStart(schedule []models.BillingPeriod) time.Time {
	var latest time.Time
	for i, p := range schedule {
		if i == 0 || p.Start.After(latest) {
			latest = p.Start
		}
	}
	return latest
}

// Assign returns copies of records with BillMonth recomputed from scratch.
// Every period's window is [Start, Start+elapsedDays) so each period covers as
// many days as the current one has so far. Periods are applied in schedule order
// and a later match overwrites an earlier one.
func (a *Assigner) Assign(records []models.UsageRecord) ([]models.UsageRecord, []PeriodCount, error) {
	log := a.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if len(a.Schedule) == 0 {
		return nil, nil, ErrEmptySchedule
	}
	if a.Strict {
		if err := ValidateSchedule(a.Schedule); err != nil {
			return nil, nil, err
		}
	}

	out := make([]models.UsageRecord, len(records))
	copy(out, records)
	for i := range out {
		out[i].BillMonth = nil
	}

	maxTS, ok := models.MaxTimestamp(out)
	if !ok {
		return out, nil, nil
	}

	elapsed := ElapsedDays(maxTS, a.Schedule)
	log.Debug("computed elapsed billing days",
		zap.Time("max_timestamp", maxTS),
		zap.Time("current_start", CurrentStart(a.Schedule)),
		zap.Int("elapsed_days", elapsed))

	counts := make([]PeriodCount, 0, len(a.Schedule))
	for _, p := range a.Schedule {
		from := p.Start
		to := p.Start.AddDate(0, 0, elapsed)
		label := p.Label

		n := 0
		for i := range out {
			ts := out[i].Timestamp
			if !ts.Before(from) && ts.Before(to) {
				out[i].BillMonth = &label
				n++
			}
		}

		counts = append(counts, PeriodCount{Label: label, From: from, To: to, Records: n})
		if n > 0 {
			log.Info("assigned bill month",
				zap.String("bill_month", label),
				zap.Int("rows", n),
				zap.String("from", from.Format("2006-01-02")),
				zap.String("to", to.Format("2006-01-02")))
		}
	}

	return out, counts, nil
}
