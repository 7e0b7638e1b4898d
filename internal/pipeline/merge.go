package pipeline

import (
	"sort"

	"github.com/jgoulah/usagesync/internal/billing"
	"github.com/jgoulah/usagesync/pkg/models"
)

// Merge combines persisted and fresh records, sorted by timestamp with one
// row per timestamp, and recomputes bill months over the whole set.
// When both inputs hold the same timestamp the persisted row is kept.
func Merge(existing, fresh []models.UsageRecord, assigner *billing.Assigner) ([]models.UsageRecord, []billing.PeriodCount, error) {
	combined := make([]models.UsageRecord, 0, len(existing)+len(fresh))
	combined = append(combined, existing...)
	combined = append(combined, fresh...)

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Timestamp.Before(combined[j].Timestamp)
	})

	deduped := combined[:0]
	for i, r := range combined {
		if i > 0 && r.Timestamp.Equal(deduped[len(deduped)-1].Timestamp) {
			continue
		}
		deduped = append(deduped, r)
	}

	return assigner.Assign(deduped)
}
