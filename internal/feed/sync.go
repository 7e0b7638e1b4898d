package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jgoulah/usagesync/internal/clock"
	"github.com/jgoulah/usagesync/internal/snapshot"
	"github.com/jgoulah/usagesync/pkg/models"
)

// Fetcher retrieves readings for a time range
type Fetcher interface {
	GetData(ctx context.Context, site, measurement string, from, to time.Time) ([]models.WeatherReading, error)
}

// Syncer refreshes the weather snapshot when it has gone stale
type Syncer struct {
	Fetcher      Fetcher
	Site         string
	Measurement  string
	SnapshotPath string
	StaleAfter   time.Duration
	Epoch        time.Time // Start of history when the snapshot is empty
	Clock        clock.Clock
	Logger       *zap.Logger
}

// SyncResult describes one sync
type SyncResult struct {
	Latest    time.Time // Newest local reading before the sync, or the epoch when there is none
	From      time.Time
	To        time.Time
	Refreshed bool
	Fetched   int
	Added     int
	Total     int
}

// Sync fetches [latest, now] when the newest local reading is older than
// StaleAfter, merges it into the snapshot and persists the result
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clk := s.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	local, err := snapshot.LoadWeather(s.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("loading weather snapshot: %w", err)
	}

	latest := s.Epoch
	if len(local) > 0 {
		latest = local[0].Time
		for _, r := range local[1:] {
			if r.Time.After(latest) {
				latest = r.Time
			}
		}
	}

	now := clock.Wall(clk.Now())
	result := &SyncResult{Latest: latest, Total: len(local)}
	if !latest.Before(now.Add(-s.StaleAfter)) {
		log.Info("weather data is up to date", zap.Time("latest", latest))
		return result, nil
	}

	result.From, result.To = latest, now
	log.Info("fetching weather data",
		zap.String("from", latest.Format(QueryLayout)),
		zap.String("to", now.Format(QueryLayout)))

	fetched, err := s.Fetcher.GetData(ctx, s.Site, s.Measurement, latest, now)
	if errors.Is(err, ErrNoData) {
		log.Info("no new weather readings")
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching weather data: %w", err)
	}
	result.Fetched = len(fetched)

	merged := MergeReadings(local, fetched)
	if err := snapshot.SaveWeather(s.SnapshotPath, merged); err != nil {
		return nil, fmt.Errorf("saving weather snapshot: %w", err)
	}

	result.Refreshed = true
	result.Added = len(merged) - len(local)
	result.Total = len(merged)
	log.Info("weather snapshot updated", zap.Int("fetched", len(fetched)), zap.Int("added", result.Added))
	return result, nil
}

// MergeReadings unions local and fetched readings, keeping the local copy of
// any (site, measurement, time) seen in both, sorted by time
func MergeReadings(local, fetched []models.WeatherReading) []models.WeatherReading {
	seen := make(map[string]bool, len(local)+len(fetched))
	merged := make([]models.WeatherReading, 0, len(local)+len(fetched))
	for _, batch := range [][]models.WeatherReading{local, fetched} {
		for _, r := range batch {
			key := r.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Time.Before(merged[j].Time)
	})
	return merged
}
