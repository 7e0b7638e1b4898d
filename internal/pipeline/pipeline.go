// Package pipeline runs incremental ingestion for a usage stream:
// discover new exports, normalize and enrich their rows, merge them into
// the snapshot, and hand back updated processing state.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jgoulah/usagesync/internal/billing"
	"github.com/jgoulah/usagesync/internal/clock"
	"github.com/jgoulah/usagesync/internal/discovery"
	"github.com/jgoulah/usagesync/internal/enrich"
	"github.com/jgoulah/usagesync/internal/metadata"
	"github.com/jgoulah/usagesync/internal/normalize"
	"github.com/jgoulah/usagesync/internal/snapshot"
	"github.com/jgoulah/usagesync/pkg/models"
)

// Source locates a stream's exports and snapshot
type Source struct {
	Stream   models.Stream
	Pattern  string
	Snapshot string
}

// Pipeline holds the settings shared by every stream run
type Pipeline struct {
	SchedulePath string
	Strict       bool
	Policy       normalize.Policy
	Workers      int
	Clock        clock.Clock
	Logger       *zap.Logger
}

// Result describes the outcome of one stream run
type Result struct {
	Stream    models.Stream
	NewFiles  []discovery.File
	Dropped   int // Rows with unparseable dates
	Filtered  int // Rows at or before the watermark
	Added     int // Rows added to the snapshot
	Records   []models.UsageRecord
	Counts    []billing.PeriodCount
	Watermark *time.Time
	Persisted bool
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) now() time.Time {
	if p.Clock == nil {
		return time.Now().UTC()
	}
	return p.Clock.Now().UTC()
}

// Assigner loads the billing schedule and returns an assigner for it
func (p *Pipeline) Assigner() (*billing.Assigner, error) {
	schedule, err := billing.LoadSchedule(p.SchedulePath)
	if err != nil {
		return nil, err
	}
	return billing.NewAssigner(schedule, p.Strict, p.logger()), nil
}

// Run ingests new exports for one stream. meta is not modified; the returned
// metadata must be saved by the caller once Run succeeds.
func (p *Pipeline) Run(ctx context.Context, src Source, meta *metadata.ProcessingMetadata) (*Result, *metadata.ProcessingMetadata, error) {
	log := p.logger().With(zap.String("stream", string(src.Stream)))
	state := meta.State(src.Stream)

	existing, err := snapshot.LoadUsage(src.Snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s snapshot: %w", src.Stream, err)
	}

	result := &Result{Stream: src.Stream, Records: existing, Watermark: state.LastProcessed}

	files, err := discovery.Discover(src.Pattern, state.ProcessedFiles)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering %s files: %w", src.Stream, err)
	}
	result.NewFiles = files
	if len(files) == 0 {
		log.Info("no new files")
		return result, meta, nil
	}
	log.Info("processing new files", zap.Int("files", len(files)))

	parsed, err := normalize.ReadFiles(ctx, discovery.Paths(files), normalize.Options{
		Policy:    p.Policy,
		Watermark: state.LastProcessed,
		Workers:   p.Workers,
		Logger:    log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s files: %w", src.Stream, err)
	}
	result.Dropped = parsed.Dropped
	result.Filtered = parsed.Filtered

	processed := make([]metadata.ProcessedFile, len(files))
	processedAt := p.now()
	for i, f := range files {
		processed[i] = metadata.ProcessedFile{Path: f.Path, SHA256: f.SHA256, ProcessedAt: processedAt}
	}

	if len(parsed.Records) == 0 {
		log.Info("no new rows in new files",
			zap.Int("dropped", parsed.Dropped),
			zap.Int("filtered", parsed.Filtered))
		return result, meta.Record(src.Stream, processed, state.LastProcessed), nil
	}

	assigner, err := p.Assigner()
	if err != nil {
		return nil, nil, fmt.Errorf("loading billing schedule: %w", err)
	}

	fresh := enrich.Records(parsed.Records)
	merged, counts, err := Merge(existing, fresh, assigner)
	if err != nil {
		return nil, nil, fmt.Errorf("merging %s rows: %w", src.Stream, err)
	}

	if err := snapshot.SaveUsage(src.Snapshot, merged); err != nil {
		return nil, nil, fmt.Errorf("saving %s snapshot: %w", src.Stream, err)
	}

	maxTS, _ := models.MaxTimestamp(merged)
	result.Records = merged
	result.Counts = counts
	result.Added = len(merged) - len(existing)
	result.Watermark = &maxTS
	result.Persisted = true

	log.Info("merged snapshot",
		zap.Int("rows", len(merged)),
		zap.Int("added", result.Added),
		zap.Int("dropped", parsed.Dropped),
		zap.String("watermark", metadata.FormatWatermark(&maxTS)))

	return result, meta.Record(src.Stream, processed, &maxTS), nil
}

// Reassign recomputes bill months over a stream's snapshot and persists it
func (p *Pipeline) Reassign(src Source) ([]models.UsageRecord, []billing.PeriodCount, error) {
	records, err := snapshot.LoadUsage(src.Snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s snapshot: %w", src.Stream, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	assigner, err := p.Assigner()
	if err != nil {
		return nil, nil, fmt.Errorf("loading billing schedule: %w", err)
	}
	assigned, counts, err := assigner.Assign(records)
	if err != nil {
		return nil, nil, fmt.Errorf("assigning %s bill months: %w", src.Stream, err)
	}

	if err := snapshot.SaveUsage(src.Snapshot, assigned); err != nil {
		return nil, nil, fmt.Errorf("saving %s snapshot: %w", src.Stream, err)
	}
	return assigned, counts, nil
}

// Rollback removes the most recent day from a stream's snapshot, reassigns
// bill months over the remaining rows and lowers the watermark so the day can
// be ingested again. It returns the dropped day and the number of rows removed.
func (p *Pipeline) Rollback(src Source, meta *metadata.ProcessingMetadata) (string, int, *metadata.ProcessingMetadata, error) {
	records, err := snapshot.LoadUsage(src.Snapshot)
	if err != nil {
		return "", 0, nil, fmt.Errorf("loading %s snapshot: %w", src.Stream, err)
	}
	if len(records) == 0 {
		return "", 0, meta, nil
	}

	latest := ""
	for _, r := range records {
		if d := r.Timestamp.Format("2006-01-02"); d > latest {
			latest = d
		}
	}

	kept := make([]models.UsageRecord, 0, len(records))
	for _, r := range records {
		if r.Timestamp.Format("2006-01-02") != latest {
			kept = append(kept, r)
		}
	}
	removed := len(records) - len(kept)

	assigner, err := p.Assigner()
	if err != nil {
		return "", 0, nil, fmt.Errorf("loading billing schedule: %w", err)
	}
	kept, _, err = assigner.Assign(kept)
	if err != nil {
		return "", 0, nil, fmt.Errorf("assigning %s bill months: %w", src.Stream, err)
	}

	if err := snapshot.SaveUsage(src.Snapshot, kept); err != nil {
		return "", 0, nil, fmt.Errorf("saving %s snapshot: %w", src.Stream, err)
	}

	var watermark *time.Time
	if maxTS, ok := models.MaxTimestamp(kept); ok {
		watermark = &maxTS
	}

	p.logger().Info("rolled back day",
		zap.String("stream", string(src.Stream)),
		zap.String("day", latest),
		zap.Int("removed", removed))

	return latest, removed, meta.WithWatermark(src.Stream, watermark), nil
}
