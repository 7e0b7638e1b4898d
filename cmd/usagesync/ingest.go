package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jgoulah/usagesync/internal/config"
	"github.com/jgoulah/usagesync/internal/database"
	"github.com/jgoulah/usagesync/internal/metadata"
	"github.com/jgoulah/usagesync/internal/metrics"
	"github.com/jgoulah/usagesync/internal/pipeline"
	"github.com/jgoulah/usagesync/pkg/models"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [electricity|gas|all]",
	Short: "Ingest new usage exports",
	Long: `Finds export files that have not been processed yet, parses and enriches their rows,
merges them into the stream snapshot and recomputes bill months.

Processing state is saved only after the snapshot has been written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	streams, err := parseStreams(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	rec := metrics.New()
	started := time.Now()
	if err := ingestStreams(cmd.Context(), cfg, log, streams, rec); err != nil {
		return err
	}
	rec.Finish(started, time.Now())
	pushMetrics(cmd.Context(), cfg, log, rec)
	return nil
}

// ingestStreams runs the pipeline for each stream, saving metadata after each successful run
func ingestStreams(ctx context.Context, cfg *config.Config, log *zap.Logger, streams []models.Stream, rec *metrics.Recorder) error {
	fmt.Printf("=== Ingest started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	store, err := openMetadata(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	meta, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading metadata: %w", err)
	}

	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}

	mirror, err := newMirror(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("creating snapshot mirror: %w", err)
	}

	for _, stream := range streams {
		fmt.Printf(" + Checking %s data...\n", stream)
		started := time.Now()
		src := source(cfg, stream)

		res, updated, err := p.Run(ctx, src, meta)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", stream, err)
		}

		if updated != meta {
			if err := store.Save(ctx, updated); err != nil {
				return fmt.Errorf("saving metadata: %w", err)
			}
			meta = updated
		}

		printIngestResult(res)
		rec.ObserveStream(res)

		if db, ok := store.(*database.DB); ok {
			run := database.Run{
				ID:         uuid.NewString(),
				Stream:     stream,
				StartedAt:  started,
				FinishedAt: time.Now(),
				Files:      len(res.NewFiles),
				RowsAdded:  res.Added,
				TotalRows:  len(res.Records),
				Watermark:  res.Watermark,
			}
			if err := db.RecordRun(ctx, run); err != nil {
				log.Warn("failed to record run", zap.Error(err))
			}
		}

		if mirror != nil && res.Persisted {
			if err := mirror.Upload(ctx, src.Snapshot); err != nil {
				fmt.Printf("   ⚠ Mirror upload failed: %v\n", err)
			}
		}
	}

	return nil
}

func printIngestResult(res *pipeline.Result) {
	switch {
	case len(res.NewFiles) == 0:
		fmt.Printf("   - No new %s files to process.\n", res.Stream)
	case !res.Persisted:
		fmt.Printf("   - Processed %d new file(s), no new data rows found.\n", len(res.NewFiles))
	default:
		fmt.Printf("   ✓ Processed %d new file(s): %d rows added, %d total\n", len(res.NewFiles), res.Added, len(res.Records))
		if res.Dropped > 0 {
			fmt.Printf("   - Skipped %d row(s) with unreadable dates\n", res.Dropped)
		}
		for _, c := range res.Counts {
			if c.Records > 0 {
				fmt.Printf("   - Assigning bill month %s to %d rows\n", c.Label, c.Records)
			}
		}
		fmt.Printf("   - Last reading: %s\n", metadata.FormatWatermark(res.Watermark))
	}
}

// pushMetrics sends run metrics when a Pushgateway is configured
func pushMetrics(ctx context.Context, cfg *config.Config, log *zap.Logger, rec *metrics.Recorder) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := rec.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.GetMetricsJob()); err != nil {
		log.Warn("failed to push metrics", zap.Error(err))
	}
}

// mirrorSnapshot uploads a snapshot if a mirror is configured
func mirrorSnapshot(ctx context.Context, cfg *config.Config, log *zap.Logger, path string) {
	mirror, err := newMirror(ctx, cfg, log)
	if err != nil {
		log.Warn("failed to create snapshot mirror", zap.Error(err))
		return
	}
	if mirror == nil {
		return
	}
	if err := mirror.Upload(ctx, path); err != nil {
		fmt.Printf("   ⚠ Mirror upload failed: %v\n", err)
	}
}
