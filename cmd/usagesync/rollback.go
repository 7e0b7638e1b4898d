package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/usagesync/internal/metadata"
	"github.com/jgoulah/usagesync/pkg/models"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <electricity|gas>",
	Short: "Remove the most recent day from a snapshot",
	Long: `Drops every row of the latest day from the stream snapshot and moves the
watermark back, so a corrected export for that day can be ingested again.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	stream, err := models.ParseStream(args[0])
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

	ctx := cmd.Context()
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

	src := source(cfg, stream)
	day, removed, updated, err := p.Rollback(src, meta)
	if err != nil {
		return err
	}
	if removed == 0 {
		fmt.Printf("No %s snapshot data to roll back\n", stream)
		return nil
	}

	if err := store.Save(ctx, updated); err != nil {
		return fmt.Errorf("saving metadata: %w", err)
	}

	fmt.Printf("✓ Removed %d %s rows for %s\n", removed, stream, day)
	if wm := updated.Watermark(stream); wm != nil {
		fmt.Printf("  Watermark moved back to %s\n", metadata.FormatWatermark(wm))
	} else {
		fmt.Println("  Snapshot is now empty; watermark cleared")
	}
	mirrorSnapshot(ctx, cfg, log, src.Snapshot)
	return nil
}
