package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/usagesync/internal/database"
	"github.com/jgoulah/usagesync/internal/metadata"
	"github.com/jgoulah/usagesync/pkg/models"
)

var statusRuns int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watermarks, processed files and snapshot sizes",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 5, "Number of recent runs to show (sqlite backend only)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

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

	fmt.Printf("Metadata: %s (%s)\n", cfg.GetMetadataPath(), cfg.GetMetadataBackend())
	for _, stream := range models.Streams {
		state := meta.State(stream)
		fmt.Printf("\n%s\n", stream)
		fmt.Printf("  Files processed: %d\n", len(state.ProcessedFiles))
		if wm := meta.Watermark(stream); wm != nil {
			fmt.Printf("  Watermark:       %s\n", metadata.FormatWatermark(wm))
		} else {
			fmt.Println("  Watermark:       (none)")
		}
		printFileStatus("  Snapshot:       ", cfg.Stream(stream).Snapshot)
	}

	fmt.Printf("\nweather (%s / %s)\n", cfg.GetWeatherSite(), cfg.GetWeatherMeasurement())
	printFileStatus("  Snapshot:       ", cfg.GetWeatherSnapshot())

	db, ok := store.(*database.DB)
	if !ok || statusRuns <= 0 {
		return nil
	}
	runs, err := db.ListRuns(ctx, statusRuns)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		return nil
	}

	fmt.Println("\nRecent runs:")
	for _, r := range runs {
		fmt.Printf("  %-12s %-11s %2d files  +%-6s rows  %s total\n",
			humanize.Time(r.StartedAt), r.Stream, r.Files,
			humanize.Comma(int64(r.RowsAdded)), humanize.Comma(int64(r.TotalRows)))
	}
	return nil
}

func printFileStatus(label, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("%s %s (missing)\n", label, path)
		return
	}
	fmt.Printf("%s %s (%s, updated %s)\n", label, path, humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
}
