package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/usagesync/internal/metrics"
	"github.com/jgoulah/usagesync/pkg/models"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Ingest all streams and refresh weather data",
	Long:  `Runs ingest for electricity and gas, then the weather refresh. Intended for cron.`,
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	rec := metrics.New()
	started := time.Now()

	if err := ingestStreams(ctx, cfg, log, models.Streams, rec); err != nil {
		return err
	}
	if err := syncWeather(ctx, cfg, log, rec); err != nil {
		return err
	}

	rec.Finish(started, time.Now())
	pushMetrics(ctx, cfg, log, rec)
	fmt.Printf("\n✓ Check completed in %s\n", time.Since(started).Round(time.Millisecond))
	return nil
}
