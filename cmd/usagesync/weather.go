package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jgoulah/usagesync/internal/clock"
	"github.com/jgoulah/usagesync/internal/config"
	"github.com/jgoulah/usagesync/internal/feed"
	"github.com/jgoulah/usagesync/internal/metrics"
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Refresh the local weather snapshot",
	Long: `Fetches new readings from the Hilltop server when the newest local reading
is older than weather.stale_after (default 24h). Otherwise does nothing.`,
	Args: cobra.NoArgs,
	RunE: runWeather,
}

func init() {
	rootCmd.AddCommand(weatherCmd)
}

func runWeather(cmd *cobra.Command, args []string) error {
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
	if err := syncWeather(cmd.Context(), cfg, log, rec); err != nil {
		return err
	}
	rec.Finish(started, time.Now())
	pushMetrics(cmd.Context(), cfg, log, rec)
	return nil
}

// newSyncer builds the weather syncer from config
func newSyncer(cfg *config.Config, log *zap.Logger) *feed.Syncer {
	client := feed.NewClient(feed.ClientConfig{
		BaseURL: cfg.GetWeatherBaseURL(),
		HTS:     cfg.GetWeatherHTS(),
		Timeout: cfg.GetWeatherTimeout(),
		Backoff: feed.BackoffConfig{
			MaxRetries:      cfg.Weather.MaxRetries,
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
		},
	}, nil)

	return &feed.Syncer{
		Fetcher:      client,
		Site:         cfg.GetWeatherSite(),
		Measurement:  cfg.GetWeatherMeasurement(),
		SnapshotPath: cfg.GetWeatherSnapshot(),
		StaleAfter:   cfg.GetStaleAfter(),
		Epoch:        cfg.GetWeatherEpoch(),
		Clock:        clock.Real{},
		Logger:       log,
	}
}

// syncWeather refreshes the weather snapshot and reports the outcome
func syncWeather(ctx context.Context, cfg *config.Config, log *zap.Logger, rec *metrics.Recorder) error {
	fmt.Println(" + Checking air temperature data...")

	syncer := newSyncer(cfg, log)
	res, err := syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("syncing weather: %w", err)
	}
	rec.ObserveWeather(res)

	if !res.Refreshed {
		if res.From.IsZero() {
			fmt.Printf("   - Air temperature data is up to date (latest %s).\n", res.Latest.Format(feed.QueryLayout))
		} else {
			fmt.Printf("   - No new readings between %s and %s.\n", res.From.Format(feed.QueryLayout), res.To.Format(feed.QueryLayout))
		}
		return nil
	}

	fmt.Printf("   ✓ Fetched %d readings from %s to %s (%d new, %d total)\n",
		res.Fetched, res.From.Format(feed.QueryLayout), res.To.Format(feed.QueryLayout), res.Added, res.Total)
	mirrorSnapshot(ctx, cfg, log, syncer.SnapshotPath)
	return nil
}
