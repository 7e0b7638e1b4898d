package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jgoulah/usagesync/internal/clock"
	"github.com/jgoulah/usagesync/internal/config"
	"github.com/jgoulah/usagesync/internal/database"
	"github.com/jgoulah/usagesync/internal/logger"
	"github.com/jgoulah/usagesync/internal/metadata"
	"github.com/jgoulah/usagesync/internal/normalize"
	"github.com/jgoulah/usagesync/internal/pipeline"
	"github.com/jgoulah/usagesync/internal/snapshot"
	"github.com/jgoulah/usagesync/pkg/models"
)

var (
	cfgFile string
	dbPath  string
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:   "usagesync",
	Short: "Ingest utility meter exports into Parquet snapshots",
	Long: `usagesync collects hourly electricity and gas usage exports, enriches them with
dayparts and billing months, and keeps Parquet snapshots up to date for the dashboard.
It also keeps a local copy of Hilltop weather station readings.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "metadata database or JSON file (default is <data-dir>/data.db)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding exports and snapshots (overrides config)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the configuration file and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if dbPath != "" {
		cfg.Metadata.Path = dbPath
	}
	return cfg, nil
}

// saveConfig saves the configuration file
func saveConfig(cfg *config.Config) error {
	return config.Save(getConfigPath(), cfg)
}

// newLogger builds the structured logger from config
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.GetLogLevel(), cfg.Log.Format)
}

// openMetadata opens the configured metadata store
func openMetadata(cfg *config.Config) (metadata.Store, error) {
	path := cfg.GetMetadataPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating metadata directory: %w", err)
	}

	if cfg.GetMetadataBackend() == "json" {
		return metadata.NewJSONStore(path), nil
	}
	db, err := database.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// newPipeline builds the ingestion pipeline from config
func newPipeline(cfg *config.Config, log *zap.Logger) (*pipeline.Pipeline, error) {
	policy, err := normalize.ParsePolicy(cfg.GetParsePolicy())
	if err != nil {
		return nil, err
	}
	return &pipeline.Pipeline{
		SchedulePath: cfg.GetSchedulePath(),
		Strict:       cfg.Billing.Strict,
		Policy:       policy,
		Workers:      cfg.GetWorkers(),
		Clock:        clock.Real{},
		Logger:       log,
	}, nil
}

// source returns the pipeline source for a stream
func source(cfg *config.Config, stream models.Stream) pipeline.Source {
	sc := cfg.Stream(stream)
	return pipeline.Source{Stream: stream, Pattern: sc.Pattern, Snapshot: sc.Snapshot}
}

// parseStreams turns an optional stream argument into the streams to process
func parseStreams(args []string) ([]models.Stream, error) {
	if len(args) == 0 || args[0] == "all" {
		return models.Streams, nil
	}
	stream, err := models.ParseStream(args[0])
	if err != nil {
		return nil, err
	}
	return []models.Stream{stream}, nil
}

// newMirror returns the S3 mirror when a bucket is configured
func newMirror(ctx context.Context, cfg *config.Config, log *zap.Logger) (*snapshot.Mirror, error) {
	if cfg.Mirror.Bucket == "" {
		return nil, nil
	}
	return snapshot.NewMirror(ctx, snapshot.MirrorConfig{
		Bucket:  cfg.Mirror.Bucket,
		Prefix:  cfg.Mirror.Prefix,
		Region:  cfg.Mirror.Region,
		Profile: cfg.Mirror.Profile,
	}, log)
}
