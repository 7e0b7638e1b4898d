package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jgoulah/usagesync/internal/config"
	"github.com/jgoulah/usagesync/pkg/models"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := &config.Config{
		DataDir:  ".",
		Billing:  config.BillingConfig{Schedule: "billing_periods.csv"},
		Metadata: config.MetadataConfig{Backend: "sqlite"},
		Ingest:   config.IngestConfig{ParsePolicy: "drop"},
		Log:      config.LogConfig{Level: "info", Format: "console"},
	}
	for _, stream := range models.Streams {
		sc := cfg.Stream(stream)
		sc.Pattern = filepath.Base(sc.Pattern)
		sc.Snapshot = filepath.Base(sc.Snapshot)
		switch stream {
		case models.Electricity:
			cfg.Electricity = sc
		case models.Gas:
			cfg.Gas = sc
		}
	}
	cfg.Weather = config.WeatherConfig{
		BaseURL:     cfg.GetWeatherBaseURL(),
		HTS:         cfg.GetWeatherHTS(),
		Site:        cfg.GetWeatherSite(),
		Measurement: cfg.GetWeatherMeasurement(),
		Snapshot:    filepath.Base(cfg.GetWeatherSnapshot()),
		Epoch:       cfg.GetWeatherEpoch().Format("2006-01-02"),
	}

	if err := saveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("✓ Wrote %s\n", path)
	fmt.Println("  Edit the export patterns and billing schedule, then run: usagesync ingest")
	return nil
}
