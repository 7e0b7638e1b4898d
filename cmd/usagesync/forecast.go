package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/usagesync/internal/forecast"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Show the retailer usage forecasts",
	Args:  cobra.NoArgs,
	RunE:  runForecast,
}

func init() {
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	summary, err := forecast.Load(cfg.GetForecastPath())
	if err != nil {
		return err
	}

	if len(summary.Daily) == 0 && summary.Weekly == nil && summary.Monthly == nil {
		fmt.Println("No forecasts found")
		return nil
	}

	if len(summary.Daily) > 0 {
		fmt.Println("Daily:")
		for _, f := range summary.Daily {
			fmt.Printf("  %s  %8.2f  %s\n", f.Date.Format("Mon 2006-01-02"), f.Value, f.Label)
		}
	}
	if summary.Weekly != nil {
		fmt.Printf("Week:   %8.2f  %s %s\n", summary.Weekly.Value, summary.Weekly.Label, summary.Weekly.Range)
	}
	if summary.Monthly != nil {
		fmt.Printf("Month:  %8.2f  %s %s\n", summary.Monthly.Value, summary.Monthly.Label, summary.Monthly.Range)
	}
	return nil
}
