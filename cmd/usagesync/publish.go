package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/usagesync/internal/publisher"
	"github.com/jgoulah/usagesync/internal/report"
	"github.com/jgoulah/usagesync/internal/snapshot"
)

var publishCmd = &cobra.Command{
	Use:   "publish [electricity|gas|all]",
	Short: "Publish current bill-month totals to MQTT and Home Assistant",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	streams, err := parseStreams(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pub, err := publisher.New(cfg)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	if !pub.Enabled() {
		fmt.Println("Neither MQTT nor Home Assistant is enabled in config")
		return nil
	}

	for _, stream := range streams {
		records, err := snapshot.LoadUsage(cfg.Stream(stream).Snapshot)
		if err != nil {
			return fmt.Errorf("loading %s snapshot: %w", stream, err)
		}

		total, ok := report.Current(report.BillMonthSummary(records))
		if !ok {
			fmt.Printf("⚠ No bill-month data for %s, skipping\n", stream)
			continue
		}

		if err := pub.Publish(cmd.Context(), stream, total); err != nil {
			return fmt.Errorf("publishing %s: %w", stream, err)
		}
		fmt.Printf("✓ Published %s %s: %s %s, $%s\n", stream, total.Label, total.Usage.StringFixed(2), total.Unit, total.Cost.StringFixed(2))
	}
	return nil
}
