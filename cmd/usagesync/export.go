package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/usagesync/internal/export"
	"github.com/jgoulah/usagesync/internal/snapshot"
	"github.com/jgoulah/usagesync/pkg/models"
)

var exportICP string

var exportCmd = &cobra.Command{
	Use:   "export <electricity|gas> <file.csv|file.xlsx>",
	Short: "Write a snapshot in interval data format",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportICP, "icp", "", "ICP number to stamp on each row (overrides config)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	stream, err := models.ParseStream(args[0])
	if err != nil {
		return err
	}
	outPath := args[1]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	icp := cfg.Export.ICPNumber
	if exportICP != "" {
		icp = exportICP
	}

	records, err := snapshot.LoadUsage(cfg.Stream(stream).Snapshot)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if len(records) == 0 {
		fmt.Printf("No %s data to export\n", stream)
		return nil
	}

	rows := export.Rows(records, icp, time.Now())
	if err := export.WriteFile(outPath, rows); err != nil {
		return err
	}

	fmt.Printf("✓ Exported %d rows to %s\n", len(rows), outPath)
	return nil
}
