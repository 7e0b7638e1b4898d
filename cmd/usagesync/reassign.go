package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reassignCmd = &cobra.Command{
	Use:   "reassign [electricity|gas|all]",
	Short: "Recompute bill months over existing snapshots",
	Long: `Reloads the billing schedule and reassigns bill months to every row of the
snapshot. Use after editing the billing periods file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReassign,
}

func init() {
	rootCmd.AddCommand(reassignCmd)
}

func runReassign(cmd *cobra.Command, args []string) error {
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

	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}

	for _, stream := range streams {
		src := source(cfg, stream)
		records, counts, err := p.Reassign(src)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("No %s snapshot data to reassign\n", stream)
			continue
		}

		fmt.Printf("%s:\n", stream)
		for _, c := range counts {
			if c.Records > 0 {
				fmt.Printf("  %-16s %6d rows  (%s to %s)\n", c.Label, c.Records, c.From.Format("2006-01-02"), c.To.AddDate(0, 0, -1).Format("2006-01-02"))
			}
		}
		fmt.Printf("✓ Reassigned bill months for %d rows\n", len(records))
		mirrorSnapshot(cmd.Context(), cfg, log, src.Snapshot)
	}
	return nil
}
