package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/usagesync/internal/report"
	"github.com/jgoulah/usagesync/internal/snapshot"
)

var summaryDayParts bool

var summaryCmd = &cobra.Command{
	Use:   "summary [electricity|gas|all]",
	Short: "Show bill-month totals",
	Long:  `Totals usage and cost per bill month from the snapshots. Use --dayparts for mean usage per month and daypart.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryDayParts, "dayparts", false, "Also show mean usage per month and daypart")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	streams, err := parseStreams(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	for _, stream := range streams {
		records, err := snapshot.LoadUsage(cfg.Stream(stream).Snapshot)
		if err != nil {
			return fmt.Errorf("loading %s snapshot: %w", stream, err)
		}

		fmt.Printf("\n%s\n", stream)
		fmt.Println("---------------------------------------------------------------")
		totals := report.BillMonthSummary(records)
		if len(totals) == 0 {
			fmt.Println("No bill-month data")
			continue
		}
		for _, t := range totals {
			marker := " "
			if t.Current {
				marker = "*"
			}
			fmt.Printf("%s %-12s %10s %-4s $%9s  %3d days  %s to %s\n",
				marker, t.Label, t.Usage.StringFixed(2), t.Unit, t.Cost.StringFixed(2), t.Days,
				t.First.Format("2006-01-02"), t.Last.Format("2006-01-02"))
		}

		if summaryDayParts {
			fmt.Println("\nMean usage by daypart:")
			month := ""
			for _, m := range report.DayPartBreakdown(records) {
				if m.Month != month {
					month = m.Month
					fmt.Printf("  %s\n", month)
				}
				fmt.Printf("    %-10s %8s  (%d readings)\n", m.DayPart, m.Mean.StringFixed(3), m.Count)
			}
		}
	}
	return nil
}
