package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jgoulah/usagesync/internal/snapshot"
	"github.com/jgoulah/usagesync/pkg/models"
)

var (
	listSince string
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list <electricity|gas>",
	Short: "List snapshot rows",
	Long:  `Displays the rows of a stream snapshot, newest last.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listSince, "since", "", "Only show rows since this date (YYYY-MM-DD or relative like 7d)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Show only the last N rows (0 = no limit)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	stream, err := models.ParseStream(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	records, err := snapshot.LoadUsage(cfg.Stream(stream).Snapshot)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	if listSince != "" {
		since, err := parseDate(listSince)
		if err != nil {
			return fmt.Errorf("parsing --since date: %w", err)
		}
		filtered := records[:0]
		for _, r := range records {
			if !r.Timestamp.Before(since) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if listLimit > 0 && len(records) > listLimit {
		records = records[len(records)-listLimit:]
	}

	if len(records) == 0 {
		fmt.Printf("No data found for %s\n", stream)
		return nil
	}

	fmt.Printf("\n%s Usage Data:\n", stream)
	fmt.Println("--------------------------------------------------------------------------")
	fmt.Printf("%-16s  %10s  %8s  %-10s  %-10s  %s\n", "Time", "Usage", "Cost", "Daypart", "Fine", "Bill month")
	fmt.Println("--------------------------------------------------------------------------")

	var usage, cost decimal.Decimal
	unit := ""
	for _, r := range records {
		fmt.Printf("%-16s  %10s  %8s  %-10s  %-10s  %s\n",
			r.Timestamp.Format("2006-01-02 15:04"),
			nullString(r.Usage, 3),
			nullString(r.Cost, 2),
			r.DayPart,
			r.DayPartFine,
			r.BillMonthLabel())
		if r.Usage.Valid {
			usage = usage.Add(r.Usage.Decimal)
		}
		if r.Cost.Valid {
			cost = cost.Add(r.Cost.Decimal)
		}
		if unit == "" {
			unit = r.Unit
		}
	}

	fmt.Println("--------------------------------------------------------------------------")
	fmt.Printf("Total: %s %s, $%s (%d records)\n", usage.StringFixed(2), unit, cost.StringFixed(2), len(records))
	return nil
}

func nullString(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(places)
}

// parseDate parses a date string in either YYYY-MM-DD format or relative format (e.g., "7d")
func parseDate(dateStr string) (time.Time, error) {
	// Try absolute date format first
	t, err := time.Parse("2006-01-02", dateStr)
	if err == nil {
		return t, nil
	}

	// Try relative format (e.g., "7d" for 7 days ago)
	if len(dateStr) > 1 && dateStr[len(dateStr)-1] == 'd' {
		daysStr := dateStr[:len(dateStr)-1]
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err == nil {
			now := time.Now()
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			return midnight.AddDate(0, 0, -days), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD or Nd for N days ago)", dateStr)
}
