// Package export writes usage snapshots in the interval data layout.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/usagesync/pkg/models"
)

// SheetName is the worksheet used for XLSX output
const SheetName = "IntervalData"

// Header lists the interval data columns
var Header = []string{
	"ESIID",
	"USAGE_DATE",
	"REVISION_DATE",
	"USAGE_START_TIME",
	"USAGE_END_TIME",
	"USAGE_KWH",
	"ESTIMATED_ACTUAL",
	"CONSUMPTION_SURPLUSGENERATION",
	"CATEGORY",
}

// Rows converts records to interval rows for the given ICP number,
// stamped with revision as the revision date
func Rows(records []models.UsageRecord, icp string, revision time.Time) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		kwh := ""
		if r.Usage.Valid {
			kwh = r.Usage.Decimal.String()
		}
		rows = append(rows, []string{
			icp,
			r.Timestamp.Format("2006-01-02"),
			revision.Format("2006-01-02"),
			r.Timestamp.Format("15:04"),
			r.Timestamp.Add(time.Hour).Format("15:04"),
			kwh,
			"A",
			"Consumption",
			r.DayPartFine,
		})
	}
	return rows
}

// WriteCSV writes the header and rows as CSV
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// WriteXLSX writes the header and rows to a single worksheet
func WriteXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	all := append([][]string{Header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WriteFile writes rows to path as .csv or .xlsx, replacing any existing file
func WriteFile(path string, rows [][]string) error {
	var write func(io.Writer, [][]string) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = WriteCSV
	case ".xlsx":
		write = WriteXLSX
	default:
		return fmt.Errorf("unsupported export format: %s (use .csv or .xlsx)", filepath.Ext(path))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer pf.Cleanup()

	if err := write(pf, rows); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
