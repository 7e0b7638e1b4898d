// Package snapshot reads and writes the Parquet snapshots the dashboard consumes.
//
// A snapshot is always replaced wholesale: rows are written to a temporary
// file in the destination directory which is then renamed over the old one.
package snapshot

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"github.com/jgoulah/usagesync/pkg/models"
)

// usageRow is the on-disk layout of a usage snapshot
type usageRow struct {
	Index     time.Time `parquet:"index,timestamp(millisecond:local)"`
	Date      string    `parquet:"date"`
	Type      string    `parquet:"type,optional"`
	Usage     *float64  `parquet:"usage,optional"`
	Units     string    `parquet:"units,optional"`
	Dollars   *float64  `parquet:"dollars,optional"`
	YYYYMMDD  string    `parquet:"YYYYMMDD"`
	Weekday   string    `parquet:"Weekday"`
	Month     string    `parquet:"Month"`
	Year      int32     `parquet:"Year"`
	DTime     string    `parquet:"d_time"`
	DTime1    string    `parquet:"d_time1"`
	BillMonth *string   `parquet:"billMonth,optional"`
}

func decimalFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

func floatDecimal(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*f))
}

func toUsageRow(r models.UsageRecord) usageRow {
	row := usageRow{
		Index:    r.Timestamp,
		Date:     r.RawDate,
		Type:     r.Kind,
		Usage:    decimalFloat(r.Usage),
		Units:    r.Unit,
		Dollars:  decimalFloat(r.Cost),
		YYYYMMDD: r.ISODate,
		Weekday:  r.Weekday,
		Month:    r.Month,
		Year:     int32(r.Year),
		DTime:    r.DayPart,
		DTime1:   r.DayPartFine,
	}
	if r.BillMonth != nil {
		label := *r.BillMonth
		row.BillMonth = &label
	}
	return row
}

func fromUsageRow(row usageRow) models.UsageRecord {
	return models.UsageRecord{
		Timestamp:   row.Index.UTC(),
		RawDate:     row.Date,
		Kind:        row.Type,
		Usage:       floatDecimal(row.Usage),
		Unit:        row.Units,
		Cost:        floatDecimal(row.Dollars),
		ISODate:     row.YYYYMMDD,
		Weekday:     row.Weekday,
		Month:       row.Month,
		Year:        int(row.Year),
		DayPart:     row.DTime,
		DayPartFine: row.DTime1,
		BillMonth:   row.BillMonth,
	}
}

// LoadUsage reads a usage snapshot; a missing file is an empty dataset
func LoadUsage(path string) ([]models.UsageRecord, error) {
	rows, err := readRows[usageRow](path)
	if err != nil {
		return nil, err
	}

	records := make([]models.UsageRecord, len(rows))
	for i, row := range rows {
		records[i] = fromUsageRow(row)
	}
	return records, nil
}

// SaveUsage replaces the usage snapshot at path
func SaveUsage(path string, records []models.UsageRecord) error {
	rows := make([]usageRow, len(records))
	for i, r := range records {
		rows[i] = toUsageRow(r)
	}
	return writeRows(path, rows)
}

func readRows[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	rows, err := parquet.Read[T](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return rows, nil
}

func writeRows[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer pf.Cleanup()

	if err := parquet.Write(pf, rows); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing snapshot %s: %w", path, err)
	}
	return nil
}
