// Package normalize turns raw usage export rows into typed records.
package normalize

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jgoulah/usagesync/pkg/models"
)

// Policy decides what happens to rows whose date cannot be parsed
type Policy string

const (
	// PolicyDrop skips the row and counts it
	PolicyDrop Policy = "drop"
	// PolicyFail aborts with a *RowError
	PolicyFail Policy = "fail"
)

// ParsePolicy validates a policy name
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicyDrop, nil
	case PolicyDrop, PolicyFail:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown parse policy: %s (available: drop, fail)", s)
	}
}

// ErrMissingColumn is returned when a required header column is absent
var ErrMissingColumn = errors.New("missing column")

// RowError identifies an unparseable row under PolicyFail
type RowError struct {
	File  string
	Line  int
	Value string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: bad date %q: %v", e.File, e.Line, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Options controls a normalization run
type Options struct {
	Policy    Policy
	Watermark *time.Time // Keep only rows strictly after this when set
	Workers   int
	Logger    *zap.Logger
}

// Result holds the normalized rows of a batch of files
type Result struct {
	Records  []models.UsageRecord
	Dropped  int // Rows with unparseable dates
	Filtered int // Rows at or before the watermark
}

type columns struct {
	date, usage, dollars, kind int
}

func locateColumns(header []string) (columns, error) {
	cols := columns{date: -1, usage: -1, dollars: -1, kind: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "date":
			cols.date = i
		case "usage":
			cols.usage = i
		case "dollars":
			cols.dollars = i
		case "type":
			cols.kind = i
		}
	}
	if cols.date == -1 {
		return cols, fmt.Errorf("%w: date", ErrMissingColumn)
	}
	if cols.usage == -1 {
		return cols, fmt.Errorf("%w: usage", ErrMissingColumn)
	}
	return cols, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseReader reads one export. It returns the parsed rows and how many were dropped.
func ParseReader(r io.Reader, name string, policy Policy) ([]models.UsageRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading CSV header: %w", err)
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", name, err)
	}

	var records []models.UsageRecord
	dropped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading CSV row: %w", err)
		}

		raw := field(row, cols.date)
		ts, err := ParseTimestamp(raw)
		if err != nil {
			if policy == PolicyFail {
				line, _ := reader.FieldPos(0)
				return nil, 0, &RowError{File: name, Line: line, Value: raw, Err: err}
			}
			dropped++
			continue
		}

		usage, unit := ParseUsage(field(row, cols.usage))
		records = append(records, models.UsageRecord{
			Timestamp: ts,
			RawDate:   raw,
			Kind:      field(row, cols.kind),
			Usage:     usage,
			Unit:      unit,
			Cost:      ParseCost(field(row, cols.dollars)),
		})
	}

	return records, dropped, nil
}

// ParseFile opens and parses one export file
func ParseFile(path string, policy Policy) ([]models.UsageRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ParseReader(f, path, policy)
}

// ReadFiles parses files concurrently and returns their rows in input order,
// filtered to those after the watermark
func ReadFiles(ctx context.Context, paths []string, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	parsed := make([][]models.UsageRecord, len(paths))
	drops := make([]int, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, dropped, err := ParseFile(path, opts.Policy)
			if err != nil {
				return err
			}
			parsed[i] = records
			drops[i] = dropped
			log.Debug("parsed export", zap.String("file", path), zap.Int("rows", len(records)), zap.Int("dropped", dropped))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	for i := range paths {
		result.Dropped += drops[i]
		result.Records = append(result.Records, parsed[i]...)
	}

	before := len(result.Records)
	result.Records = FilterAfter(result.Records, opts.Watermark)
	result.Filtered = before - len(result.Records)

	return result, nil
}

// FilterAfter keeps records strictly newer than watermark; a nil watermark keeps everything
func FilterAfter(records []models.UsageRecord, watermark *time.Time) []models.UsageRecord {
	if watermark == nil {
		return records
	}
	var out []models.UsageRecord
	for _, r := range records {
		if r.Timestamp.After(*watermark) {
			out = append(out, r)
		}
	}
	return out
}
