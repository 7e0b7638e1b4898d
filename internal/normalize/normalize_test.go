package normalize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `date,type,usage,dollars
"12:00am 1st July 2025",Hourly,0.52 kWh,$0.14
"1:00am 1st July 2025",Hourly,0.48 kWh,$0.13
date,type,usage,dollars
"Total",,12.00 kWh,$3.10
"2:00am 1st July 2025",Hourly,0.50 kWh,$0.13
`

func TestParseReaderDropsUnparseableRows(t *testing.T) {
	records, dropped, err := ParseReader(strings.NewReader(sampleExport), "sample.csv", PolicyDrop)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 2, dropped)

	first := records[0]
	assert.True(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC).Equal(first.Timestamp))
	assert.Equal(t, "12:00am 1st July 2025", first.RawDate)
	assert.Equal(t, "Hourly", first.Kind)
	assert.Equal(t, "0.52", first.Usage.Decimal.String())
	assert.Equal(t, "kWh", first.Unit)
	assert.Equal(t, "0.14", first.Cost.Decimal.String())
	assert.Nil(t, first.BillMonth)
}

func TestParseReaderFailPolicy(t *testing.T) {
	_, _, err := ParseReader(strings.NewReader(sampleExport), "sample.csv", PolicyFail)
	require.Error(t, err)

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "sample.csv", rowErr.File)
	assert.Equal(t, 4, rowErr.Line)
	assert.Equal(t, "date", rowErr.Value)
}

func TestParseReaderMissingColumn(t *testing.T) {
	_, _, err := ParseReader(strings.NewReader("when,usage\nx,y\n"), "bad.csv", PolicyDrop)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestParseReaderHeaderOnly(t *testing.T) {
	records, dropped, err := ParseReader(strings.NewReader("date,usage,dollars\n"), "empty.csv", PolicyDrop)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, dropped)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyDrop, p)

	p, err = ParsePolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, PolicyFail, p)

	_, err = ParsePolicy("ignore")
	assert.Error(t, err)
}

func TestReadFilesKeepsInputOrderAndFiltersWatermark(t *testing.T) {
	dir := t.TempDir()
	later := filepath.Join(dir, "b.csv")
	earlier := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(later, []byte("date,usage,dollars\n3:00am 2nd July 2025,1 kWh,$0.20\n4:00am 2nd July 2025,2 kWh,$0.40\n"), 0644))
	require.NoError(t, os.WriteFile(earlier, []byte("date,usage,dollars\n11:00pm 1st July 2025,3 kWh,$0.60\nheader noise,,\n"), 0644))

	mark := time.Date(2025, 7, 2, 3, 0, 0, 0, time.UTC)
	res, err := ReadFiles(context.Background(), []string{later, earlier}, Options{Policy: PolicyDrop, Workers: 2, Watermark: &mark})
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.True(t, time.Date(2025, 7, 2, 4, 0, 0, 0, time.UTC).Equal(res.Records[0].Timestamp))
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 2, res.Filtered)

	res, err = ReadFiles(context.Background(), []string{later, earlier}, Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, 3, res.Records[0].Timestamp.Hour())
	assert.Equal(t, 23, res.Records[2].Timestamp.Hour())
}

func TestReadFilesMissingFile(t *testing.T) {
	_, err := ReadFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope.csv")}, Options{})
	assert.Error(t, err)
}

func TestFilterAfterIsStrict(t *testing.T) {
	records, _, err := ParseReader(strings.NewReader(sampleExport), "sample.csv", PolicyDrop)
	require.NoError(t, err)

	mark := records[1].Timestamp
	kept := FilterAfter(records, &mark)
	require.Len(t, kept, 1)
	assert.Equal(t, 2, kept[0].Timestamp.Hour())
	assert.Len(t, FilterAfter(records, nil), 3)
}
