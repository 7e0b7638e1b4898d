package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/usagesync/pkg/models"
)

func TestJSONStoreMissingFileIsEmpty(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "metadata.json"))
	meta, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, meta.Streams)
	assert.Nil(t, meta.Watermark(models.Electricity))
}

func TestJSONStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewJSONStore(filepath.Join(t.TempDir(), "state", "metadata.json"))

	last := time.Date(2025, 2, 10, 23, 0, 0, 0, time.UTC)
	meta := New().Record(models.Gas, []ProcessedFile{
		{Path: "/data/gas-1.csv", SHA256: "abc", ProcessedAt: time.Date(2025, 2, 11, 8, 0, 0, 0, time.UTC)},
	}, &last)
	require.NoError(t, store.Save(ctx, meta))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded.Watermark(models.Gas))
	assert.True(t, last.Equal(*loaded.Watermark(models.Gas)))
	assert.Equal(t, meta.State(models.Gas).ProcessedFiles[0].Path, loaded.State(models.Gas).ProcessedFiles[0].Path)
	assert.Equal(t, "abc", loaded.State(models.Gas).ProcessedFiles[0].SHA256)
	assert.Nil(t, loaded.Watermark(models.Electricity))
}

func TestJSONStoreReadsLegacyLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	legacy := `{
    "processed_files_electricity": ["/data/Genesis Energy - My Hourly Usage (1).csv"],
    "last_datetime_electricity": "2025-07-20T23:00:00",
    "processed_files_gas": [],
    "last_datetime_gas": null
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	meta, err := NewJSONStore(path).Load(context.Background())
	require.NoError(t, err)

	files := meta.State(models.Electricity).ProcessedFiles
	require.Len(t, files, 1)
	assert.Equal(t, "/data/Genesis Energy - My Hourly Usage (1).csv", files[0].Path)
	assert.Empty(t, files[0].SHA256)
	require.NotNil(t, meta.Watermark(models.Electricity))
	assert.Equal(t, "2025-07-20T23:00:00", FormatWatermark(meta.Watermark(models.Electricity)))
	assert.Nil(t, meta.Watermark(models.Gas))
}

func TestRecordDoesNotMutateInput(t *testing.T) {
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	base := New().Record(models.Electricity, []ProcessedFile{{Path: "a.csv"}}, &first)

	second := first.Add(time.Hour)
	next := base.Record(models.Electricity, []ProcessedFile{{Path: "b.csv"}}, &second)

	assert.Len(t, base.State(models.Electricity).ProcessedFiles, 1)
	assert.True(t, first.Equal(*base.Watermark(models.Electricity)))
	assert.Len(t, next.State(models.Electricity).ProcessedFiles, 2)
	assert.True(t, second.Equal(*next.Watermark(models.Electricity)))
}
