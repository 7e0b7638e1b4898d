package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/usagesync/internal/metadata"
	"github.com/jgoulah/usagesync/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadEmptyDatabase(t *testing.T) {
	db := newTestDB(t)
	meta, err := db.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, meta.Streams)
}

func TestSaveAndLoadMetadata(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	elecMark := time.Date(2025, 7, 20, 23, 0, 0, 0, time.UTC)
	meta := metadata.New().
		Record(models.Electricity, []metadata.ProcessedFile{
			{Path: "/data/e1.csv", SHA256: "aaa", ProcessedAt: time.Date(2025, 7, 21, 6, 0, 0, 0, time.UTC)},
			{Path: "/data/e2.csv", SHA256: "bbb"},
		}, &elecMark).
		Record(models.Gas, nil, nil)

	require.NoError(t, db.Save(ctx, meta))

	loaded, err := db.Load(ctx)
	require.NoError(t, err)

	files := loaded.State(models.Electricity).ProcessedFiles
	require.Len(t, files, 2)
	assert.Equal(t, "/data/e1.csv", files[0].Path)
	assert.Equal(t, "aaa", files[0].SHA256)
	assert.True(t, files[0].ProcessedAt.Equal(time.Date(2025, 7, 21, 6, 0, 0, 0, time.UTC)))
	assert.True(t, files[1].ProcessedAt.IsZero())

	require.NotNil(t, loaded.Watermark(models.Electricity))
	assert.True(t, elecMark.Equal(*loaded.Watermark(models.Electricity)))
	assert.Nil(t, loaded.Watermark(models.Gas))
}

func TestSaveReplacesPreviousState(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	first := metadata.New().Record(models.Gas, []metadata.ProcessedFile{{Path: "old.csv", SHA256: "1"}}, nil)
	require.NoError(t, db.Save(ctx, first))

	mark := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	second := metadata.New().Record(models.Gas, []metadata.ProcessedFile{{Path: "new.csv", SHA256: "2"}}, &mark)
	require.NoError(t, db.Save(ctx, second))

	loaded, err := db.Load(ctx)
	require.NoError(t, err)
	files := loaded.State(models.Gas).ProcessedFiles
	require.Len(t, files, 1)
	assert.Equal(t, "new.csv", files[0].Path)
}

func TestRecordAndListRuns(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	mark := time.Date(2025, 2, 10, 23, 0, 0, 0, time.UTC)
	base := time.Date(2025, 2, 11, 7, 0, 0, 0, time.UTC)
	require.NoError(t, db.RecordRun(ctx, Run{ID: "run-1", Stream: models.Electricity, StartedAt: base, FinishedAt: base.Add(time.Second), Files: 1, RowsAdded: 24, TotalRows: 24, Watermark: &mark}))
	require.NoError(t, db.RecordRun(ctx, Run{ID: "run-2", Stream: models.Gas, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour), Files: 0}))

	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Nil(t, runs[0].Watermark)
	assert.Equal(t, 24, runs[1].RowsAdded)
	require.NotNil(t, runs[1].Watermark)
	assert.True(t, mark.Equal(*runs[1].Watermark))
}
