package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/usagesync/internal/metadata"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDiscoverReturnsUnprocessedSorted(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "usage (2).csv", "b")
	a := writeFile(t, dir, "usage (1).csv", "a")
	writeFile(t, dir, "other.txt", "x")

	files, err := Discover(filepath.Join(dir, "usage*.csv"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, Paths(files))
	assert.Len(t, files[0].SHA256, 64)
}

func TestDiscoverSkipsKnownHashAndRenamedCopy(t *testing.T) {
	dir := t.TempDir()
	orig := writeFile(t, dir, "usage (1).csv", "same content")
	sum, err := HashFile(orig)
	require.NoError(t, err)
	writeFile(t, dir, "usage (1) copy.csv", "same content")
	fresh := writeFile(t, dir, "usage (3).csv", "new content")

	processed := []metadata.ProcessedFile{{Path: orig, SHA256: sum}}
	files, err := Discover(filepath.Join(dir, "usage*.csv"), processed)
	require.NoError(t, err)
	assert.Equal(t, []string{fresh}, Paths(files))
}

func TestDiscoverLegacyPathEntries(t *testing.T) {
	dir := t.TempDir()
	old := writeFile(t, dir, "usage (1).csv", "a")
	fresh := writeFile(t, dir, "usage (2).csv", "b")

	processed := []metadata.ProcessedFile{{Path: old}}
	files, err := Discover(filepath.Join(dir, "usage*.csv"), processed)
	require.NoError(t, err)
	assert.Equal(t, []string{fresh}, Paths(files))
}

func TestDiscoverResubmittedExport(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "usage.csv", "first")
	sum, err := HashFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0644))
	files, err := Discover(filepath.Join(dir, "usage*.csv"), []metadata.ProcessedFile{{Path: path, SHA256: sum}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.NotEqual(t, sum, files[0].SHA256)
}

func TestDiscoverNoMatches(t *testing.T) {
	files, err := Discover(filepath.Join(t.TempDir(), "*.csv"), nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}
