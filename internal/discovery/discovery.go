// Package discovery finds export files that have not been ingested yet.
package discovery

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/jgoulah/usagesync/internal/metadata"
)

// File is a discovered export with its content hash
type File struct {
	Path   string
	SHA256 string
}

// Discover returns files matching pattern that are not recorded in processed.
// A file is known when its hash was recorded, or its path was recorded without
// a hash. A recorded path whose content changed is reported again.
func Discover(pattern string, processed []metadata.ProcessedFile) ([]File, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("matching %q: %w", pattern, err)
	}
	sort.Strings(matches)

	knownHashes := make(map[string]bool)
	legacyPaths := make(map[string]bool)
	for _, f := range processed {
		if f.SHA256 != "" {
			knownHashes[f.SHA256] = true
		} else {
			legacyPaths[f.Path] = true
		}
	}

	var files []File
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if legacyPaths[path] {
			continue
		}

		sum, err := HashFile(path)
		if err != nil {
			return nil, err
		}
		if knownHashes[sum] {
			continue
		}
		// Identical copies within one batch count once
		knownHashes[sum] = true

		files = append(files, File{Path: path, SHA256: sum})
	}

	return files, nil
}

// HashFile returns the hex SHA-256 of a file's contents
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Paths returns the paths of files
func Paths(files []File) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}
