package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/jgoulah/usagesync/pkg/models"
)

// JSONStore keeps metadata in a single JSON document replaced atomically on save
type JSONStore struct {
	path string
}

// NewJSONStore creates a store backed by path
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

type jsonStream struct {
	ProcessedFiles []ProcessedFile `json:"processed_files"`
	LastProcessed  string          `json:"last_processed,omitempty"`
}

type jsonDocument struct {
	Streams map[models.Stream]jsonStream `json:"streams"`
}

// Load reads the metadata file; a missing file yields empty metadata
func (s *JSONStore) Load(ctx context.Context) (*ProcessingMetadata, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	if _, ok := raw["streams"]; !ok {
		return decodeLegacy(raw)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}

	meta := New()
	for stream, js := range doc.Streams {
		last, err := ParseWatermark(js.LastProcessed)
		if err != nil {
			return nil, fmt.Errorf("parsing %s watermark: %w", stream, err)
		}
		meta.Streams[stream] = StreamState{ProcessedFiles: js.ProcessedFiles, LastProcessed: last}
	}
	return meta, nil
}

// decodeLegacy reads the flat layout with processed_files_<stream> path lists
// and last_datetime_<stream> watermarks
func decodeLegacy(raw map[string]json.RawMessage) (*ProcessingMetadata, error) {
	meta := New()
	for _, stream := range models.Streams {
		st := StreamState{}
		if msg, ok := raw["processed_files_"+string(stream)]; ok {
			var paths []string
			if err := json.Unmarshal(msg, &paths); err != nil {
				return nil, fmt.Errorf("parsing legacy %s files: %w", stream, err)
			}
			for _, p := range paths {
				st.ProcessedFiles = append(st.ProcessedFiles, ProcessedFile{Path: p})
			}
		}
		if msg, ok := raw["last_datetime_"+string(stream)]; ok {
			var text *string
			if err := json.Unmarshal(msg, &text); err != nil {
				return nil, fmt.Errorf("parsing legacy %s watermark: %w", stream, err)
			}
			if text != nil {
				last, err := ParseWatermark(strings.TrimSpace(*text))
				if err != nil {
					return nil, fmt.Errorf("parsing legacy %s watermark: %w", stream, err)
				}
				st.LastProcessed = last
			}
		}
		if len(st.ProcessedFiles) > 0 || st.LastProcessed != nil {
			meta.Streams[stream] = st
		}
	}
	return meta, nil
}

// Save writes the metadata through a temp file and rename
func (s *JSONStore) Save(ctx context.Context, meta *ProcessingMetadata) error {
	doc := jsonDocument{Streams: make(map[models.Stream]jsonStream)}
	for stream, st := range meta.Streams {
		files := st.ProcessedFiles
		if files == nil {
			files = []ProcessedFile{}
		}
		doc.Streams[stream] = jsonStream{ProcessedFiles: files, LastProcessed: FormatWatermark(st.LastProcessed)}
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// Close is a no-op for file-backed metadata
func (s *JSONStore) Close() error {
	return nil
}
