// Package metadata holds the processing state of the ingestion pipeline:
// which export files have been consumed and the watermark of each stream.
//
// State is loaded at the start of a run, passed explicitly through the
// pipeline and saved by the caller once the snapshot has been persisted.
package metadata

import (
	"context"
	"sort"
	"time"

	"github.com/jgoulah/usagesync/pkg/models"
)

// WatermarkLayout is the text form of a watermark in persisted metadata
const WatermarkLayout = "2006-01-02T15:04:05"

// ProcessedFile identifies a consumed export by path and content hash
type ProcessedFile struct {
	Path        string    `json:"path"`
	SHA256      string    `json:"sha256,omitempty"` // Empty for entries imported from path-only metadata
	ProcessedAt time.Time `json:"processed_at,omitempty"`
}

// StreamState is the processing state of one stream
type StreamState struct {
	ProcessedFiles []ProcessedFile `json:"processed_files"`
	LastProcessed  *time.Time      `json:"-"`
}

// ProcessingMetadata is the full pipeline state
type ProcessingMetadata struct {
	Streams map[models.Stream]StreamState
}

// New returns empty metadata
func New() *ProcessingMetadata {
	return &ProcessingMetadata{Streams: make(map[models.Stream]StreamState)}
}

// Store loads and saves metadata wholesale
type Store interface {
	Load(ctx context.Context) (*ProcessingMetadata, error)
	Save(ctx context.Context, meta *ProcessingMetadata) error
	Close() error
}

// State returns the state of a stream (zero value if unknown)
func (m *ProcessingMetadata) State(stream models.Stream) StreamState {
	if m == nil || m.Streams == nil {
		return StreamState{}
	}
	return m.Streams[stream]
}

// Watermark returns the last processed timestamp of a stream
func (m *ProcessingMetadata) Watermark(stream models.Stream) *time.Time {
	return m.State(stream).LastProcessed
}

// Clone returns a deep copy so stages can return updated state without mutating their input
func (m *ProcessingMetadata) Clone() *ProcessingMetadata {
	out := New()
	if m == nil {
		return out
	}
	for stream, st := range m.Streams {
		files := make([]ProcessedFile, len(st.ProcessedFiles))
		copy(files, st.ProcessedFiles)
		var last *time.Time
		if st.LastProcessed != nil {
			t := *st.LastProcessed
			last = &t
		}
		out.Streams[stream] = StreamState{ProcessedFiles: files, LastProcessed: last}
	}
	return out
}

// Record returns a copy with files appended to the stream and the watermark set
func (m *ProcessingMetadata) Record(stream models.Stream, files []ProcessedFile, watermark *time.Time) *ProcessingMetadata {
	out := m.Clone()
	st := out.Streams[stream]
	st.ProcessedFiles = append(st.ProcessedFiles, files...)
	st.LastProcessed = watermark
	out.Streams[stream] = st
	return out
}

// WithWatermark returns a copy with only the stream watermark replaced
func (m *ProcessingMetadata) WithWatermark(stream models.Stream, watermark *time.Time) *ProcessingMetadata {
	return m.Record(stream, nil, watermark)
}

// StreamNames returns the streams present, sorted
func (m *ProcessingMetadata) StreamNames() []models.Stream {
	var names []models.Stream
	for s := range m.Streams {
		names = append(names, s)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// FormatWatermark renders a watermark for persistence
func FormatWatermark(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(WatermarkLayout)
}

// ParseWatermark parses a persisted watermark; empty text means none
func ParseWatermark(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(WatermarkLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
