package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jgoulah/usagesync/internal/metadata"
	"github.com/jgoulah/usagesync/pkg/models"
	_ "modernc.org/sqlite"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// Run is one recorded ingestion run for a stream
type Run struct {
	ID         string
	Stream     models.Stream
	StartedAt  time.Time
	FinishedAt time.Time
	Files      int
	RowsAdded  int
	TotalRows  int
	Watermark  *time.Time
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stream TEXT NOT NULL,
		path TEXT NOT NULL,
		sha256 TEXT NOT NULL DEFAULT '',
		processed_at TEXT,
		UNIQUE(stream, path, sha256)
	);
	CREATE INDEX IF NOT EXISTS idx_processed_stream ON processed_files(stream);
	CREATE INDEX IF NOT EXISTS idx_processed_sha ON processed_files(sha256);

	CREATE TABLE IF NOT EXISTS watermarks (
		stream TEXT PRIMARY KEY,
		last_processed TEXT
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		stream TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		files INTEGER NOT NULL,
		rows_added INTEGER NOT NULL,
		total_rows INTEGER NOT NULL,
		watermark TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Load reads the full processing state
func (db *DB) Load(ctx context.Context) (*metadata.ProcessingMetadata, error) {
	meta := metadata.New()

	rows, err := db.conn.QueryContext(ctx, `
	SELECT stream, path, sha256, processed_at
	FROM processed_files
	ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying processed files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stream, path, sha string
		var processedAt sql.NullString
		if err := rows.Scan(&stream, &path, &sha, &processedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		file := metadata.ProcessedFile{Path: path, SHA256: sha}
		if processedAt.Valid && processedAt.String != "" {
			file.ProcessedAt, err = time.Parse(time.RFC3339, processedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing processed_at: %w", err)
			}
		}

		st := meta.Streams[models.Stream(stream)]
		st.ProcessedFiles = append(st.ProcessedFiles, file)
		meta.Streams[models.Stream(stream)] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	marks, err := db.conn.QueryContext(ctx, `SELECT stream, last_processed FROM watermarks`)
	if err != nil {
		return nil, fmt.Errorf("querying watermarks: %w", err)
	}
	defer marks.Close()

	for marks.Next() {
		var stream string
		var last sql.NullString
		if err := marks.Scan(&stream, &last); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		st := meta.Streams[models.Stream(stream)]
		st.LastProcessed, err = metadata.ParseWatermark(last.String)
		if err != nil {
			return nil, fmt.Errorf("parsing watermark: %w", err)
		}
		meta.Streams[models.Stream(stream)] = st
	}

	return meta, marks.Err()
}

// Save replaces the stored processing state in a single transaction
func (db *DB) Save(ctx context.Context, meta *metadata.ProcessingMetadata) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM processed_files`); err != nil {
		return fmt.Errorf("clearing processed files: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM watermarks`); err != nil {
		return fmt.Errorf("clearing watermarks: %w", err)
	}

	for _, stream := range meta.StreamNames() {
		st := meta.Streams[stream]
		for _, f := range st.ProcessedFiles {
			var processedAt string
			if !f.ProcessedAt.IsZero() {
				processedAt = f.ProcessedAt.UTC().Format(time.RFC3339)
			}
			if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO processed_files (stream, path, sha256, processed_at)
			VALUES (?, ?, ?, ?)
			`, string(stream), f.Path, f.SHA256, processedAt); err != nil {
				return fmt.Errorf("inserting processed file: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
		INSERT INTO watermarks (stream, last_processed) VALUES (?, ?)
		`, string(stream), metadata.FormatWatermark(st.LastProcessed)); err != nil {
			return fmt.Errorf("inserting watermark: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing metadata: %w", err)
	}
	return nil
}

// RecordRun stores the outcome of an ingestion run
func (db *DB) RecordRun(ctx context.Context, run Run) error {
	query := `
	INSERT INTO runs (id, stream, started_at, finished_at, files, rows_added, total_rows, watermark)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		string(run.Stream),
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Files,
		run.RowsAdded,
		run.TotalRows,
		metadata.FormatWatermark(run.Watermark),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// ListRuns retrieves the most recent runs, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, stream, started_at, finished_at, files, rows_added, total_rows, watermark
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var run Run
		var stream, startedAt, finishedAt string
		var watermark sql.NullString

		if err := rows.Scan(&run.ID, &stream, &startedAt, &finishedAt, &run.Files, &run.RowsAdded, &run.TotalRows, &watermark); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		run.Stream = models.Stream(stream)

		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		run.Watermark, err = metadata.ParseWatermark(watermark.String)
		if err != nil {
			return nil, fmt.Errorf("parsing watermark: %w", err)
		}

		results = append(results, run)
	}

	return results, rows.Err()
}

// Compile-time check that DB is usable as a metadata store
var _ metadata.Store = (*DB)(nil)
