// Package history persists scan runs and their result records to SQLite so
// past shelf scans stay queryable after the JSON artifact is consumed.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shelfvision/shelfscan/internal/shelf"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	image_path TEXT NOT NULL,
	target_product TEXT,
	started_at TIMESTAMP NOT NULL,
	record_count INTEGER NOT NULL,
	pair_count INTEGER NOT NULL,
	matched_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	object_index INTEGER NOT NULL,
	class TEXT NOT NULL,
	label TEXT NOT NULL,
	matched INTEGER NOT NULL,
	paired_with INTEGER,
	barcode_verified INTEGER,
	barcode_data TEXT
);

CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
`

// Store is a SQLite-backed archive of scan runs.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunSummary describes one archived scan run.
type RunSummary struct {
	ID            int64
	ImagePath     string
	TargetProduct string
	StartedAt     time.Time
	RecordCount   int
	PairCount     int
	MatchedCount  int
}

// SaveRun archives one run and its records in a single transaction.
func (s *Store) SaveRun(imagePath, targetProduct string, startedAt time.Time, pairCount int, records []shelf.ResultRecord) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	matched := 0
	for _, record := range records {
		if record.Matched {
			matched++
		}
	}

	result, err := tx.Exec(`
		INSERT INTO runs (image_path, target_product, started_at, record_count, pair_count, matched_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, imagePath, targetProduct, startedAt, len(records), pairCount, matched)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records (run_id, object_index, class, label, matched, paired_with, barcode_verified, barcode_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.Exec(runID, record.Index, record.Class, record.Label, record.Matched,
			record.PairedWith, record.BarcodeVerified, record.BarcodeData); err != nil {
			return 0, fmt.Errorf("failed to insert record %d: %w", record.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// Runs returns archived runs, newest first.
func (s *Store) Runs(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, image_path, target_product, started_at, record_count, pair_count, matched_count
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.ID, &run.ImagePath, &run.TargetProduct, &run.StartedAt,
			&run.RecordCount, &run.PairCount, &run.MatchedCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Records returns the archived records for a run in insertion order.
func (s *Store) Records(runID int64) ([]shelf.ResultRecord, error) {
	rows, err := s.db.Query(`
		SELECT object_index, class, label, matched, paired_with, barcode_verified, barcode_data
		FROM records WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []shelf.ResultRecord
	for rows.Next() {
		var record shelf.ResultRecord
		if err := rows.Scan(&record.Index, &record.Class, &record.Label, &record.Matched,
			&record.PairedWith, &record.BarcodeVerified, &record.BarcodeData); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
