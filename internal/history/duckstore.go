// Package history keeps a DuckDB-backed audit log of submission
// attempts.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/photodrop/backend/internal/models"
)

// Record is one finished (or failed) submission attempt.
type Record struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"startedAt"`
	CompletedAt    time.Time `json:"completedAt"`
	FileCount      int       `json:"fileCount"`
	AcceptedCount  int       `json:"acceptedCount"`
	ProcessedBytes int64     `json:"processedBytes"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
}

// DuckStore persists submission records in a DuckDB file.
type DuckStore struct {
	db     *sql.DB
	dbPath string
}

// NewDuckStore creates (or opens) the history database under dir.
func NewDuckStore(dir string) (*DuckStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	dbPath := filepath.Join(dir, "submissions.duckdb")

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id              VARCHAR PRIMARY KEY,
			started_at      TIMESTAMP NOT NULL,
			completed_at    TIMESTAMP NOT NULL,
			file_count      INTEGER NOT NULL,
			accepted_count  INTEGER NOT NULL,
			processed_bytes BIGINT NOT NULL,
			status          VARCHAR NOT NULL,
			error           VARCHAR
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating submissions table: %w", err)
	}

	return &DuckStore{db: db, dbPath: dbPath}, nil
}

// RecordSubmission writes one audit row for a finished submission.
func (s *DuckStore) RecordSubmission(sub *models.Submission) error {
	rec := Record{
		ID:             sub.ID,
		StartedAt:      time.UnixMilli(sub.StartTime),
		CompletedAt:    time.UnixMilli(sub.EndTime),
		FileCount:      len(sub.FileIDs),
		AcceptedCount:  sub.AcceptedCount,
		ProcessedBytes: sub.ProcessedBytes,
		Status:         string(sub.Status),
		Error:          sub.Error,
	}
	return s.Insert(rec)
}

// Insert writes one record.
func (s *DuckStore) Insert(rec Record) error {
	_, err := s.db.Exec(`
		INSERT INTO submissions (id, started_at, completed_at, file_count, accepted_count, processed_bytes, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt, rec.CompletedAt, rec.FileCount,
		rec.AcceptedCount, rec.ProcessedBytes, rec.Status, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting submission record: %w", err)
	}
	return nil
}

// ListRecent returns the most recent records, newest first.
func (s *DuckStore) ListRecent(limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, completed_at, file_count, accepted_count, processed_bytes, status, COALESCE(error, '')
		FROM submissions
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.CompletedAt, &rec.FileCount,
			&rec.AcceptedCount, &rec.ProcessedBytes, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("scanning submission record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *DuckStore) Close() error {
	return s.db.Close()
}
