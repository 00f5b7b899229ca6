package summary

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists export summaries in a SQLite database for post-hoc
// inspection across test runs. It also satisfies Sink.
type Store struct {
	db *sql.DB
}

// Record is one stored summary row
type Record struct {
	AttemptID string
	Document  map[string]any
	CreatedAt time.Time
}

// OpenStore opens (or creates) the summary database at dbPath
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("summary: open db %s: %w", dbPath, err)
	}

	table := `
	CREATE TABLE IF NOT EXISTS export_summaries (
		attempt_id TEXT PRIMARY KEY,
		document   TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(table); err != nil {
		db.Close()
		return nil, fmt.Errorf("summary: create table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Write stores the summary document under the attempt ID
func (s *Store) Write(ctx context.Context, attemptID string, doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("summary: marshal %s: %w", attemptID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO export_summaries (attempt_id, document, created_at) VALUES (?, ?, ?)`,
		attemptID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("summary: insert %s: %w", attemptID, err)
	}
	return nil
}

// Get loads one stored summary by attempt ID
func (s *Store) Get(ctx context.Context, attemptID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT attempt_id, document, created_at FROM export_summaries WHERE attempt_id = ?`,
		attemptID)
	return scanRecord(row)
}

// List returns all stored summaries, newest first
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT attempt_id, document, created_at FROM export_summaries ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("summary: list: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record Record
		data   string
	)
	if err := row.Scan(&record.AttemptID, &data, &record.CreatedAt); err != nil {
		return nil, fmt.Errorf("summary: scan: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &record.Document); err != nil {
		return nil, fmt.Errorf("summary: decode %s: %w", record.AttemptID, err)
	}
	return &record, nil
}
