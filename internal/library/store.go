// Package library persists tempo analysis results in SQLite, keyed by the
// content hash of the source file.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

// Store is a BPM cache backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// Entry is one cached analysis.
type Entry struct {
	Key        string
	BPM        float64
	AnalyzedAt time.Time
}

// Open connects to the database at path, creating the schema if needed.
// Use ":memory:" for a private in-memory cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS bpm_analysis (
		content_key TEXT PRIMARY KEY,
		bpm REAL NOT NULL,
		analyzed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`)
	return err
}

// LookupBPM returns the cached tempo for key. ok is false when the key has
// not been analyzed.
func (s *Store) LookupBPM(ctx context.Context, key string) (float64, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT bpm FROM bpm_analysis WHERE content_key = ?", key)
	var bpm float64
	if err := row.Scan(&bpm); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to load bpm: %w", err)
	}
	return bpm, true, nil
}

// StoreBPM records the tempo for key, replacing an earlier result.
func (s *Store) StoreBPM(ctx context.Context, key string, bpm float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bpm_analysis (content_key, bpm, analyzed_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(content_key) DO UPDATE SET bpm = excluded.bpm, analyzed_at = excluded.analyzed_at
	`, key, bpm)
	if err != nil {
		return fmt.Errorf("failed to store bpm: %w", err)
	}
	return nil
}

// Entries lists every cached analysis, most recent first.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT content_key, bpm, analyzed_at FROM bpm_analysis ORDER BY analyzed_at DESC, content_key ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.BPM, &e.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analyses: %w", err)
	}
	return out, nil
}

// Forget removes the cached result for key.
func (s *Store) Forget(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM bpm_analysis WHERE content_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete bpm: %w", err)
	}
	return nil
}
