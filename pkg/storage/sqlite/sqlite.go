// Package sqlite stores the call log in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"greenscore/pkg/models"
	"greenscore/pkg/storage"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database file at path and applies the schema.
func New(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single writer connection keeps AUTOINCREMENT ids strictly ordered.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

func (s *Store) AddEntry(ctx context.Context, entry models.LogEntry) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO log_entries (url, timestamp, payload_size, response_time, status_code, caller_ip)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.URL,
		entry.Timestamp,
		entry.PayloadSize,
		entry.ResponseTime,
		entry.StatusCode,
		entry.CallerIP,
	)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (s *Store) LatestEntries(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if !storage.ValidLimit(limit) {
		return nil, storage.ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, timestamp, payload_size, response_time, status_code, caller_ip
		FROM log_entries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.ID, &e.URL, &e.Timestamp, &e.PayloadSize, &e.ResponseTime, &e.StatusCode, &e.CallerIP); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
