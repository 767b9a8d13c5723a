package postgres

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v4/pgxpool"

	"greenscore/pkg/models"
	"greenscore/pkg/storage"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *pgxpool.Pool
}

// New connects to Postgres and makes sure the log_entries table exists.
func New(ctx context.Context, conStr string) (*Store, error) {
	db, err := pgxpool.Connect(ctx, conStr)
	if err != nil {
		return nil, err
	}
	s := Store{
		db: db,
	}

	if _, err := s.db.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	return &s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// AddEntry inserts a call log row and returns the id generated by the BIGSERIAL column.
func (s *Store) AddEntry(ctx context.Context, entry models.LogEntry) (id int64, err error) {
	err = s.db.QueryRow(ctx, `
		INSERT INTO log_entries (url, timestamp, payload_size, response_time, status_code, caller_ip)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		entry.URL,
		entry.Timestamp,
		entry.PayloadSize,
		entry.ResponseTime,
		entry.StatusCode,
		entry.CallerIP,
	).Scan(&id)

	return
}

// LatestEntries returns up to limit rows ordered by id descending.
func (s *Store) LatestEntries(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if !storage.ValidLimit(limit) {
		return nil, storage.ErrInvalidLimit
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, url, timestamp, payload_size, response_time, status_code, caller_ip
		FROM log_entries
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		err := rows.Scan(
			&e.ID,
			&e.URL,
			&e.Timestamp,
			&e.PayloadSize,
			&e.ResponseTime,
			&e.StatusCode,
			&e.CallerIP,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
