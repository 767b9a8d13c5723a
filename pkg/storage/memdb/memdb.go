package memdb

import (
	"context"
	"sync"

	"greenscore/pkg/models"
	"greenscore/pkg/storage"
)

type Store struct {
	mu      sync.Mutex
	entries []models.LogEntry
	nextID  int64
}

func New() *Store {
	return &Store{nextID: 1}
}

func (db *Store) AddEntry(ctx context.Context, entry models.LogEntry) (id int64, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	entry.ID = db.nextID
	db.nextID++
	db.entries = append(db.entries, entry)

	return entry.ID, nil
}

func (db *Store) LatestEntries(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if !storage.ValidLimit(limit) {
		return nil, storage.ErrInvalidLimit
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	n := min(limit, len(db.entries))
	entries := make([]models.LogEntry, 0, n)
	for i := len(db.entries) - 1; i >= len(db.entries)-n; i-- {
		entries = append(entries, db.entries[i])
	}

	return entries, nil
}

// Entries returns a copy of every stored entry in insertion order.
func (db *Store) Entries() []models.LogEntry {
	db.mu.Lock()
	defer db.mu.Unlock()

	return append([]models.LogEntry(nil), db.entries...)
}

func (db *Store) Ping(ctx context.Context) error {
	return nil
}

func (db *Store) Close() {}
