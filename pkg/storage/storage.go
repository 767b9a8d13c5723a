// Package storage defines the call log persistence contract shared by every backend.
package storage

import (
	"context"
	"errors"

	"greenscore/pkg/models"
)

// MaxLatestLimit caps the number of entries LatestEntries may return.
const MaxLatestLimit = 100

var (
	ErrConnectDB       = errors.New("unable to establish DB connection")
	ErrDBNotResponding = errors.New("DB not responding")
	ErrInvalidLimit    = errors.New("invalid limit")
)

// Storage is an append-only call log.
type Storage interface {
	// AddEntry persists entry and returns the identifier assigned by the store.
	// entry.ID is ignored.
	AddEntry(ctx context.Context, entry models.LogEntry) (id int64, err error)
	// LatestEntries returns at most limit entries, newest (highest id) first.
	LatestEntries(ctx context.Context, limit int) ([]models.LogEntry, error)
	Ping(ctx context.Context) error
	Close()
}

// ValidLimit reports whether limit is accepted by LatestEntries.
func ValidLimit(limit int) bool {
	return limit > 0 && limit <= MaxLatestLimit
}
