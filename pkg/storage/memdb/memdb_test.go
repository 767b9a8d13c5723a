package memdb

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"greenscore/pkg/models"
	"greenscore/pkg/storage"
)

var _ storage.Storage = (*Store)(nil)

func TestStore_AddEntry(t *testing.T) {
	db := New()

	testEntries := []models.LogEntry{
		{URL: "http://example.com/1", Timestamp: 1700000000000, PayloadSize: 10, ResponseTime: 5, StatusCode: 200, CallerIP: "127.0.0.1"},
		{ID: 42, URL: "http://example.com/2", Timestamp: 1700000000001, StatusCode: 500, CallerIP: "10.0.0.1"},
	}

	for i, entry := range testEntries {
		gotID, err := db.AddEntry(context.Background(), entry)
		if err != nil {
			t.Fatalf("unexpected error while adding entry: %v", err)
		}
		if wantID := int64(i + 1); gotID != wantID {
			t.Errorf("want entry ID %d, got entry ID %d", wantID, gotID)
		}
	}

	got := db.Entries()
	if len(got) != len(testEntries) {
		t.Fatalf("want %d entries, got %d", len(testEntries), len(got))
	}
	testEntries[0].ID, testEntries[1].ID = 1, 2
	if !reflect.DeepEqual(got, testEntries) {
		t.Errorf("want entries\n%+v\ngot entries\n%+v", testEntries, got)
	}
}

func TestStore_AddEntryConcurrent(t *testing.T) {
	db := New()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := db.AddEntry(context.Background(), models.LogEntry{URL: "http://example.com"}); err != nil {
				t.Errorf("unexpected error while adding entry: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, e := range db.Entries() {
		if seen[e.ID] {
			t.Errorf("duplicate entry ID %d", e.ID)
		}
		seen[e.ID] = true
	}
	if len(seen) != n {
		t.Errorf("want %d unique IDs, got %d", n, len(seen))
	}
}

func TestStore_LatestEntries(t *testing.T) {
	db := New()
	for i := 0; i < 5; i++ {
		if _, err := db.AddEntry(context.Background(), models.LogEntry{URL: "http://example.com"}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		limit   int
		wantIDs []int64
		wantErr error
	}{
		{name: "fewer than stored", limit: 2, wantIDs: []int64{5, 4}},
		{name: "more than stored", limit: 10, wantIDs: []int64{5, 4, 3, 2, 1}},
		{name: "zero limit", limit: 0, wantErr: storage.ErrInvalidLimit},
		{name: "too big limit", limit: storage.MaxLatestLimit + 1, wantErr: storage.ErrInvalidLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.LatestEntries(context.Background(), tt.limit)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}
			var gotIDs []int64
			for _, e := range got {
				gotIDs = append(gotIDs, e.ID)
			}
			if !reflect.DeepEqual(gotIDs, tt.wantIDs) {
				t.Errorf("want IDs %v, got %v", tt.wantIDs, gotIDs)
			}
		})
	}
}
