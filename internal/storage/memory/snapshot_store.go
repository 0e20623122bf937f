package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[time.Time]*domain.DailySnapshot // keyed by calendar day
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[time.Time]*domain.DailySnapshot),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Upsert inserts or replaces the snapshot for its date.
func (s *SnapshotStore) Upsert(_ context.Context, snap *domain.DailySnapshot) error {
	if snap == nil || snap.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *snap
	copy.Date = domain.CalendarDay(snap.Date, time.UTC)
	s.data[copy.Date] = &copy
	return nil
}

// Latest returns the most recent snapshot by date.
func (s *SnapshotStore) Latest(_ context.Context) (*domain.DailySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.DailySnapshot
	for _, snap := range s.data {
		if latest == nil || snap.Date.After(latest.Date) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	copy := *latest
	return &copy, nil
}

// ListSince returns snapshots with date >= sinceDate, ordered by date ASC.
func (s *SnapshotStore) ListSince(_ context.Context, sinceDate time.Time) ([]*domain.DailySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := domain.CalendarDay(sinceDate, time.UTC)
	var result []*domain.DailySnapshot
	for _, snap := range s.data {
		if !snap.Date.Before(since) {
			copy := *snap
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// Count returns the number of stored snapshots.
func (s *SnapshotStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
