package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// AnomalyStore is an in-memory implementation of storage.AnomalyStore.
type AnomalyStore struct {
	mu   sync.RWMutex
	data map[time.Time]*domain.Anomaly // keyed by calendar day
}

// NewAnomalyStore creates a new in-memory anomaly store.
func NewAnomalyStore() *AnomalyStore {
	return &AnomalyStore{
		data: make(map[time.Time]*domain.Anomaly),
	}
}

// Compile-time interface check.
var _ storage.AnomalyStore = (*AnomalyStore)(nil)

// InsertIfAbsent records an anomaly keyed by date.
func (s *AnomalyStore) InsertIfAbsent(_ context.Context, a *domain.Anomaly) (bool, error) {
	if a == nil || a.ID == "" || a.Date.IsZero() {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	day := domain.CalendarDay(a.Date, time.UTC)
	if _, exists := s.data[day]; exists {
		return false, nil
	}

	copy := *a
	copy.Date = day
	s.data[day] = &copy
	return true, nil
}

// Recent returns up to limit anomalies ordered by date DESC.
func (s *AnomalyStore) Recent(_ context.Context, limit int) ([]*domain.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Anomaly, 0, len(s.data))
	for _, a := range s.data {
		copy := *a
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
