package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// SaleStore is an in-memory implementation of storage.SaleStore.
type SaleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SaleRecord // keyed by id_hash
	loc  *time.Location                // calendar day boundaries
}

// NewSaleStore creates a new in-memory sale store bucketing days in UTC.
func NewSaleStore() *SaleStore {
	return NewSaleStoreInLocation(time.UTC)
}

// NewSaleStoreInLocation creates a store bucketing daily totals in loc.
func NewSaleStoreInLocation(loc *time.Location) *SaleStore {
	if loc == nil {
		loc = time.UTC
	}
	return &SaleStore{
		data: make(map[string]*domain.SaleRecord),
		loc:  loc,
	}
}

// Compile-time interface check.
var _ storage.SaleStore = (*SaleStore)(nil)

// InsertIfAbsent adds a sale keyed by id_hash. Returns false if the key exists.
func (s *SaleStore) InsertIfAbsent(_ context.Context, r *domain.SaleRecord) (bool, error) {
	if !r.Validate() {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.IDHash]; exists {
		return false, nil
	}

	copy := *r
	s.data[r.IDHash] = &copy
	return true, nil
}

// SumSince returns the total amount for sales with occurred_at >= windowStart.
func (s *SaleStore) SumSince(_ context.Context, windowStart time.Time, groupID *int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, r := range s.data {
		if matches(r, windowStart, groupID) {
			total += r.Amount
		}
	}
	return total, nil
}

// DailyTotals returns per-day totals for days >= sinceDate, ordered by date ASC.
func (s *SaleStore) DailyTotals(_ context.Context, sinceDate time.Time, groupID *int64) ([]domain.DailyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := domain.CalendarDay(sinceDate, time.UTC)
	byDay := make(map[time.Time]int64)
	for _, r := range s.data {
		if groupID != nil && r.GroupID != *groupID {
			continue
		}
		day := domain.CalendarDay(r.OccurredAt, s.loc)
		if day.Before(since) {
			continue
		}
		byDay[day] += r.Amount
	}

	result := make([]domain.DailyTotal, 0, len(byDay))
	for day, total := range byDay {
		result = append(result, domain.DailyTotal{Date: day, Total: total})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// ListSince returns sales with occurred_at >= windowStart, ordered by occurred_at ASC.
func (s *SaleStore) ListSince(_ context.Context, windowStart time.Time, groupID *int64) ([]*domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SaleRecord
	for _, r := range s.data {
		if matches(r, windowStart, groupID) {
			copy := *r
			result = append(result, &copy)
		}
	}

	// Sort by occurred_at ASC, id_hash ASC for determinism
	sort.Slice(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.Before(result[j].OccurredAt)
		}
		return result[i].IDHash < result[j].IDHash
	})
	return result, nil
}

// Count returns the number of stored sales.
func (s *SaleStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func matches(r *domain.SaleRecord, windowStart time.Time, groupID *int64) bool {
	if groupID != nil && r.GroupID != *groupID {
		return false
	}
	return !r.OccurredAt.Before(windowStart)
}
