// Package query answers read-only questions about stored sales: period totals,
// the trailing week chart, the latest forecast and snapshot history.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesbot/internal/analytics"
	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// ChartDays is the number of calendar days in the chart, today inclusive.
const ChartDays = 7

// ErrNoForecast is returned when no snapshot exists yet.
var ErrNoForecast = errors.New("no forecast available")

// Service is the query surface over the stores.
type Service struct {
	sales     storage.SaleStore
	snapshots storage.SnapshotStore
	anomalies storage.AnomalyStore
	loc       *time.Location
	now       func() time.Time
}

// Options configures the Service.
type Options struct {
	SaleStore     storage.SaleStore
	SnapshotStore storage.SnapshotStore
	AnomalyStore  storage.AnomalyStore // Optional
	Location      *time.Location       // Default: UTC
	Clock         func() time.Time
}

// NewService creates a new query Service.
func NewService(opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		sales:     opts.SaleStore,
		snapshots: opts.SnapshotStore,
		anomalies: opts.AnomalyStore,
		loc:       loc,
		now:       now,
	}
}

// Location returns the time zone used for calendar boundaries.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Total returns the sum of amounts since the start of period. A nil groupID covers all groups.
func (s *Service) Total(ctx context.Context, period domain.Period, groupID *int64) (int64, error) {
	if !period.IsValid() {
		return 0, fmt.Errorf("total: %w: period %q", storage.ErrInvalidInput, period)
	}
	total, err := s.sales.SumSince(ctx, period.Start(s.now(), s.loc), groupID)
	if err != nil {
		return 0, fmt.Errorf("total for %s: %w", period, err)
	}
	return total, nil
}

// Chart returns daily totals for the trailing ChartDays calendar days ending today,
// ascending, with days without sales filled with zero.
func (s *Service) Chart(ctx context.Context, groupID *int64) ([]domain.DailyTotal, error) {
	today := domain.CalendarDay(s.now(), s.loc)
	since := today.AddDate(0, 0, -(ChartDays - 1))

	totals, err := s.sales.DailyTotals(ctx, since, groupID)
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}

	byDay := make(map[time.Time]int64, len(totals))
	for _, t := range totals {
		byDay[t.Date] = t.Total
	}

	chart := make([]domain.DailyTotal, ChartDays)
	for i := range chart {
		day := since.AddDate(0, 0, i)
		chart[i] = domain.DailyTotal{Date: day, Total: byDay[day]}
	}
	return chart, nil
}

// Forecast derives the next-day estimate from the latest snapshot.
// Returns ErrNoForecast if no snapshot has been written yet.
func (s *Service) Forecast(ctx context.Context) (domain.Forecast, error) {
	snap, err := s.snapshots.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Forecast{}, ErrNoForecast
		}
		return domain.Forecast{}, fmt.Errorf("forecast: %w", err)
	}
	return analytics.DeriveForecast(snap), nil
}

// Snapshots returns snapshots for the trailing days calendar days, ascending.
func (s *Service) Snapshots(ctx context.Context, days int) ([]*domain.DailySnapshot, error) {
	if days <= 0 {
		days = 30
	}
	since := domain.CalendarDay(s.now(), s.loc).AddDate(0, 0, -(days - 1))

	snaps, err := s.snapshots.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("snapshots: %w", err)
	}
	return snaps, nil
}

// Anomalies returns up to limit recent anomalies. Empty when the anomaly module is disabled.
func (s *Service) Anomalies(ctx context.Context, limit int) ([]*domain.Anomaly, error) {
	if s.anomalies == nil {
		return []*domain.Anomaly{}, nil
	}
	anomalies, err := s.anomalies.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("anomalies: %w", err)
	}
	return anomalies, nil
}

// Sales returns individual sales since windowStart, ascending.
func (s *Service) Sales(ctx context.Context, windowStart time.Time, groupID *int64) ([]*domain.SaleRecord, error) {
	records, err := s.sales.ListSince(ctx, windowStart, groupID)
	if err != nil {
		return nil, fmt.Errorf("sales: %w", err)
	}
	return records, nil
}
