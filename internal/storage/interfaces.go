package storage

import (
	"context"
	"time"

	"salesbot/internal/domain"
)

// SaleStore provides access to sales storage.
// Deduplication relies entirely on the id_hash uniqueness constraint.
type SaleStore interface {
	// InsertIfAbsent adds a sale keyed by id_hash. Returns false (no error) if the key exists.
	InsertIfAbsent(ctx context.Context, r *domain.SaleRecord) (bool, error)

	// SumSince returns the total amount for sales with occurred_at >= windowStart.
	// A nil groupID sums across all partitions. Empty windows return 0.
	SumSince(ctx context.Context, windowStart time.Time, groupID *int64) (int64, error)

	// DailyTotals returns per-day totals for days >= sinceDate, ordered by date ASC.
	DailyTotals(ctx context.Context, sinceDate time.Time, groupID *int64) ([]domain.DailyTotal, error)

	// ListSince returns sales with occurred_at >= windowStart, ordered by occurred_at ASC.
	ListSince(ctx context.Context, windowStart time.Time, groupID *int64) ([]*domain.SaleRecord, error)
}

// SnapshotStore provides access to daily_snapshots storage.
type SnapshotStore interface {
	// Upsert inserts or replaces the snapshot for its date.
	Upsert(ctx context.Context, s *domain.DailySnapshot) error

	// Latest returns the most recent snapshot by date. Returns ErrNotFound if none exist.
	Latest(ctx context.Context) (*domain.DailySnapshot, error)

	// ListSince returns snapshots with date >= sinceDate, ordered by date ASC.
	ListSince(ctx context.Context, sinceDate time.Time) ([]*domain.DailySnapshot, error)
}

// AnomalyStore provides access to anomalies storage.
type AnomalyStore interface {
	// InsertIfAbsent records an anomaly keyed by date. Returns false if the date is already flagged.
	InsertIfAbsent(ctx context.Context, a *domain.Anomaly) (bool, error)

	// Recent returns up to limit anomalies ordered by date DESC.
	Recent(ctx context.Context, limit int) ([]*domain.Anomaly, error)
}
