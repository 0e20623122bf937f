package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Upsert inserts or replaces the snapshot for its date.
func (s *SnapshotStore) Upsert(ctx context.Context, snap *domain.DailySnapshot) error {
	if snap == nil || snap.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO daily_snapshots (
			date, total, moving_average_7, trend, volatility, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		ON CONFLICT (date) DO UPDATE SET
			total = EXCLUDED.total,
			moving_average_7 = EXCLUDED.moving_average_7,
			trend = EXCLUDED.trend,
			volatility = EXCLUDED.volatility,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		domain.CalendarDay(snap.Date, time.UTC), snap.Total, snap.MovingAverage7, snap.Trend, snap.Volatility, updatedAt,
	)
	if err != nil {
		return wrapErr("upsert daily snapshot", err)
	}
	return nil
}

// Latest returns the most recent snapshot by date. Returns ErrNotFound if none exist.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.DailySnapshot, error) {
	query := `
		SELECT date, total, moving_average_7, trend, volatility, updated_at
		FROM daily_snapshots
		ORDER BY date DESC
		LIMIT 1
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, wrapErr("get latest snapshot", err)
	}
	return snap, nil
}

// ListSince returns snapshots with date >= sinceDate, ordered by date ASC.
func (s *SnapshotStore) ListSince(ctx context.Context, sinceDate time.Time) ([]*domain.DailySnapshot, error) {
	query := `
		SELECT date, total, moving_average_7, trend, volatility, updated_at
		FROM daily_snapshots
		WHERE date >= $1::DATE
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.CalendarDay(sinceDate, time.UTC))
	if err != nil {
		return nil, wrapErr("list snapshots", err)
	}
	defer rows.Close()

	var snaps []*domain.DailySnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate snapshot rows", err)
	}
	return snaps, nil
}

// scanSnapshot scans a single row into a DailySnapshot.
func scanSnapshot(row pgx.Row) (*domain.DailySnapshot, error) {
	var snap domain.DailySnapshot

	err := row.Scan(
		&snap.Date, &snap.Total, &snap.MovingAverage7, &snap.Trend, &snap.Volatility, &snap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	snap.Date = domain.CalendarDay(snap.Date, time.UTC)
	return &snap, nil
}
