package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
// Upserts are plain inserts; ReplacingMergeTree(updated_at) collapses rows per date
// and reads use FINAL so only the newest version is visible.
type SnapshotStore struct {
	conn *Conn
	now  func() time.Time
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Upsert inserts a new version of the snapshot for its date.
func (s *SnapshotStore) Upsert(ctx context.Context, snap *domain.DailySnapshot) error {
	if snap == nil || snap.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now().UTC()
	}

	query := `
		INSERT INTO daily_snapshots (
			date, total, moving_average_7, trend, volatility, updated_at
		) VALUES (
			?, ?, ?, ?, ?, ?
		)
	`

	err := s.conn.Exec(ctx, query,
		domain.CalendarDay(snap.Date, time.UTC), snap.Total, snap.MovingAverage7, snap.Trend, snap.Volatility, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert daily snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot by date. Returns ErrNotFound if none exist.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.DailySnapshot, error) {
	query := `
		SELECT date, total, moving_average_7, trend, volatility, updated_at
		FROM daily_snapshots FINAL
		ORDER BY date DESC
		LIMIT 1
	`

	var snap domain.DailySnapshot
	err := s.conn.QueryRow(ctx, query).Scan(
		&snap.Date, &snap.Total, &snap.MovingAverage7, &snap.Trend, &snap.Volatility, &snap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}

	snap.Date = domain.CalendarDay(snap.Date, time.UTC)
	return &snap, nil
}

// ListSince returns snapshots with date >= sinceDate, ordered by date ASC.
func (s *SnapshotStore) ListSince(ctx context.Context, sinceDate time.Time) ([]*domain.DailySnapshot, error) {
	query := `
		SELECT date, total, moving_average_7, trend, volatility, updated_at
		FROM daily_snapshots FINAL
		WHERE date >= toDate(?)
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.CalendarDay(sinceDate, time.UTC).Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.DailySnapshot
	for rows.Next() {
		var snap domain.DailySnapshot
		if err := rows.Scan(
			&snap.Date, &snap.Total, &snap.MovingAverage7, &snap.Trend, &snap.Volatility, &snap.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.Date = domain.CalendarDay(snap.Date, time.UTC)
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snaps, nil
}
