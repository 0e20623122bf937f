package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using GORM over MySQL.
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
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
		updatedAt = time.Now()
	}
	row := snapshotRow{
		Date:           domain.CalendarDay(snap.Date, time.UTC),
		Total:          snap.Total,
		MovingAverage7: snap.MovingAverage7,
		Trend:          snap.Trend,
		Volatility:     snap.Volatility,
		UpdatedAt:      updatedAt.UTC(),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return wrapErr("upsert daily snapshot", err)
	}
	return nil
}

// Latest returns the most recent snapshot by date. Returns ErrNotFound if none exist.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.DailySnapshot, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).Order("date DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, wrapErr("get latest snapshot", err)
	}
	return row.toDomain(), nil
}

// ListSince returns snapshots with date >= sinceDate, ordered by date ASC.
func (s *SnapshotStore) ListSince(ctx context.Context, sinceDate time.Time) ([]*domain.DailySnapshot, error) {
	var rows []snapshotRow
	err := s.db.WithContext(ctx).
		Where("date >= ?", domain.CalendarDay(sinceDate, time.UTC).Format("2006-01-02")).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapErr("list snapshots", err)
	}

	snaps := make([]*domain.DailySnapshot, 0, len(rows))
	for _, row := range rows {
		snaps = append(snaps, row.toDomain())
	}
	return snaps, nil
}
