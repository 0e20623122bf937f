package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// AnomalyStore implements storage.AnomalyStore using GORM over MySQL.
type AnomalyStore struct {
	db *gorm.DB
}

// NewAnomalyStore creates a new AnomalyStore.
func NewAnomalyStore(db *gorm.DB) *AnomalyStore {
	return &AnomalyStore{db: db}
}

// Compile-time interface check.
var _ storage.AnomalyStore = (*AnomalyStore)(nil)

// InsertIfAbsent records an anomaly keyed by date. Returns false if the date is already flagged.
func (s *AnomalyStore) InsertIfAbsent(ctx context.Context, a *domain.Anomaly) (bool, error) {
	if a == nil || a.ID == "" || a.Date.IsZero() {
		return false, storage.ErrInvalidInput
	}

	row := anomalyRow{
		ID:         a.ID,
		Date:       domain.CalendarDay(a.Date, time.UTC),
		Value:      a.Value,
		Threshold:  a.Threshold,
		Reason:     a.Reason,
		DetectedAt: a.DetectedAt.UTC(),
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		if isDuplicateKeyError(res.Error) {
			return false, nil
		}
		return false, wrapErr("insert anomaly", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Recent returns up to limit anomalies ordered by date DESC.
func (s *AnomalyStore) Recent(ctx context.Context, limit int) ([]*domain.Anomaly, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []anomalyRow
	err := s.db.WithContext(ctx).Order("date DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, wrapErr("list anomalies", err)
	}

	anomalies := make([]*domain.Anomaly, 0, len(rows))
	for _, row := range rows {
		anomalies = append(anomalies, row.toDomain())
	}
	return anomalies, nil
}
