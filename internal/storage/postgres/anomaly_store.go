package postgres

import (
	"context"
	"fmt"
	"time"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// AnomalyStore implements storage.AnomalyStore using PostgreSQL.
type AnomalyStore struct {
	pool *Pool
}

// NewAnomalyStore creates a new AnomalyStore.
func NewAnomalyStore(pool *Pool) *AnomalyStore {
	return &AnomalyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnomalyStore = (*AnomalyStore)(nil)

// InsertIfAbsent records an anomaly keyed by date. Returns false if the date is already flagged.
func (s *AnomalyStore) InsertIfAbsent(ctx context.Context, a *domain.Anomaly) (bool, error) {
	if a == nil || a.ID == "" || a.Date.IsZero() {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO anomalies (id, date, value, threshold, reason, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (date) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		a.ID, domain.CalendarDay(a.Date, time.UTC), a.Value, a.Threshold, a.Reason, a.DetectedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return false, nil
		}
		return false, wrapErr("insert anomaly", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Recent returns up to limit anomalies ordered by date DESC.
func (s *AnomalyStore) Recent(ctx context.Context, limit int) ([]*domain.Anomaly, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, date, value, threshold, reason, detected_at
		FROM anomalies
		ORDER BY date DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, wrapErr("list anomalies", err)
	}
	defer rows.Close()

	var anomalies []*domain.Anomaly
	for rows.Next() {
		var a domain.Anomaly
		if err := rows.Scan(&a.ID, &a.Date, &a.Value, &a.Threshold, &a.Reason, &a.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan anomaly row: %w", err)
		}
		a.Date = domain.CalendarDay(a.Date, time.UTC)
		anomalies = append(anomalies, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate anomaly rows", err)
	}
	return anomalies, nil
}
