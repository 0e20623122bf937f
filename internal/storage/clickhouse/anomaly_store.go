package clickhouse

import (
	"context"
	"fmt"
	"time"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// AnomalyStore implements storage.AnomalyStore using ClickHouse.
type AnomalyStore struct {
	conn *Conn
}

// NewAnomalyStore creates a new AnomalyStore.
func NewAnomalyStore(conn *Conn) *AnomalyStore {
	return &AnomalyStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AnomalyStore = (*AnomalyStore)(nil)

// InsertIfAbsent records an anomaly keyed by date. Returns false if the date is already flagged.
// MergeTree engines don't enforce uniqueness, so existence is checked first.
func (s *AnomalyStore) InsertIfAbsent(ctx context.Context, a *domain.Anomaly) (bool, error) {
	if a == nil || a.ID == "" || a.Date.IsZero() {
		return false, storage.ErrInvalidInput
	}

	day := domain.CalendarDay(a.Date, time.UTC)
	exists, err := s.exists(ctx, day)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return false, nil
	}

	query := `
		INSERT INTO anomalies (id, date, value, threshold, reason, detected_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if err := s.conn.Exec(ctx, query, a.ID, day, a.Value, a.Threshold, a.Reason, a.DetectedAt); err != nil {
		return false, fmt.Errorf("insert anomaly: %w", err)
	}
	return true, nil
}

// Recent returns up to limit anomalies ordered by date DESC.
func (s *AnomalyStore) Recent(ctx context.Context, limit int) ([]*domain.Anomaly, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, date, value, threshold, reason, detected_at
		FROM anomalies FINAL
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
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
		return nil, fmt.Errorf("iterate anomaly rows: %w", err)
	}
	return anomalies, nil
}

// exists checks if an anomaly is already recorded for day.
func (s *AnomalyStore) exists(ctx context.Context, day time.Time) (bool, error) {
	query := `SELECT count(*) FROM anomalies FINAL WHERE date = toDate(?)`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, day.Format("2006-01-02")).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
