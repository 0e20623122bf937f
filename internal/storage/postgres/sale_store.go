package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// SaleStore implements storage.SaleStore using PostgreSQL.
type SaleStore struct {
	pool     *Pool
	timezone string // IANA zone used for calendar-day bucketing
}

// NewSaleStore creates a new SaleStore bucketing days in UTC.
func NewSaleStore(pool *Pool) *SaleStore {
	return &SaleStore{pool: pool, timezone: "UTC"}
}

// WithTimezone sets the IANA time zone used by DailyTotals.
func (s *SaleStore) WithTimezone(tz string) *SaleStore {
	if tz != "" {
		s.timezone = tz
	}
	return s
}

// Compile-time interface check.
var _ storage.SaleStore = (*SaleStore)(nil)

// InsertIfAbsent adds a sale keyed by id_hash. Returns false if the key exists.
// The unique constraint rejects duplicates atomically; no lookup precedes the insert.
func (s *SaleStore) InsertIfAbsent(ctx context.Context, r *domain.SaleRecord) (bool, error) {
	if !r.Validate() {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sales (
			id_hash, group_id, item, buyer_name, buyer_id, amount, occurred_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (id_hash) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		r.IDHash, r.GroupID, r.Item, r.BuyerName, r.BuyerID, r.Amount, r.OccurredAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return false, nil
		}
		return false, wrapErr("insert sale", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SumSince returns the total amount for sales with occurred_at >= windowStart.
func (s *SaleStore) SumSince(ctx context.Context, windowStart time.Time, groupID *int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::BIGINT
		FROM sales
		WHERE occurred_at >= $1
		  AND ($2::BIGINT IS NULL OR group_id = $2)
	`

	var total int64
	if err := s.pool.QueryRow(ctx, query, windowStart, groupID).Scan(&total); err != nil {
		return 0, wrapErr("sum sales", err)
	}
	return total, nil
}

// DailyTotals returns per-day totals for days >= sinceDate, ordered by date ASC.
func (s *SaleStore) DailyTotals(ctx context.Context, sinceDate time.Time, groupID *int64) ([]domain.DailyTotal, error) {
	query := `
		SELECT (occurred_at AT TIME ZONE $1)::DATE AS day, SUM(amount)::BIGINT
		FROM sales
		WHERE (occurred_at AT TIME ZONE $1)::DATE >= $2::DATE
		  AND ($3::BIGINT IS NULL OR group_id = $3)
		GROUP BY day
		ORDER BY day ASC
	`

	since := domain.CalendarDay(sinceDate, time.UTC)
	rows, err := s.pool.Query(ctx, query, s.timezone, since, groupID)
	if err != nil {
		return nil, wrapErr("get daily totals", err)
	}
	defer rows.Close()

	var totals []domain.DailyTotal
	for rows.Next() {
		var t domain.DailyTotal
		if err := rows.Scan(&t.Date, &t.Total); err != nil {
			return nil, fmt.Errorf("scan daily total row: %w", err)
		}
		t.Date = domain.CalendarDay(t.Date, time.UTC)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate daily total rows", err)
	}

	return totals, nil
}

// ListSince returns sales with occurred_at >= windowStart, ordered by occurred_at ASC.
func (s *SaleStore) ListSince(ctx context.Context, windowStart time.Time, groupID *int64) ([]*domain.SaleRecord, error) {
	query := `
		SELECT id_hash, group_id, item, buyer_name, buyer_id, amount, occurred_at
		FROM sales
		WHERE occurred_at >= $1
		  AND ($2::BIGINT IS NULL OR group_id = $2)
		ORDER BY occurred_at ASC, id_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, windowStart, groupID)
	if err != nil {
		return nil, wrapErr("list sales", err)
	}
	defer rows.Close()

	return scanSaleRecords(rows)
}

// scanSaleRecords scans multiple rows into a slice of SaleRecord.
func scanSaleRecords(rows pgx.Rows) ([]*domain.SaleRecord, error) {
	var sales []*domain.SaleRecord

	for rows.Next() {
		var r domain.SaleRecord

		err := rows.Scan(
			&r.IDHash, &r.GroupID, &r.Item, &r.BuyerName, &r.BuyerID, &r.Amount, &r.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}

		sales = append(sales, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate sale rows", err)
	}

	return sales, nil
}
