package mysql

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"salesbot/internal/domain"
	"salesbot/internal/storage"
)

// SaleStore implements storage.SaleStore using GORM over MySQL.
type SaleStore struct {
	db  *gorm.DB
	loc *time.Location
}

// NewSaleStore creates a new SaleStore bucketing days in UTC.
func NewSaleStore(db *gorm.DB) *SaleStore {
	return &SaleStore{db: db, loc: time.UTC}
}

// WithLocation sets the time zone used for calendar day bucketing.
func (s *SaleStore) WithLocation(loc *time.Location) *SaleStore {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// Compile-time interface check.
var _ storage.SaleStore = (*SaleStore)(nil)

// InsertIfAbsent adds a sale keyed by id_hash. Returns false if the key exists.
func (s *SaleStore) InsertIfAbsent(ctx context.Context, r *domain.SaleRecord) (bool, error) {
	if !r.Validate() {
		return false, storage.ErrInvalidInput
	}

	row := newSaleRow(r)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		if isDuplicateKeyError(res.Error) {
			return false, nil
		}
		return false, wrapErr("insert sale", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SumSince returns the total amount for sales with occurred_at >= windowStart.
func (s *SaleStore) SumSince(ctx context.Context, windowStart time.Time, groupID *int64) (int64, error) {
	var total int64
	err := s.scoped(ctx, windowStart, groupID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, wrapErr("sum sales", err)
	}
	return total, nil
}

// DailyTotals returns per-day totals for days >= sinceDate, ordered by date ASC.
// Days are bucketed client-side in the store location; MySQL time zone tables are not assumed.
func (s *SaleStore) DailyTotals(ctx context.Context, sinceDate time.Time, groupID *int64) ([]domain.DailyTotal, error) {
	since := domain.CalendarDay(sinceDate, time.UTC)
	// widen by a day so local days starting before UTC midnight are covered
	windowStart := since.AddDate(0, 0, -1)

	type point struct {
		OccurredAt time.Time
		Amount     int64
	}
	var points []point
	err := s.scoped(ctx, windowStart, groupID).
		Select("occurred_at, amount").
		Scan(&points).Error
	if err != nil {
		return nil, wrapErr("query daily totals", err)
	}

	byDay := make(map[time.Time]int64)
	for _, p := range points {
		day := domain.CalendarDay(p.OccurredAt, s.loc)
		if day.Before(since) {
			continue
		}
		byDay[day] += p.Amount
	}

	totals := make([]domain.DailyTotal, 0, len(byDay))
	for day, total := range byDay {
		totals = append(totals, domain.DailyTotal{Date: day, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Date.Before(totals[j].Date)
	})
	return totals, nil
}

// ListSince returns sales with occurred_at >= windowStart, ordered by occurred_at ASC.
func (s *SaleStore) ListSince(ctx context.Context, windowStart time.Time, groupID *int64) ([]*domain.SaleRecord, error) {
	var rows []saleRow
	err := s.scoped(ctx, windowStart, groupID).
		Order("occurred_at ASC, id_hash ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapErr("list sales", err)
	}

	records := make([]*domain.SaleRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

func (s *SaleStore) scoped(ctx context.Context, windowStart time.Time, groupID *int64) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&saleRow{}).Where("occurred_at >= ?", windowStart.UTC())
	if groupID != nil {
		q = q.Where("group_id = ?", *groupID)
	}
	return q
}
