package mysql

import (
	"time"

	"salesbot/internal/domain"
)

type saleRow struct {
	IDHash     string    `gorm:"column:id_hash;primaryKey;size:64"`
	GroupID    int64     `gorm:"column:group_id;not null;index:idx_sales_group_time,priority:1"`
	Item       string    `gorm:"column:item;size:255;not null"`
	BuyerName  string    `gorm:"column:buyer_name;size:255;not null"`
	BuyerID    int64     `gorm:"column:buyer_id;not null"`
	Amount     int64     `gorm:"column:amount;not null"`
	OccurredAt time.Time `gorm:"column:occurred_at;type:datetime(3);not null;index:idx_sales_occurred_at;index:idx_sales_group_time,priority:2"`
	CreatedAt  time.Time `gorm:"column:created_at;type:datetime(3)"`
}

func (saleRow) TableName() string { return "sales" }

func newSaleRow(r *domain.SaleRecord) saleRow {
	return saleRow{
		IDHash:     r.IDHash,
		GroupID:    r.GroupID,
		Item:       r.Item,
		BuyerName:  r.BuyerName,
		BuyerID:    r.BuyerID,
		Amount:     r.Amount,
		OccurredAt: r.OccurredAt.UTC(),
	}
}

func (r saleRow) toDomain() *domain.SaleRecord {
	return &domain.SaleRecord{
		IDHash:     r.IDHash,
		GroupID:    r.GroupID,
		Item:       r.Item,
		BuyerName:  r.BuyerName,
		BuyerID:    r.BuyerID,
		Amount:     r.Amount,
		OccurredAt: r.OccurredAt.UTC(),
	}
}

type snapshotRow struct {
	Date           time.Time `gorm:"column:date;type:date;primaryKey"`
	Total          int64     `gorm:"column:total;not null"`
	MovingAverage7 float64   `gorm:"column:moving_average_7;not null"`
	Trend          float64   `gorm:"column:trend;not null"`
	Volatility     float64   `gorm:"column:volatility;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;type:datetime(3);autoUpdateTime:false"`
}

func (snapshotRow) TableName() string { return "daily_snapshots" }

func (r snapshotRow) toDomain() *domain.DailySnapshot {
	return &domain.DailySnapshot{
		Date:           domain.CalendarDay(r.Date, time.UTC),
		Total:          r.Total,
		MovingAverage7: r.MovingAverage7,
		Trend:          r.Trend,
		Volatility:     r.Volatility,
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type anomalyRow struct {
	ID         string    `gorm:"column:id;primaryKey;size:36"`
	Date       time.Time `gorm:"column:date;type:date;uniqueIndex:idx_anomalies_date"`
	Value      int64     `gorm:"column:value;not null"`
	Threshold  float64   `gorm:"column:threshold;not null"`
	Reason     string    `gorm:"column:reason;size:255;not null"`
	DetectedAt time.Time `gorm:"column:detected_at;type:datetime(3);not null"`
}

func (anomalyRow) TableName() string { return "anomalies" }

func (r anomalyRow) toDomain() *domain.Anomaly {
	return &domain.Anomaly{
		ID:         r.ID,
		Date:       domain.CalendarDay(r.Date, time.UTC),
		Value:      r.Value,
		Threshold:  r.Threshold,
		Reason:     r.Reason,
		DetectedAt: r.DetectedAt.UTC(),
	}
}
