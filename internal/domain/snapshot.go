package domain

import "time"

// SnapshotWindow is the number of trailing daily totals a snapshot covers.
const SnapshotWindow = 7

// DailySnapshot holds rolling statistics for one calendar day.
// Corresponds to the daily_snapshots table, unique by Date.
type DailySnapshot struct {
	Date           time.Time // UTC midnight of the calendar day
	Total          int64     // sum of amounts for Date
	MovingAverage7 float64   // mean of the trailing 7 daily totals, Date inclusive
	Trend          float64   // (Total - MovingAverage7) / max(MovingAverage7, 1)
	Volatility     float64   // population stddev of the same window
	UpdatedAt      time.Time // last recomputation
}

// Anomaly is a flagged spike for one calendar day.
type Anomaly struct {
	ID         string
	Date       time.Time
	Value      int64   // daily total that triggered the flag
	Threshold  float64 // MovingAverage7 + 2*Volatility at detection
	Reason     string
	DetectedAt time.Time
}
