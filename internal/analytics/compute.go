// Package analytics derives rolling daily statistics, anomaly flags and forecasts from sales totals.
package analytics

import (
	"math"
	"sort"

	"salesbot/internal/domain"
)

// MovingAverage returns the arithmetic mean of values, 0 for an empty slice.
func MovingAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStddev returns the population standard deviation of values around mean
// (divides by n, not n-1).
func PopulationStddev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// Trend returns the relative deviation of current from average.
// The denominator is floored at 1 so a zero average yields a finite value.
func Trend(current, average float64) float64 {
	return (current - average) / math.Max(average, 1)
}

// ComputeSnapshot derives the snapshot for the most recent day in totals using the
// trailing domain.SnapshotWindow days. Returns false when fewer days are available.
// totals need not be sorted.
func ComputeSnapshot(totals []domain.DailyTotal) (*domain.DailySnapshot, bool) {
	if len(totals) < domain.SnapshotWindow {
		return nil, false
	}

	sorted := make([]domain.DailyTotal, len(totals))
	copy(sorted, totals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	window := sorted[len(sorted)-domain.SnapshotWindow:]
	values := make([]float64, len(window))
	for i, t := range window {
		values[i] = float64(t.Total)
	}

	current := window[len(window)-1]
	ma := MovingAverage(values)

	return &domain.DailySnapshot{
		Date:           current.Date,
		Total:          current.Total,
		MovingAverage7: ma,
		Trend:          Trend(float64(current.Total), ma),
		Volatility:     PopulationStddev(values, ma),
	}, true
}

// AnomalyThreshold returns the two-sigma spike threshold for a snapshot.
func AnomalyThreshold(s *domain.DailySnapshot) float64 {
	return s.MovingAverage7 + 2*s.Volatility
}

// IsAnomalous reports whether the snapshot total exceeds its two-sigma threshold.
func IsAnomalous(s *domain.DailySnapshot) bool {
	return float64(s.Total) > AnomalyThreshold(s)
}

// DeriveForecast estimates the next day's total from a snapshot.
func DeriveForecast(s *domain.DailySnapshot) domain.Forecast {
	predicted := math.Round(math.Max(s.MovingAverage7*(1+s.Trend), 0))

	return domain.Forecast{
		PredictedNext:  int64(predicted),
		Confidence:     confidence(s.Volatility, s.MovingAverage7),
		BasedOn:        s.Date,
		MovingAverage7: s.MovingAverage7,
		Trend:          s.Trend,
		Volatility:     s.Volatility,
	}
}

// confidence buckets volatility against fractions of the moving average.
func confidence(volatility, movingAverage float64) domain.Confidence {
	switch {
	case volatility < 0.3*movingAverage:
		return domain.ConfidenceHigh
	case volatility < 0.6*movingAverage:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
