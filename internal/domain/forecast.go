package domain

import "time"

// Confidence is a qualitative bucket derived from volatility.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// String returns the string representation of Confidence.
func (c Confidence) String() string {
	return string(c)
}

// Forecast is the heuristic next-24h estimate derived from a snapshot.
type Forecast struct {
	PredictedNext  int64
	Confidence     Confidence
	BasedOn        time.Time // snapshot date
	MovingAverage7 float64
	Trend          float64
	Volatility     float64
}
