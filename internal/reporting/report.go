// Package reporting builds daily and weekly sales reports and renders them
// as Markdown, CSV and XLSX.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesbot/internal/domain"
)

// Kind selects the report window.
type Kind string

const (
	// KindDaily covers the current calendar day up to the generation time.
	KindDaily Kind = "daily"
	// KindWeekly covers the trailing 7 calendar days, today inclusive.
	KindWeekly Kind = "weekly"
)

// ParseKind parses a report kind, case-insensitive.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k != KindDaily && k != KindWeekly {
		return "", fmt.Errorf("unknown report kind %q", s)
	}
	return k, nil
}

// days returns the window length in calendar days.
func (k Kind) days() int {
	if k == KindWeekly {
		return 7
	}
	return 1
}

// Report is a sales summary over one window.
type Report struct {
	Kind        Kind
	GeneratedAt time.Time
	WindowStart time.Time
	WindowEnd   time.Time

	Total     int64
	SaleCount int
	// PreviousTotal covers the window of equal length right before WindowStart.
	PreviousTotal int64

	Groups   []GroupTotal // sorted by total DESC, group ASC
	TopItems []ItemTotal  // sorted by total DESC, item ASC
	Sales    []*domain.SaleRecord

	Snapshot *domain.DailySnapshot // nil before the first snapshot
	Forecast *domain.Forecast      // nil before the first snapshot
}

// GroupTotal sums sales of one group.
type GroupTotal struct {
	GroupID int64
	Total   int64
	Count   int
}

// ItemTotal sums sales of one item.
type ItemTotal struct {
	Item  string
	Total int64
	Count int
}

// Title returns a human readable report title.
func (r *Report) Title() string {
	switch r.Kind {
	case KindWeekly:
		return fmt.Sprintf("Weekly sales report %s to %s",
			r.WindowStart.Format(time.DateOnly), r.WindowEnd.Format(time.DateOnly))
	default:
		return fmt.Sprintf("Daily sales report %s", r.WindowStart.Format(time.DateOnly))
	}
}

// AverageSale returns Total / SaleCount rounded to 2 places, zero without sales.
func (r *Report) AverageSale() decimal.Decimal {
	if r.SaleCount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(r.Total).Div(decimal.NewFromInt(int64(r.SaleCount))).Round(2)
}

// ChangePct returns the percent change against the previous window.
// ok is false when the previous window had no sales.
func (r *Report) ChangePct() (pct decimal.Decimal, ok bool) {
	if r.PreviousTotal == 0 {
		return decimal.Zero, false
	}
	prev := decimal.NewFromInt(r.PreviousTotal)
	return decimal.NewFromInt(r.Total).Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(1), true
}

// FormatAmount renders a whole-unit amount with thousands separators.
func FormatAmount(v int64) string {
	s := decimal.NewFromInt(v).Abs().String()
	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// formatChange renders ChangePct as "+12.5%" or "n/a".
func formatChange(r *Report) string {
	pct, ok := r.ChangePct()
	if !ok {
		return "n/a"
	}
	sign := ""
	if pct.IsPositive() {
		sign = "+"
	}
	return sign + pct.StringFixed(1) + "%"
}

// FormatRatio renders a ratio (0.75) as a percent string (75.0%).
func FormatRatio(v float64) string {
	return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}
