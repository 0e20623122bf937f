package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"salesbot/internal/analytics"
	"salesbot/internal/storage"
)

// DefaultTopItems is the number of items listed in a report.
const DefaultTopItems = 5

// Generator produces reports from stored data.
type Generator struct {
	saleStore     storage.SaleStore
	snapshotStore storage.SnapshotStore
	loc           *time.Location
	topItems      int
}

// NewGenerator creates a new report generator bucketing days in UTC.
func NewGenerator(saleStore storage.SaleStore, snapshotStore storage.SnapshotStore) *Generator {
	return &Generator{
		saleStore:     saleStore,
		snapshotStore: snapshotStore,
		loc:           time.UTC,
		topItems:      DefaultTopItems,
	}
}

// WithLocation sets the time zone used for window boundaries.
func (g *Generator) WithLocation(loc *time.Location) *Generator {
	if loc != nil {
		g.loc = loc
	}
	return g
}

// WithTopItems sets how many items the report lists.
func (g *Generator) WithTopItems(n int) *Generator {
	if n > 0 {
		g.topItems = n
	}
	return g
}

// Generate builds a report of kind for the window ending at now.
func (g *Generator) Generate(ctx context.Context, kind Kind, now time.Time) (*Report, error) {
	if kind != KindDaily && kind != KindWeekly {
		return nil, fmt.Errorf("generate report: %w: kind %q", storage.ErrInvalidInput, kind)
	}

	local := now.In(g.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc)
	start := today.AddDate(0, 0, -(kind.days() - 1))
	prevStart := start.AddDate(0, 0, -kind.days())

	sales, err := g.saleStore.ListSince(ctx, start, nil)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	// [prevStart, now) minus [start, now) leaves the previous window.
	sincePrev, err := g.saleStore.SumSince(ctx, prevStart, nil)
	if err != nil {
		return nil, fmt.Errorf("sum previous window: %w", err)
	}

	r := &Report{
		Kind:        kind,
		GeneratedAt: now.UTC(),
		WindowStart: start,
		WindowEnd:   local,
		Sales:       sales,
		SaleCount:   len(sales),
	}

	groups := make(map[int64]*GroupTotal)
	items := make(map[string]*ItemTotal)
	for _, s := range sales {
		r.Total += s.Amount

		gt, ok := groups[s.GroupID]
		if !ok {
			gt = &GroupTotal{GroupID: s.GroupID}
			groups[s.GroupID] = gt
		}
		gt.Total += s.Amount
		gt.Count++

		it, ok := items[s.Item]
		if !ok {
			it = &ItemTotal{Item: s.Item}
			items[s.Item] = it
		}
		it.Total += s.Amount
		it.Count++
	}
	r.PreviousTotal = sincePrev - r.Total
	r.Groups = sortedGroups(groups)
	r.TopItems = topItems(items, g.topItems)

	snap, err := g.snapshotStore.Latest(ctx)
	switch {
	case err == nil:
		f := analytics.DeriveForecast(snap)
		r.Snapshot = snap
		r.Forecast = &f
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}

	return r, nil
}

func sortedGroups(m map[int64]*GroupTotal) []GroupTotal {
	out := make([]GroupTotal, 0, len(m))
	for _, g := range m {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].GroupID < out[j].GroupID
	})
	return out
}

func topItems(m map[string]*ItemTotal, n int) []ItemTotal {
	out := make([]ItemTotal, 0, len(m))
	for _, it := range m {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Item < out[j].Item
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
