package analytics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"salesbot/internal/domain"
	"salesbot/internal/notify"
	"salesbot/internal/observability"
	"salesbot/internal/storage"
)

// Aggregator recomputes the daily snapshot from stored sales.
type Aggregator struct {
	saleStore     storage.SaleStore
	snapshotStore storage.SnapshotStore
	anomalyStore  storage.AnomalyStore
	mirrors       []storage.SnapshotStore
	anomalyMirror []storage.AnomalyStore
	notifier      notify.Notifier
	now           func() time.Time
	logger        *log.Logger
}

// AggregatorOptions contains configuration for creating an Aggregator.
type AggregatorOptions struct {
	SaleStore     storage.SaleStore
	SnapshotStore storage.SnapshotStore
	// AnomalyStore enables the two-sigma spike rule when set.
	AnomalyStore storage.AnomalyStore
	// Mirrors receive a copy of every snapshot (e.g. ClickHouse). Failures are logged only.
	Mirrors []storage.SnapshotStore
	// AnomalyMirrors receive a copy of every newly recorded anomaly. Failures are logged only.
	AnomalyMirrors []storage.AnomalyStore
	// Notifier receives anomaly alerts. Optional.
	Notifier notify.Notifier
	Clock    func() time.Time
	Logger   *log.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Aggregator{
		saleStore:     opts.SaleStore,
		snapshotStore: opts.SnapshotStore,
		anomalyStore:  opts.AnomalyStore,
		mirrors:       opts.Mirrors,
		anomalyMirror: opts.AnomalyMirrors,
		notifier:      opts.Notifier,
		now:           now,
		logger:        logger,
	}
}

// RunResult contains results from one aggregation run.
type RunResult struct {
	Days     int
	Written  bool
	Snapshot *domain.DailySnapshot
	Anomaly  *domain.Anomaly // set only when a new anomaly was recorded
}

// Run reads all daily totals and upserts the snapshot for the most recent day.
// With fewer than domain.SnapshotWindow days nothing is written.
func (a *Aggregator) Run(ctx context.Context) (*RunResult, error) {
	totals, err := a.saleStore.DailyTotals(ctx, time.Time{}, nil)
	if err != nil {
		return nil, fmt.Errorf("load daily totals: %w", err)
	}

	result := &RunResult{Days: len(totals)}

	snap, ok := ComputeSnapshot(totals)
	if !ok {
		a.logger.Printf("Only %d day(s) of sales, need %d; skipping snapshot", len(totals), domain.SnapshotWindow)
		return result, nil
	}
	snap.UpdatedAt = a.now().UTC()

	if err := a.snapshotStore.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("upsert snapshot: %w", err)
	}
	result.Written = true
	result.Snapshot = snap
	observability.UpdateSnapshot(snap.MovingAverage7, snap.Trend, snap.Volatility, a.now().Unix())

	for _, m := range a.mirrors {
		if err := m.Upsert(ctx, snap); err != nil {
			a.logger.Printf("Failed to mirror snapshot for %s: %v", snap.Date.Format(time.DateOnly), err)
		}
	}

	if a.anomalyStore != nil {
		anomaly, err := a.detectAnomaly(ctx, snap)
		if err != nil {
			return result, fmt.Errorf("record anomaly: %w", err)
		}
		result.Anomaly = anomaly
	}

	a.logger.Printf("Snapshot %s: total=%d ma7=%.2f trend=%.4f volatility=%.2f",
		snap.Date.Format(time.DateOnly), snap.Total, snap.MovingAverage7, snap.Trend, snap.Volatility)

	return result, nil
}

// detectAnomaly records and announces a spike for the snapshot day.
// Returns nil when the day is normal or already flagged.
func (a *Aggregator) detectAnomaly(ctx context.Context, snap *domain.DailySnapshot) (*domain.Anomaly, error) {
	if !IsAnomalous(snap) {
		return nil, nil
	}

	threshold := AnomalyThreshold(snap)
	anomaly := &domain.Anomaly{
		ID:         uuid.NewString(),
		Date:       snap.Date,
		Value:      snap.Total,
		Threshold:  threshold,
		Reason:     fmt.Sprintf("daily total %d exceeds ma7 + 2*volatility (%.2f)", snap.Total, threshold),
		DetectedAt: a.now().UTC(),
	}

	inserted, err := a.anomalyStore.InsertIfAbsent(ctx, anomaly)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, nil
		}
		return nil, err
	}
	if !inserted {
		return nil, nil
	}
	observability.RecordAnomaly()

	for _, m := range a.anomalyMirror {
		if _, err := m.InsertIfAbsent(ctx, anomaly); err != nil {
			a.logger.Printf("Failed to mirror anomaly for %s: %v", anomaly.Date.Format(time.DateOnly), err)
		}
	}

	if a.notifier != nil {
		err := a.notifier.Notify(ctx, notify.Alert{
			Kind:      notify.KindAnomaly,
			Title:     "Sales anomaly",
			Amount:    snap.Total,
			Timestamp: anomaly.DetectedAt,
			Body:      fmt.Sprintf("%s: %s", snap.Date.Format(time.DateOnly), anomaly.Reason),
		})
		observability.RecordAlert(string(notify.KindAnomaly), err)
		if err != nil {
			a.logger.Printf("Failed to send anomaly alert: %v", err)
		}
	}

	return anomaly, nil
}
