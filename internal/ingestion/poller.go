// Package ingestion polls the transactions feed and stores new sales.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"salesbot/internal/domain"
	"salesbot/internal/feed"
	"salesbot/internal/idhash"
	"salesbot/internal/inflight"
	"salesbot/internal/notify"
	"salesbot/internal/observability"
	"salesbot/internal/storage"
)

// DefaultLimit is the number of newest transactions fetched per group each cycle.
const DefaultLimit = 10

// Publisher receives every newly stored sale (live dashboard feed).
type Publisher interface {
	Publish(r *domain.SaleRecord)
}

// Poller runs one fetch-and-store cycle per group.
type Poller struct {
	source    feed.Source
	saleStore storage.SaleStore
	notifier  notify.Notifier
	publisher Publisher
	seen      *inflight.SeenCache
	threshold int64
	limit     int
	now       func() time.Time
	logger    *log.Logger
}

// PollerOptions contains configuration for creating a Poller.
type PollerOptions struct {
	Source    feed.Source
	SaleStore storage.SaleStore
	Notifier  notify.Notifier // Optional: nil disables alerts
	Publisher Publisher       // Optional
	Threshold int64           // Minimum amount that triggers an alert
	Limit     int             // Default: DefaultLimit
	SeenTTL   time.Duration   // Default: inflight.DefaultSeenTTL
	Clock     func() time.Time
	Logger    *log.Logger
}

// NewPoller creates a new Poller.
func NewPoller(opts PollerOptions) *Poller {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Poller{
		source:    opts.Source,
		saleStore: opts.SaleStore,
		notifier:  opts.Notifier,
		publisher: opts.Publisher,
		seen:      inflight.NewSeenCacheWithClock(opts.SeenTTL, now),
		threshold: opts.Threshold,
		limit:     limit,
		now:       now,
		logger:    logger,
	}
}

// CycleResult summarizes one poll cycle for a group.
type CycleResult struct {
	GroupID    int64
	Fetched    int
	Assets     int
	Inserted   int
	Duplicates int
	Failed     int
	Alerted    int
}

// PollPartition fetches the newest transactions of groupID and stores the new asset sales.
// A feed error aborts the cycle and is returned. Per-record store and notifier errors are
// logged and the cycle continues.
func (p *Poller) PollPartition(ctx context.Context, groupID int64) (CycleResult, error) {
	result := CycleResult{GroupID: groupID}
	start := p.now()
	group := strconv.FormatInt(groupID, 10)

	txs, err := p.source.RecentTransactions(ctx, groupID, p.limit)
	if err != nil {
		observability.RecordPollError("fetch")
		return result, fmt.Errorf("poll group %d: %w", groupID, err)
	}
	result.Fetched = len(txs)

	for _, tx := range OldestFirst(txs) {
		if !tx.IsAsset() {
			continue
		}
		result.Assets++

		rec := tx.ToSaleRecord(groupID)
		inserted, err := p.saleStore.InsertIfAbsent(ctx, rec)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				result.Duplicates++
				continue
			}
			p.logger.Printf("Failed to store sale %s (group %d): %v", idhash.ShortRef(rec.IDHash), groupID, err)
			observability.RecordPollError("insert")
			result.Failed++
			continue
		}
		if !inserted {
			result.Duplicates++
			continue
		}
		result.Inserted++

		if p.publisher != nil {
			p.publisher.Publish(rec)
		}

		if p.shouldAlert(rec) {
			if err := p.alert(ctx, rec); err != nil {
				p.logger.Printf("Failed to send alert for sale %s: %v", idhash.ShortRef(rec.IDHash), err)
				observability.RecordPollError("notify")
				continue
			}
			result.Alerted++
		}
	}

	observability.RecordPoll(group, result.Fetched, result.Inserted, result.Duplicates,
		p.now().Sub(start).Seconds(), p.now().Unix())

	if result.Inserted > 0 {
		p.logger.Printf("Group %d: %d new sales (%d fetched, %d duplicates, %d alerts)",
			groupID, result.Inserted, result.Fetched, result.Duplicates, result.Alerted)
	}
	return result, nil
}

// shouldAlert gates alerts on the threshold and the seen marker.
// The marker is only set for sales that pass the threshold.
func (p *Poller) shouldAlert(rec *domain.SaleRecord) bool {
	if p.notifier == nil || rec.Amount < p.threshold {
		return false
	}
	return p.seen.Mark(rec.IDHash)
}

func (p *Poller) alert(ctx context.Context, rec *domain.SaleRecord) error {
	err := p.notifier.Notify(ctx, notify.Alert{
		Kind:      notify.KindSale,
		Title:     "New sale",
		Item:      rec.Item,
		Amount:    rec.Amount,
		GroupID:   rec.GroupID,
		Timestamp: rec.OccurredAt,
		Ref:       idhash.ShortRef(rec.IDHash),
	})
	observability.RecordAlert(string(notify.KindSale), err)
	return err
}
