package scheduler

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesbot/internal/analytics"
	"salesbot/internal/domain"
	"salesbot/internal/ingestion"
	"salesbot/internal/notify"
	"salesbot/internal/reporting"
	"salesbot/internal/storage/memory"
)

// blockingPoller blocks each cycle until release is closed.
type blockingPoller struct {
	mu      sync.Mutex
	calls   map[int64]int
	started chan int64
	release chan struct{}
	err     error
}

func newBlockingPoller() *blockingPoller {
	return &blockingPoller{
		calls:   make(map[int64]int),
		started: make(chan int64, 16),
		release: make(chan struct{}),
	}
}

func (p *blockingPoller) PollPartition(_ context.Context, groupID int64) (ingestion.CycleResult, error) {
	p.mu.Lock()
	p.calls[groupID]++
	p.mu.Unlock()
	p.started <- groupID
	<-p.release
	return ingestion.CycleResult{GroupID: groupID, Inserted: 2, Alerted: 1}, p.err
}

func (p *blockingPoller) callsFor(groupID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[groupID]
}

// countingAggregator counts runs and optionally blocks.
type countingAggregator struct {
	runs    atomic.Int32
	release chan struct{}
}

func (a *countingAggregator) Run(context.Context) (*analytics.RunResult, error) {
	a.runs.Add(1)
	if a.release != nil {
		<-a.release
	}
	return &analytics.RunResult{Written: true}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (r *recordingNotifier) Notify(_ context.Context, a notify.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[test] ", log.LstdFlags)
}

func TestScheduler_BusyGroupIsSkipped(t *testing.T) {
	poller := newBlockingPoller()
	s := New(Options{Groups: []int64{1, 2}, Poller: poller, Logger: testLogger()})
	ctx := context.Background()

	s.TickPoll(ctx)
	<-poller.started
	<-poller.started

	// Both groups are still running; the second tick must not queue more work.
	s.TickPoll(ctx)
	st := s.Stats()
	assert.Equal(t, 2, st.PollsSkipped)
	assert.Equal(t, 2, st.GroupsPolling)

	close(poller.release)
	s.Wait()

	assert.Equal(t, 1, poller.callsFor(1))
	assert.Equal(t, 1, poller.callsFor(2))

	st = s.Stats()
	assert.Equal(t, 2, st.PollCycles)
	assert.Equal(t, 4, st.SalesStored)
	assert.Equal(t, 2, st.AlertsSent)
	assert.Equal(t, 0, st.GroupsPolling)

	// Released groups run again on the next tick.
	s.TickPoll(ctx)
	s.Wait()
	assert.Equal(t, 2, poller.callsFor(1))
}

func TestScheduler_PollErrorIsCounted(t *testing.T) {
	poller := newBlockingPoller()
	poller.err = errors.New("feed down")
	close(poller.release)

	s := New(Options{Groups: []int64{5}, Poller: poller, Logger: testLogger()})
	s.TickPoll(context.Background())
	s.Wait()

	st := s.Stats()
	assert.Equal(t, 1, st.PollErrors)
	assert.Equal(t, 0, st.SalesStored)
}

func TestScheduler_AggregationSingleFlight(t *testing.T) {
	agg := &countingAggregator{release: make(chan struct{})}
	s := New(Options{Aggregator: agg, Logger: testLogger()})
	ctx := context.Background()

	s.TickAggregate(ctx)
	require.Eventually(t, func() bool { return agg.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.TickAggregate(ctx)
	assert.True(t, s.Stats().AggregateRunning)

	close(agg.release)
	s.Wait()

	assert.Equal(t, int32(1), agg.runs.Load())
	st := s.Stats()
	assert.Equal(t, 1, st.AggregateRuns)
	assert.Equal(t, 1, st.SnapshotsWritten)
	assert.False(t, st.AggregateRunning)
}

func TestScheduler_RunFiresImmediatelyAndStops(t *testing.T) {
	poller := newBlockingPoller()
	close(poller.release)
	agg := &countingAggregator{}

	s := New(Options{
		Groups:            []int64{9},
		Poller:            poller,
		Aggregator:        agg,
		PollInterval:      time.Hour,
		AggregateInterval: time.Hour,
		Logger:            testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return poller.callsFor(9) == 1 && agg.runs.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	s.Wait()
	assert.False(t, s.Stats().StartedAt.IsZero())
}

func TestScheduler_ReportDelivered(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 18, 0, 0, 0, time.UTC)

	sales := memory.NewSaleStore()
	_, err := sales.InsertIfAbsent(ctx, &domain.SaleRecord{
		IDHash: "r1", GroupID: 1, Item: "Hat", Amount: 250, OccurredAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)

	n := &recordingNotifier{}
	s := New(Options{
		Reports:        reporting.NewGenerator(sales, memory.NewSnapshotStore()),
		ReportKind:     reporting.KindDaily,
		Notifier:       n,
		ReportInterval: time.Hour,
		Clock:          func() time.Time { return now },
		Logger:         testLogger(),
	})

	s.TickReport(ctx)
	s.Wait()

	require.Len(t, n.alerts, 1)
	a := n.alerts[0]
	assert.Equal(t, notify.KindReport, a.Kind)
	assert.Equal(t, int64(250), a.Amount)
	assert.Contains(t, a.Body, "| Total | 250 |")
	assert.Equal(t, 1, s.Stats().ReportsSent)
}

func TestScheduler_ReportDisabledWithoutInterval(t *testing.T) {
	n := &recordingNotifier{}
	s := New(Options{
		Reports:  reporting.NewGenerator(memory.NewSaleStore(), memory.NewSnapshotStore()),
		Notifier: n,
		Logger:   testLogger(),
	})

	s.TickReport(context.Background())
	s.Wait()
	assert.Empty(t, n.alerts)
}
