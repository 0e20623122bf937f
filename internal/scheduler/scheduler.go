// Package scheduler drives the poll, aggregation and report timers and owns the
// in-flight state that keeps ticks from overlapping.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"salesbot/internal/analytics"
	"salesbot/internal/inflight"
	"salesbot/internal/ingestion"
	"salesbot/internal/notify"
	"salesbot/internal/observability"
	"salesbot/internal/reporting"
)

// Default intervals.
const (
	DefaultPollInterval      = 60 * time.Second
	DefaultAggregateInterval = time.Hour
)

// Job names used in logs and metrics.
const (
	jobPoll      = "poll"
	jobAggregate = "aggregate"
	jobReport    = "report"
)

// PartitionPoller runs one poll cycle for a group.
type PartitionPoller interface {
	PollPartition(ctx context.Context, groupID int64) (ingestion.CycleResult, error)
}

// AggregateRunner recomputes the daily snapshot.
type AggregateRunner interface {
	Run(ctx context.Context) (*analytics.RunResult, error)
}

// ReportGenerator builds a report for a window ending at now.
type ReportGenerator interface {
	Generate(ctx context.Context, kind reporting.Kind, now time.Time) (*reporting.Report, error)
}

// Scheduler dispatches timer ticks to the poller, aggregator and report generator.
// A tick never waits for earlier work; a busy group or job is skipped.
type Scheduler struct {
	groups            []int64
	poller            PartitionPoller
	aggregator        AggregateRunner
	reports           ReportGenerator
	reportKind        reporting.Kind
	notifier          notify.Notifier
	pollInterval      time.Duration
	aggregateInterval time.Duration
	reportInterval    time.Duration
	now               func() time.Time
	logger            *log.Logger

	partitions  *inflight.KeyedGuard[int64]
	aggregating inflight.Flag
	reporting   inflight.Flag
	wg          sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// Options contains configuration for creating a Scheduler.
type Options struct {
	Groups     []int64
	Poller     PartitionPoller
	Aggregator AggregateRunner
	// Reports and Notifier enable the report job when ReportInterval > 0.
	Reports           ReportGenerator
	ReportKind        reporting.Kind // Default: daily
	Notifier          notify.Notifier
	PollInterval      time.Duration // Default: 60s
	AggregateInterval time.Duration // Default: 1h
	ReportInterval    time.Duration // Default: 0 (disabled)
	Clock             func() time.Time
	Logger            *log.Logger
}

// New creates a new Scheduler.
func New(opts Options) *Scheduler {
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	aggregateInterval := opts.AggregateInterval
	if aggregateInterval <= 0 {
		aggregateInterval = DefaultAggregateInterval
	}

	reportKind := opts.ReportKind
	if reportKind == "" {
		reportKind = reporting.KindDaily
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Scheduler{
		groups:            opts.Groups,
		poller:            opts.Poller,
		aggregator:        opts.Aggregator,
		reports:           opts.Reports,
		reportKind:        reportKind,
		notifier:          opts.Notifier,
		pollInterval:      pollInterval,
		aggregateInterval: aggregateInterval,
		reportInterval:    opts.ReportInterval,
		now:               now,
		logger:            logger,
		partitions:        inflight.NewKeyedGuard[int64](),
	}
}

// reportsEnabled reports whether the report job is configured.
func (s *Scheduler) reportsEnabled() bool {
	return s.reportInterval > 0 && s.reports != nil && s.notifier != nil
}

// Run fires every job once, then on each tick, until ctx is cancelled.
// Work already dispatched keeps running; use Wait to block on it.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.stats.StartedAt = s.now()
	s.mu.Unlock()

	s.logger.Printf("Starting scheduler: %d group(s), poll every %v, aggregate every %v",
		len(s.groups), s.pollInterval, s.aggregateInterval)

	// Run immediately on start
	s.TickPoll(ctx)
	s.TickAggregate(ctx)

	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	aggregateTicker := time.NewTicker(s.aggregateInterval)
	defer aggregateTicker.Stop()

	var reportC <-chan time.Time
	if s.reportsEnabled() {
		s.logger.Printf("Report job enabled: %s every %v", s.reportKind, s.reportInterval)
		reportTicker := time.NewTicker(s.reportInterval)
		defer reportTicker.Stop()
		reportC = reportTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("Scheduler stopping...")
			return ctx.Err()
		case <-pollTicker.C:
			s.TickPoll(ctx)
		case <-aggregateTicker.C:
			s.TickAggregate(ctx)
		case <-reportC:
			s.TickReport(ctx)
		}
	}
}

// Wait blocks until all dispatched work has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// TickPoll dispatches one poll cycle per group. Groups still running are skipped.
func (s *Scheduler) TickPoll(ctx context.Context) {
	for _, groupID := range s.groups {
		if !s.partitions.TryAcquire(groupID) {
			s.logger.Printf("Group %d poll still running, skipping...", groupID)
			observability.RecordPollSkipped(strconv.FormatInt(groupID, 10))
			s.mu.Lock()
			s.stats.PollsSkipped++
			s.mu.Unlock()
			continue
		}

		s.wg.Add(1)
		go func(groupID int64) {
			defer s.wg.Done()
			defer s.partitions.Release(groupID)
			s.pollGroup(ctx, groupID)
		}(groupID)
	}
}

func (s *Scheduler) pollGroup(ctx context.Context, groupID int64) {
	start := s.now()
	res, err := s.poller.PollPartition(ctx, groupID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.PollCycles++
	s.stats.LastPoll = s.now()
	if err != nil {
		s.stats.PollErrors++
		s.logger.Printf("Poll error: %v", err)
		observability.RecordJobRun(jobPoll, "error", s.now().Sub(start).Seconds())
		return
	}
	s.stats.SalesStored += res.Inserted
	s.stats.AlertsSent += res.Alerted
	observability.RecordJobRun(jobPoll, "success", s.now().Sub(start).Seconds())
}

// TickAggregate dispatches an aggregation run unless one is in flight.
func (s *Scheduler) TickAggregate(ctx context.Context) {
	if s.aggregator == nil {
		return
	}
	if !s.aggregating.TryAcquire() {
		s.logger.Println("Aggregation already running, skipping...")
		observability.RecordJobSkipped(jobAggregate)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.aggregating.Release()
		s.runAggregate(ctx)
	}()
}

func (s *Scheduler) runAggregate(ctx context.Context) {
	start := s.now()
	res, err := s.aggregator.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.LastAggregate = s.now()
	if err != nil {
		s.stats.AggregateErrors++
		s.logger.Printf("Aggregation error: %v", err)
		observability.RecordJobRun(jobAggregate, "error", s.now().Sub(start).Seconds())
		return
	}
	s.stats.AggregateRuns++
	if res != nil && res.Written {
		s.stats.SnapshotsWritten++
	}
	observability.RecordJobRun(jobAggregate, "success", s.now().Sub(start).Seconds())
}

// TickReport dispatches report generation and delivery unless one is in flight.
func (s *Scheduler) TickReport(ctx context.Context) {
	if !s.reportsEnabled() {
		return
	}
	if !s.reporting.TryAcquire() {
		s.logger.Println("Report generation already running, skipping...")
		observability.RecordJobSkipped(jobReport)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.reporting.Release()

		start := s.now()
		err := s.sendReport(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.stats.LastReport = s.now()
		if err != nil {
			s.stats.ReportErrors++
			s.logger.Printf("Report error: %v", err)
			observability.RecordJobRun(jobReport, "error", s.now().Sub(start).Seconds())
			return
		}
		s.stats.ReportsSent++
		observability.RecordJobRun(jobReport, "success", s.now().Sub(start).Seconds())
	}()
}

func (s *Scheduler) sendReport(ctx context.Context) error {
	r, err := s.reports.Generate(ctx, s.reportKind, s.now())
	if err != nil {
		return fmt.Errorf("generate %s report: %w", s.reportKind, err)
	}

	err = s.notifier.Notify(ctx, notify.Alert{
		Kind:      notify.KindReport,
		Title:     r.Title(),
		Amount:    r.Total,
		Timestamp: r.GeneratedAt,
		Body:      reporting.RenderMarkdown(r),
	})
	observability.RecordAlert(string(notify.KindReport), err)
	if err != nil {
		return fmt.Errorf("deliver %s report: %w", s.reportKind, err)
	}
	return nil
}
