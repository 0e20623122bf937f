package scheduler

import "time"

// Stats are cumulative counters exposed on /status.
type Stats struct {
	StartedAt time.Time `json:"started_at"`

	PollCycles   int       `json:"poll_cycles"`
	PollErrors   int       `json:"poll_errors"`
	PollsSkipped int       `json:"polls_skipped"`
	SalesStored  int       `json:"sales_stored"`
	AlertsSent   int       `json:"alerts_sent"`
	LastPoll     time.Time `json:"last_poll,omitempty"`

	AggregateRuns    int       `json:"aggregate_runs"`
	AggregateErrors  int       `json:"aggregate_errors"`
	SnapshotsWritten int       `json:"snapshots_written"`
	LastAggregate    time.Time `json:"last_aggregate,omitempty"`

	ReportsSent  int       `json:"reports_sent"`
	ReportErrors int       `json:"report_errors"`
	LastReport   time.Time `json:"last_report,omitempty"`

	// Snapshot of in-flight state at read time.
	GroupsPolling    int  `json:"groups_polling"`
	AggregateRunning bool `json:"aggregate_running"`
	ReportRunning    bool `json:"report_running"`
}

// Stats returns a copy of the counters with the current in-flight state.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	st := s.stats
	s.mu.Unlock()

	st.GroupsPolling = s.partitions.Len()
	st.AggregateRunning = s.aggregating.Running()
	st.ReportRunning = s.reporting.Running()
	return st
}

// Groups returns the polled group ids.
func (s *Scheduler) Groups() []int64 {
	out := make([]int64, len(s.groups))
	copy(out, s.groups)
	return out
}
