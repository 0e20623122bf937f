// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Poller metrics
	TransactionsFetched *prometheus.CounterVec
	SalesStored         *prometheus.CounterVec
	SalesDuplicate      prometheus.Counter
	PollErrors          *prometheus.CounterVec
	PollSkipped         *prometheus.CounterVec
	PollDuration        *prometheus.HistogramVec

	// Notifier metrics
	AlertsSent   *prometheus.CounterVec
	AlertsFailed *prometheus.CounterVec

	// Job metrics
	JobRunsTotal *prometheus.CounterVec
	JobDuration  *prometheus.HistogramVec
	JobSkipped   *prometheus.CounterVec

	// Analytics metrics
	LatestMovingAverage prometheus.Gauge
	LatestTrend         prometheus.Gauge
	LatestVolatility    prometheus.Gauge
	AnomaliesDetected   prometheus.Counter

	// Live feed metrics
	LiveSubscribers prometheus.Gauge

	// Health metrics
	LastSuccessfulPoll      prometheus.Gauge
	LastSuccessfulAggregate prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "salesbot"
	}

	return &Metrics{
		TransactionsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "transactions_fetched_total",
			Help:      "Total number of feed transactions fetched by group",
		}, []string{"group"}),
		SalesStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "sales_stored_total",
			Help:      "Total number of new sales stored by group",
		}, []string{"group"}),
		SalesDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "sales_duplicate_total",
			Help:      "Total number of fetched sales already stored",
		}),
		PollErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "errors_total",
			Help:      "Total number of poll errors by stage",
		}, []string{"stage"}),
		PollSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "skipped_total",
			Help:      "Total number of poll ticks skipped because the group was busy",
		}, []string{"group"}),
		PollDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cycle_duration_seconds",
			Help:      "Poll cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"group"}),

		AlertsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "alerts_sent_total",
			Help:      "Total number of alerts delivered by kind",
		}, []string{"kind"}),
		AlertsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "alerts_failed_total",
			Help:      "Total number of alert deliveries that failed by kind",
		}, []string{"kind"}),

		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Total number of scheduled job runs by status",
		}, []string{"job", "status"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "duration_seconds",
			Help:      "Scheduled job duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"job"}),
		JobSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "skipped_total",
			Help:      "Total number of job ticks skipped because a run was in flight",
		}, []string{"job"}),

		LatestMovingAverage: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "moving_average_7",
			Help:      "Seven day moving average of the latest snapshot",
		}),
		LatestTrend: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "trend",
			Help:      "Trend of the latest snapshot",
		}),
		LatestVolatility: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "volatility",
			Help:      "Population standard deviation of the latest snapshot window",
		}),
		AnomaliesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "anomalies_detected_total",
			Help:      "Total number of anomalous days recorded",
		}),

		LiveSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "web",
			Name:      "live_subscribers",
			Help:      "Current number of live feed websocket subscribers",
		}),

		LastSuccessfulPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_poll_timestamp",
			Help:      "Unix timestamp of last successful poll cycle",
		}),
		LastSuccessfulAggregate: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_aggregate_timestamp",
			Help:      "Unix timestamp of last successful aggregation run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPoll records a finished poll cycle for a group.
func RecordPoll(group string, fetched, stored, duplicates int, seconds float64, unixNow int64) {
	DefaultMetrics.TransactionsFetched.WithLabelValues(group).Add(float64(fetched))
	DefaultMetrics.SalesStored.WithLabelValues(group).Add(float64(stored))
	DefaultMetrics.SalesDuplicate.Add(float64(duplicates))
	DefaultMetrics.PollDuration.WithLabelValues(group).Observe(seconds)
	DefaultMetrics.LastSuccessfulPoll.Set(float64(unixNow))
}

// RecordPollError records a poll error at the given stage (fetch, insert, notify).
func RecordPollError(stage string) {
	DefaultMetrics.PollErrors.WithLabelValues(stage).Inc()
}

// RecordPollSkipped records a poll tick skipped for a busy group.
func RecordPollSkipped(group string) {
	DefaultMetrics.PollSkipped.WithLabelValues(group).Inc()
}

// RecordAlert records an alert delivery attempt.
func RecordAlert(kind string, err error) {
	if err != nil {
		DefaultMetrics.AlertsFailed.WithLabelValues(kind).Inc()
		return
	}
	DefaultMetrics.AlertsSent.WithLabelValues(kind).Inc()
}

// RecordJobRun records a scheduled job run.
func RecordJobRun(job, status string, durationSeconds float64) {
	DefaultMetrics.JobRunsTotal.WithLabelValues(job, status).Inc()
	DefaultMetrics.JobDuration.WithLabelValues(job).Observe(durationSeconds)
}

// RecordJobSkipped records a job tick skipped because a run was in flight.
func RecordJobSkipped(job string) {
	DefaultMetrics.JobSkipped.WithLabelValues(job).Inc()
}

// UpdateSnapshot publishes the latest snapshot statistics.
func UpdateSnapshot(movingAverage, trend, volatility float64, unixNow int64) {
	DefaultMetrics.LatestMovingAverage.Set(movingAverage)
	DefaultMetrics.LatestTrend.Set(trend)
	DefaultMetrics.LatestVolatility.Set(volatility)
	DefaultMetrics.LastSuccessfulAggregate.Set(float64(unixNow))
}

// RecordAnomaly increments the anomalies counter.
func RecordAnomaly() {
	DefaultMetrics.AnomaliesDetected.Inc()
}

// SetLiveSubscribers updates the live feed subscriber gauge.
func SetLiveSubscribers(n int) {
	DefaultMetrics.LiveSubscribers.Set(float64(n))
}
