package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingest metrics
	WatchedSYNsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "knockd_watched_syns_total",
			Help: "Total number of SYN packets observed on watched ports",
		},
	)

	MatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knockd_matches_total",
			Help: "Total number of completed knock sequences by rule",
		},
		[]string{"rule"},
	)

	// Detector state metrics
	TrackedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "knockd_tracked_clients",
			Help: "Number of clients with a partial knock sequence in flight",
		},
	)

	ActiveGrants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "knockd_active_grants",
			Help: "Number of active (client, rule) grants awaiting deactivation",
		},
	)

	// Command execution metrics
	CommandFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knockd_command_failures_total",
			Help: "Total number of failed commands by kind",
		},
		[]string{"kind"},
	)

	CommandDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "knockd_command_duration_seconds",
			Help:    "Command execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(WatchedSYNsTotal)
	prometheus.MustRegister(MatchesTotal)
	prometheus.MustRegister(TrackedClients)
	prometheus.MustRegister(ActiveGrants)
	prometheus.MustRegister(CommandFailuresTotal)
	prometheus.MustRegister(CommandDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
