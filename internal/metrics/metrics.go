// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	itemsProcessedTotal   *prometheus.CounterVec
	rowsInsertedTotal     *prometheus.CounterVec
	sessionsAcquiredTotal prometheus.Counter
	sessionRestartsTotal  prometheus.Counter
	activeWorkers         prometheus.Gauge
	interceptWaitSeconds  *prometheus.HistogramVec
	interceptMatchesTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		itemsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendtap_items_processed_total",
				Help: "Total work items processed, labeled by phase and outcome.",
			},
			[]string{"phase", "outcome"},
		)

		rowsInsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendtap_rows_inserted_total",
				Help: "Total rows written, labeled by table and outcome.",
			},
			[]string{"table", "outcome"},
		)

		sessionsAcquiredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trendtap_sessions_acquired_total",
				Help: "Total browser sessions successfully acquired.",
			},
		)

		sessionRestartsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trendtap_session_restarts_total",
				Help: "Total sessions retired after exhausting their request budget.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "trendtap_active_workers",
				Help: "Number of workers currently processing a work item.",
			},
		)

		interceptWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendtap_intercept_wait_seconds",
				Help:    "Histogram of time spent waiting for a matching network response.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50},
			},
			[]string{"phase"},
		)

		interceptMatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendtap_intercept_matches_total",
				Help: "Total interception attempts, labeled by phase and result.",
			},
			[]string{"phase", "result"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItem increments the processed-item counter.
func ObserveItem(phase, outcome string) {
	itemsProcessedTotal.WithLabelValues(phase, outcome).Inc()
}

// ObserveInsert increments the row-insert counter.
func ObserveInsert(table, outcome string) {
	rowsInsertedTotal.WithLabelValues(table, outcome).Inc()
}

// ObserveSessionAcquired increments the session acquisition counter.
func ObserveSessionAcquired() {
	sessionsAcquiredTotal.Inc()
}

// ObserveSessionRestart increments the session restart counter.
func ObserveSessionRestart() {
	sessionRestartsTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveIntercept records the wait duration and result of one interception.
func ObserveIntercept(phase string, matched bool, wait time.Duration) {
	result := "no_data"
	if matched {
		result = "matched"
	}
	interceptMatchesTotal.WithLabelValues(phase, result).Inc()
	interceptWaitSeconds.WithLabelValues(phase).Observe(wait.Seconds())
}
