// Package metrics provides Prometheus metrics for the balance ledger.
// Scrape these at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_snapshots_recorded_total",
			Help: "Total number of balance snapshots written",
		},
		[]string{"history_type"},
	)

	SnapshotsPurgedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_snapshots_purged_total",
			Help: "Total number of balance snapshots removed after leaving their retention window",
		},
		[]string{"history_type"},
	)

	PersistenceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_persistence_errors_total",
			Help: "Backend failures by store operation",
		},
		[]string{"operation"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_query_duration_seconds",
			Help:    "Balance history query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"history_type"},
	)
)
