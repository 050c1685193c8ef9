package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Push channel metrics
var (
	// ConnectionsCurrent tracks live push connections
	ConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_connections_current",
			Help: "Current number of live push connections",
		},
	)

	// ConnectionsTotal tracks every accepted push connection
	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_connections_total",
			Help: "Total push connections accepted",
		},
	)

	// UpdatesTotal tracks update cycles by trigger (tick, forced) and result
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_updates_total",
			Help: "Update cycles by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	// UpdateDuration tracks the time spent building one update payload
	UpdateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_update_duration_seconds",
			Help:    "Time spent building one update payload",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// UpdatePanicsTotal tracks recovered panics in update cycles
	UpdatePanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_update_panics_total",
			Help: "Recovered panics inside update cycles",
		},
	)
)

// Config change metrics
var (
	// ConfigChangesTotal tracks dispatched config changes by trigger source
	ConfigChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_config_changes_total",
			Help: "Dispatched config changes by source",
		},
		[]string{"source"},
	)
)

// Provider metrics
var (
	// ProviderFetchesTotal tracks provider calls by provider, endpoint and outcome
	ProviderFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_provider_fetches_total",
			Help: "Provider calls by provider, endpoint and outcome",
		},
		[]string{"provider", "endpoint", "status"},
	)

	// StockCacheTotal tracks stock cache lookups by result (hit, miss, bypass)
	StockCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_stock_cache_total",
			Help: "Stock cache lookups by result",
		},
		[]string{"result"},
	)
)

// Storage metrics
var (
	// SnapshotWritesTotal tracks snapshot history writes by status
	SnapshotWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_snapshot_writes_total",
			Help: "Snapshot history writes by status",
		},
		[]string{"status"},
	)
)
