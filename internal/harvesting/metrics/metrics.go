package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesStored tracks payloads persisted per source
	PagesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_pages_stored_total",
			Help: "Total number of pages stored",
		},
		[]string{"source"},
	)

	// BytesStored tracks persisted payload bytes per source
	BytesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_bytes_stored_total",
			Help: "Total number of payload bytes stored",
		},
		[]string{"source"},
	)

	// RequestsTotal tracks protocol requests by classified outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_requests_total",
			Help: "Total number of protocol requests",
		},
		[]string{"source", "outcome"},
	)

	// RequestLatency tracks protocol request latency
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvester_request_latency_seconds",
			Help:    "Protocol request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// WaitSignals tracks 503 responses carrying a usable Retry-After
	WaitSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_wait_signals_total",
			Help: "Total number of server wait signals honoured",
		},
		[]string{"source"},
	)

	// WaitSeconds tracks time spent pausing between requests
	WaitSeconds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_wait_seconds_total",
			Help: "Total seconds spent pausing between requests",
		},
		[]string{"source"},
	)

	// RunsFinished tracks finished runs by stop reason
	RunsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_runs_finished_total",
			Help: "Total number of harvest runs finished",
		},
		[]string{"source", "stop"},
	)

	// StorageAvailableBytes tracks the capacity left for payloads
	StorageAvailableBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_storage_available_bytes",
			Help: "Bytes that may still be stored",
		},
	)

	// DBConnectionPoolUsage tracks ledger connection pool usage in percent
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_db_connection_pool_usage",
			Help: "Ledger database connection pool usage percentage",
		},
	)
)
