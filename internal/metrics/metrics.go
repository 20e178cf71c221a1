package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DepositsStarted tracks confirm attempts that passed validation
	DepositsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_deposits_started_total",
			Help: "Total number of deposit workflows that reached the build step",
		},
		[]string{"asset"},
	)

	// DepositsFinished tracks terminal workflow outcomes
	DepositsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_deposits_finished_total",
			Help: "Total number of deposit workflows that reached a terminal state",
		},
		[]string{"asset", "outcome"},
	)

	// BackendRequests tracks backend API calls
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_backend_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"endpoint", "status"},
	)

	// BackendLatency tracks backend API latency
	BackendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_backend_latency_seconds",
			Help:    "Backend API latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// QuoteRequests tracks quote lookups by result (hit, fetched, stale, error)
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_quote_requests_total",
			Help: "Total number of quote lookups",
		},
		[]string{"result"},
	)

	// AssociationAttempts tracks address association outcomes
	AssociationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_association_attempts_total",
			Help: "Total number of address association attempts",
		},
		[]string{"chain", "outcome"},
	)

	// ConfirmationLatency tracks time from broadcast to terminal status
	ConfirmationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_confirmation_seconds",
			Help:    "Time from broadcast to confirmation in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"chain"},
	)

	// DBConnectionPoolUsage tracks journal connection pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_db_connection_pool_usage_percent",
			Help: "Percentage of open connections in the journal pool",
		},
	)
)
