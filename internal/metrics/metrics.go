package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh metrics
var (
	// RefreshTotal counts refresh cycles by outcome (success/failure/panic).
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_refresh_total",
			Help: "Weather refresh cycles by status",
		},
		[]string{"status"},
	)

	// RefreshDuration tracks refresh cycle latency in seconds.
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weather_refresh_duration_seconds",
			Help:    "Weather refresh cycle duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// CircuitBreakerState tracks provider breaker state (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_circuit_breaker_state",
			Help: "Current provider circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)
)

// Broadcast metrics
var (
	BroadcastSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_subscribers",
			Help: "Number of active snapshot stream subscribers",
		},
	)

	// BroadcastDeliveries counts per-subscriber deliveries by status (ok/failed).
	BroadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Snapshot deliveries to stream subscribers by status",
		},
		[]string{"status"},
	)
)

// Relay metrics
var (
	RelaySessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_sessions",
			Help: "Number of connected relay sessions",
		},
	)

	RelayMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Messages received for relay fan-out",
		},
	)

	RelayDeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_delivery_failures_total",
			Help: "Relay forwards that failed for a single recipient",
		},
	)
)

// ChimePlaybacks counts chime playbacks by status (ok/failed).
var ChimePlaybacks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chime_playbacks_total",
		Help: "Doorbell chime playbacks by status",
	},
	[]string{"status"},
)
