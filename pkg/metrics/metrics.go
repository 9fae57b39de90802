package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records auth operations (register|login) by result.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodbridge_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"operation", "result"},
	)

	// ListingTransitions counts listing status transitions by target status and outcome.
	ListingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodbridge_listing_transitions_total",
			Help: "Total number of listing status transitions",
		},
		[]string{"to", "result"},
	)

	// NotificationsDispatched counts notification deliveries by channel and outcome.
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodbridge_notifications_dispatched_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"channel", "result"},
	)

	// RealtimeConnections tracks currently registered websocket channels.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodbridge_realtime_connections",
			Help: "Number of live realtime channels",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodbridge_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
