package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wetalk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wetalk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Realtime chat
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wetalk",
			Subsystem: "chat",
			Name:      "active_connections",
			Help:      "Number of open chat connections",
		},
	)

	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wetalk",
			Subsystem: "chat",
			Name:      "messages_persisted_total",
			Help:      "Messages appended to the log",
		},
	)

	FanoutFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wetalk",
			Subsystem: "chat",
			Name:      "fanout_failures_total",
			Help:      "Events that could not be published after the message was stored",
		},
		[]string{"event"},
	)

	FramesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wetalk",
			Subsystem: "chat",
			Name:      "frames_rejected_total",
			Help:      "Inbound frames answered with an error frame",
		},
		[]string{"reason"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wetalk",
			Subsystem: "chat",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a connection send queue was full",
		},
	)

	// Presence
	PresenceSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wetalk",
			Subsystem: "presence",
			Name:      "swept_total",
			Help:      "Stale presence records removed",
		},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wetalk",
			Subsystem: "presence",
			Name:      "sweep_runs_total",
			Help:      "Presence sweep runs by outcome",
		},
		[]string{"status"},
	)
)
