package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all engine-level metrics (not feed-type specific)
type Metrics struct {
	FeedStatus        *prometheus.GaugeVec
	FeedHealth        *prometheus.GaugeVec
	EventsReceived    *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	EventsBuffered    *prometheus.GaugeVec
	ReconnectAttempts *prometheus.CounterVec
	ConsecutiveErrors *prometheus.GaugeVec
	UptimeSeconds     *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		FeedStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "feedpulse",
				Subsystem: "feed",
				Name:      "status",
				Help: "Feed connection status " +
					"(0=idle, 1=connecting, 2=connected, 3=paused, 4=offline, 5=error, 6=reconnecting)",
			},
			[]string{"feed"},
		),

		FeedHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "feedpulse",
				Subsystem: "feed",
				Name:      "health",
				Help:      "Feed health classification (0=idle, 1=critical, 2=degraded, 3=good, 4=excellent)",
			},
			[]string{"feed"},
		),

		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedpulse",
				Subsystem: "events",
				Name:      "received_total",
				Help:      "Total number of events retained after dedup and validation",
			},
			[]string{"feed"},
		),

		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedpulse",
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Total number of events dropped by reason",
			},
			[]string{"feed", "reason"},
		),

		EventsBuffered: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "feedpulse",
				Subsystem: "events",
				Name:      "buffered",
				Help:      "Number of events currently held in the pause buffer",
			},
			[]string{"feed"},
		),

		ReconnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedpulse",
				Subsystem: "connection",
				Name:      "reconnect_attempts_total",
				Help:      "Total number of reconnection attempts",
			},
			[]string{"feed"},
		),

		ConsecutiveErrors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "feedpulse",
				Subsystem: "connection",
				Name:      "consecutive_errors",
				Help:      "Consecutive transport errors since the last successful open",
			},
			[]string{"feed"},
		),

		UptimeSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "feedpulse",
				Subsystem: "connection",
				Name:      "uptime_seconds",
				Help:      "Seconds since the last successful open",
			},
			[]string{"feed"},
		),
	}
}
