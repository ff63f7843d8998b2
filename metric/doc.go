// Package metric provides Prometheus metrics management for FeedPulse.
//
// A Registry wraps a private *prometheus.Registry and keeps a named index
// of every collector registered through it, so feeds can register and
// unregister their metrics by (feed, metric) key without collisions.
// Core engine metrics (per-feed status, health, event counters, reconnect
// counters) are created and registered at construction.
//
// Exposition is the host's responsibility: Registry.Handler returns a
// promhttp handler to mount, and nothing in this package opens a listener.
package metric
