package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/feedpulse/errors"
)

// Registrar defines the interface for registering feed-specific metrics
type Registrar interface {
	RegisterCounter(feedName, metricName string, counter prometheus.Counter) error
	RegisterGauge(feedName, metricName string, gauge prometheus.Gauge) error
	RegisterCounterVec(feedName, metricName string, counterVec *prometheus.CounterVec) error
	RegisterGaugeVec(feedName, metricName string, gaugeVec *prometheus.GaugeVec) error
	Unregister(feedName, metricName string) bool
}

// Registry manages the registration and lifecycle of metrics
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
	registeredMetrics  map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a new metrics registry with core engine metrics
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()

	registry := &Registry{
		prometheusRegistry: prometheusRegistry,
		registeredMetrics:  make(map[string]prometheus.Collector),
	}

	// Initialize and register core metrics
	registry.Metrics = NewMetrics()
	registry.registerMetrics()

	// Add Go runtime metrics
	registry.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the core engine metrics
func (r *Registry) CoreMetrics() *Metrics {
	return r.Metrics
}

// RegisterCounter registers a counter metric for a feed
func (r *Registry) RegisterCounter(feedName, metricName string, counter prometheus.Counter) error {
	return r.register(feedName, metricName, counter, "RegisterCounter")
}

// RegisterGauge registers a gauge metric for a feed
func (r *Registry) RegisterGauge(feedName, metricName string, gauge prometheus.Gauge) error {
	return r.register(feedName, metricName, gauge, "RegisterGauge")
}

// RegisterCounterVec registers a counter vector metric for a feed
func (r *Registry) RegisterCounterVec(feedName, metricName string, counterVec *prometheus.CounterVec) error {
	return r.register(feedName, metricName, counterVec, "RegisterCounterVec")
}

// RegisterGaugeVec registers a gauge vector metric for a feed
func (r *Registry) RegisterGaugeVec(feedName, metricName string, gaugeVec *prometheus.GaugeVec) error {
	return r.register(feedName, metricName, gaugeVec, "RegisterGaugeVec")
}

// register handles the shared bookkeeping for all collector kinds
func (r *Registry) register(feedName, metricName string, collector prometheus.Collector, op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", feedName, metricName)

	if _, exists := r.registeredMetrics[key]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for feed %s", metricName, feedName),
			"Registry", op, "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapInvalid(err, "Registry", op,
				fmt.Sprintf("prometheus conflict for metric %s", metricName))
		}
		return errors.WrapFatal(err, "Registry", op,
			"failed to register collector with prometheus")
	}

	r.registeredMetrics[key] = collector
	return nil
}

// Unregister removes a metric from the registry
func (r *Registry) Unregister(feedName, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", feedName, metricName)

	collector, exists := r.registeredMetrics[key]
	if !exists {
		return false
	}

	success := r.prometheusRegistry.Unregister(collector)
	if success {
		delete(r.registeredMetrics, key)
	}

	return success
}

// registerMetrics registers all core engine metrics
func (r *Registry) registerMetrics() {
	r.prometheusRegistry.MustRegister(
		r.Metrics.FeedStatus,
		r.Metrics.FeedHealth,
		r.Metrics.EventsReceived,
		r.Metrics.EventsDropped,
		r.Metrics.EventsBuffered,
		r.Metrics.ReconnectAttempts,
		r.Metrics.ConsecutiveErrors,
		r.Metrics.UptimeSeconds,
	)
}
