package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/traceforge/traceforge/pkg/config"
	"github.com/traceforge/traceforge/pkg/storage"
)

// StorageCollector registers Prometheus metrics over a storage manager's
// failover counters.
type StorageCollector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry
	manager  *storage.Manager
}

// NewStorageCollector creates a collector for the given manager and
// registers its metrics. If registry is nil, a new registry is created.
func NewStorageCollector(cfg *config.MetricsConfig, registry *prometheus.Registry, manager *storage.Manager) *StorageCollector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &StorageCollector{
		config:   cfg,
		registry: registry,
		manager:  manager,
	}

	counter := func(name, help string, value func(storage.Metrics) int64) prometheus.CounterFunc {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(value(manager.GetMetrics()))
		})
	}

	registry.MustRegister(
		counter("primary_successes_total",
			"Operations persisted by the primary backend.",
			func(m storage.Metrics) int64 { return m.PrimarySuccesses }),
		counter("primary_failures_total",
			"Operations that exhausted primary backend retries.",
			func(m storage.Metrics) int64 { return m.PrimaryFailures }),
		counter("fallback_successes_total",
			"Operations persisted by a fallback backend after primary failure.",
			func(m storage.Metrics) int64 { return m.FallbackSuccesses }),
		counter("fallback_failures_total",
			"Fallback backend attempts that failed.",
			func(m storage.Metrics) int64 { return m.FallbackFailures }),
	)

	return c
}

// Registry returns the Prometheus registry holding the storage metrics.
func (c *StorageCollector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint,
// typically mounted at "/metrics".
func (c *StorageCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
