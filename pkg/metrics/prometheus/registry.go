package prometheus

import (
	"time"

	"github.com/marmos91/dittobox/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// registryMetrics is the Prometheus implementation for the client registry.
type registryMetrics struct {
	operations *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	clients    *prometheus.GaugeVec
}

// NewRegistryMetrics returns nil if metrics are not enabled.
func NewRegistryMetrics() metrics.RegistryMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	f := promauto.With(metrics.GetRegistry())

	return &registryMetrics{
		operations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dittobox_registry_operation_duration_seconds",
			Help:    "Client registry operation latency by store and operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dittobox_registry_errors_total",
			Help: "Failed client registry operations",
		}, []string{"store", "operation"}),
		clients: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dittobox_registry_known_clients",
			Help: "Number of distinct client identities recorded",
		}, []string{"store"}),
	}
}

func (m *registryMetrics) RecordRegistryOperation(store, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(store, operation).Observe(duration.Seconds())
	if err != nil {
		m.errors.WithLabelValues(store, operation).Inc()
	}
}

func (m *registryMetrics) SetKnownClients(store string, count int) {
	if m == nil {
		return
	}
	m.clients.WithLabelValues(store).Set(float64(count))
}
