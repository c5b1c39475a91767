// Package metrics defines the observability interfaces used by the server
// and owns the process-wide Prometheus registry.
//
// Collection is opt-in: until InitRegistry is called, IsEnabled reports
// false and constructors in metrics/prometheus return nil, which every
// recorder method treats as a no-op.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the registry with Go runtime and process collectors.
// Calling it again returns the existing registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler serves the registry in the Prometheus exposition format.
// It returns nil when metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Reset drops the registry. Tests use it to start from a clean slate.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
}
