// Package metrics exposes Prometheus-backed instrumentation for the RTPS
// core. Every metric is optional: when InitRegistry has not been called,
// constructors return nil and every call site that accepts a metrics
// interface treats a nil receiver as "do nothing" so the hot path never
// pays for instrumentation it doesn't use.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates the process-wide Prometheus registry that every
// metrics constructor in this package and pkg/metrics/prometheus registers
// against. Safe to call more than once; later calls are no-ops.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
		enabled = true
	}
	return registry
}

// GetRegistry returns the current registry, or nil if InitRegistry has not
// been called.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// IsEnabled reports whether metrics collection is active.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Reset clears the registry. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
	enabled = false
}
