package metrics

import "time"

// HistoryCacheMetrics observes HistoryCache activity on one endpoint.
// A nil HistoryCacheMetrics is valid and every Observe*/Record* call
// becomes a no-op; implementations wrap prometheus collectors obtained
// from pkg/metrics/prometheus.
type HistoryCacheMetrics interface {
	ObserveAdd(endpointKind string, duration time.Duration)
	ObserveRemove(endpointKind string, duration time.Duration)
	RecordCacheSize(endpointKind string, changes int)
	RecordResourceLimitHit(endpointKind, limit string)
}

// newPrometheusHistoryCacheMetrics is registered by
// pkg/metrics/prometheus/dds.go to avoid an import cycle between this
// package (which defines the interface) and the concrete implementation
// (which depends on client_golang).
var newPrometheusHistoryCacheMetrics func() HistoryCacheMetrics

// RegisterHistoryCacheMetricsConstructor is called from package init in
// pkg/metrics/prometheus.
func RegisterHistoryCacheMetricsConstructor(constructor func() HistoryCacheMetrics) {
	newPrometheusHistoryCacheMetrics = constructor
}

// NewHistoryCacheMetrics returns a Prometheus-backed HistoryCacheMetrics,
// or nil when metrics are disabled.
func NewHistoryCacheMetrics() HistoryCacheMetrics {
	if !IsEnabled() || newPrometheusHistoryCacheMetrics == nil {
		return nil
	}
	return newPrometheusHistoryCacheMetrics()
}

// ObserveAdd is a nil-safe helper for call sites holding an interface
// value that might be nil.
func ObserveAdd(m HistoryCacheMetrics, endpointKind string, d time.Duration) {
	if m != nil {
		m.ObserveAdd(endpointKind, d)
	}
}

// ObserveRemove is the nil-safe counterpart of ObserveAdd.
func ObserveRemove(m HistoryCacheMetrics, endpointKind string, d time.Duration) {
	if m != nil {
		m.ObserveRemove(endpointKind, d)
	}
}

// RecordCacheSize is the nil-safe counterpart of RecordCacheSize.
func RecordCacheSize(m HistoryCacheMetrics, endpointKind string, changes int) {
	if m != nil {
		m.RecordCacheSize(endpointKind, changes)
	}
}

// RecordResourceLimitHit is the nil-safe counterpart of RecordResourceLimitHit.
func RecordResourceLimitHit(m HistoryCacheMetrics, endpointKind, limit string) {
	if m != nil {
		m.RecordResourceLimitHit(endpointKind, limit)
	}
}
