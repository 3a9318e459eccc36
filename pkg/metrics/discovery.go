package metrics

// DiscoveryMetrics observes SPDP/SEDP activity and endpoint matching.
// Nil-safe like HistoryCacheMetrics.
type DiscoveryMetrics interface {
	RecordParticipantsDiscovered(count int)
	RecordMatchedEndpoints(kind string, count int)
	RecordLeaseExpired()
	RecordIncompatibleQoS(policy string)
}

var newPrometheusDiscoveryMetrics func() DiscoveryMetrics

// RegisterDiscoveryMetricsConstructor is called from package init in
// pkg/metrics/prometheus.
func RegisterDiscoveryMetricsConstructor(constructor func() DiscoveryMetrics) {
	newPrometheusDiscoveryMetrics = constructor
}

// NewDiscoveryMetrics returns a Prometheus-backed DiscoveryMetrics, or nil
// when metrics are disabled.
func NewDiscoveryMetrics() DiscoveryMetrics {
	if !IsEnabled() || newPrometheusDiscoveryMetrics == nil {
		return nil
	}
	return newPrometheusDiscoveryMetrics()
}

// RecordParticipantsDiscovered is the nil-safe counterpart.
func RecordParticipantsDiscovered(m DiscoveryMetrics, count int) {
	if m != nil {
		m.RecordParticipantsDiscovered(count)
	}
}

// RecordMatchedEndpoints is the nil-safe counterpart.
func RecordMatchedEndpoints(m DiscoveryMetrics, kind string, count int) {
	if m != nil {
		m.RecordMatchedEndpoints(kind, count)
	}
}

// RecordLeaseExpired is the nil-safe counterpart.
func RecordLeaseExpired(m DiscoveryMetrics) {
	if m != nil {
		m.RecordLeaseExpired()
	}
}

// RecordIncompatibleQoS is the nil-safe counterpart.
func RecordIncompatibleQoS(m DiscoveryMetrics, policy string) {
	if m != nil {
		m.RecordIncompatibleQoS(policy)
	}
}
