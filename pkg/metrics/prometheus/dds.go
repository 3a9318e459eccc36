// Package prometheus provides the concrete Prometheus collectors behind
// the metrics interfaces in pkg/metrics. It registers its constructors
// with pkg/metrics at init time so pkg/metrics never imports
// client_golang directly.
package prometheus

import (
	"time"

	"github.com/marmos91/dittofs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterHistoryCacheMetricsConstructor(newHistoryCacheMetrics)
	metrics.RegisterDiscoveryMetricsConstructor(newDiscoveryMetrics)
}

type historyCacheMetrics struct {
	addOperations    *prometheus.CounterVec
	addDuration      *prometheus.HistogramVec
	removeOperations *prometheus.CounterVec
	removeDuration   *prometheus.HistogramVec
	cacheSize        *prometheus.GaugeVec
	resourceLimits   *prometheus.CounterVec
}

func newHistoryCacheMetrics() metrics.HistoryCacheMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	return &historyCacheMetrics{
		addOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rtps_history_cache_add_total",
				Help: "Total number of cache changes added, by endpoint kind (reader/writer)",
			},
			[]string{"endpoint_kind"},
		),
		addDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rtps_history_cache_add_duration_milliseconds",
				Help:    "Duration of add_change calls in milliseconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
			},
			[]string{"endpoint_kind"},
		),
		removeOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rtps_history_cache_remove_total",
				Help: "Total number of cache changes removed, by endpoint kind",
			},
			[]string{"endpoint_kind"},
		),
		removeDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rtps_history_cache_remove_duration_milliseconds",
				Help:    "Duration of remove_change calls in milliseconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
			},
			[]string{"endpoint_kind"},
		),
		cacheSize: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rtps_history_cache_size",
				Help: "Current number of cache changes held, by endpoint kind",
			},
			[]string{"endpoint_kind"},
		),
		resourceLimits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rtps_resource_limit_hits_total",
				Help: "Total number of ResourceLimits rejections, by limit name",
			},
			[]string{"endpoint_kind", "limit"},
		),
	}
}

func (m *historyCacheMetrics) ObserveAdd(endpointKind string, d time.Duration) {
	m.addOperations.WithLabelValues(endpointKind).Inc()
	m.addDuration.WithLabelValues(endpointKind).Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *historyCacheMetrics) ObserveRemove(endpointKind string, d time.Duration) {
	m.removeOperations.WithLabelValues(endpointKind).Inc()
	m.removeDuration.WithLabelValues(endpointKind).Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *historyCacheMetrics) RecordCacheSize(endpointKind string, changes int) {
	m.cacheSize.WithLabelValues(endpointKind).Set(float64(changes))
}

func (m *historyCacheMetrics) RecordResourceLimitHit(endpointKind, limit string) {
	m.resourceLimits.WithLabelValues(endpointKind, limit).Inc()
}

type discoveryMetrics struct {
	participantsDiscovered prometheus.Gauge
	matchedEndpoints       *prometheus.GaugeVec
	leaseExpirations       prometheus.Counter
	incompatibleQoS        *prometheus.CounterVec
}

func newDiscoveryMetrics() metrics.DiscoveryMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	return &discoveryMetrics{
		participantsDiscovered: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "rtps_spdp_participants_discovered",
			Help: "Current number of remote participants known via SPDP",
		}),
		matchedEndpoints: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rtps_sedp_matched_endpoints",
				Help: "Current number of matched remote endpoints, by kind (publication/subscription)",
			},
			[]string{"kind"},
		),
		leaseExpirations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rtps_spdp_lease_expirations_total",
			Help: "Total number of remote participants removed due to lease expiry",
		}),
		incompatibleQoS: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dds_requested_incompatible_qos_total",
				Help: "Total number of QoS incompatibilities detected at match time, by policy",
			},
			[]string{"policy"},
		),
	}
}

func (m *discoveryMetrics) RecordParticipantsDiscovered(count int) {
	m.participantsDiscovered.Set(float64(count))
}

func (m *discoveryMetrics) RecordMatchedEndpoints(kind string, count int) {
	m.matchedEndpoints.WithLabelValues(kind).Set(float64(count))
}

func (m *discoveryMetrics) RecordLeaseExpired() {
	m.leaseExpirations.Inc()
}

func (m *discoveryMetrics) RecordIncompatibleQoS(policy string) {
	m.incompatibleQoS.WithLabelValues(policy).Inc()
}
