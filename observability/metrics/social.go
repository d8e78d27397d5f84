package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SocialMetrics exposes the operational counters of the social contract
// pipeline: request traffic, call outcomes, collected fees and the storage
// footprint.
type SocialMetrics struct {
	rpcRequests  *prometheus.CounterVec
	callsApplied *prometheus.CounterVec
	callsAborted *prometheus.CounterVec
	feesCharged  prometheus.Counter
	storageUsage prometheus.Gauge
}

var (
	socialOnce     sync.Once
	socialRegistry *SocialMetrics
)

func Social() *SocialMetrics {
	socialOnce.Do(func() {
		socialRegistry = &SocialMetrics{
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "feed_rpc_requests_total",
				Help: "Count of JSON-RPC requests by method.",
			}, []string{"method"}),
			callsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "feed_calls_applied_total",
				Help: "Count of mutating calls applied after a confirmed fee debit, by kind.",
			}, []string{"kind"}),
			callsAborted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "feed_calls_aborted_total",
				Help: "Count of mutating calls aborted before application, by kind.",
			}, []string{"kind"}),
			feesCharged: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "feed_fees_charged_total",
				Help: "Cumulative fee-token units debited for applied calls.",
			}),
			storageUsage: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "feed_storage_usage_bytes",
				Help: "Billed bytes currently persisted by the contract state.",
			}),
		}
		prometheus.MustRegister(
			socialRegistry.rpcRequests,
			socialRegistry.callsApplied,
			socialRegistry.callsAborted,
			socialRegistry.feesCharged,
			socialRegistry.storageUsage,
		)
	})
	return socialRegistry
}

// ObserveRequest counts one JSON-RPC request for the given method.
func (m *SocialMetrics) ObserveRequest(method string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method).Inc()
}

// MarkCallApplied counts a mutating call that reached state.
func (m *SocialMetrics) MarkCallApplied(kind string) {
	if m == nil {
		return
	}
	m.callsApplied.WithLabelValues(kind).Inc()
}

// MarkCallAborted counts a mutating call terminated without touching state.
func (m *SocialMetrics) MarkCallAborted(kind string) {
	if m == nil {
		return
	}
	m.callsAborted.WithLabelValues(kind).Inc()
}

// AddFeesCharged accumulates debited fee-token units.
func (m *SocialMetrics) AddFeesCharged(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.feesCharged.Add(amount)
}

// SetStorageUsage records the current billed byte count.
func (m *SocialMetrics) SetStorageUsage(bytes uint64) {
	if m == nil {
		return
	}
	m.storageUsage.Set(float64(bytes))
}
