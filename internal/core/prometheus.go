package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder fulfills MetricsRecorder with Prometheus
// counters: total handler seconds per operation and outcome counts per
// operation and status.
type PrometheusMetricsRecorder struct {
	durations *prometheus.CounterVec
	results   *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder constructs a recorder and registers its
// collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	rec := &PrometheusMetricsRecorder{
		durations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stablecore_handler_seconds_total",
			Help: "Total time spent in registry handlers.",
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stablecore_handler_results_total",
			Help: "Registry handler outcomes by operation and status.",
		}, []string{"operation", "status"}),
	}
	for _, c := range []prometheus.Collector{rec.durations, rec.results} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation).Add(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}

// RegistryCollector exports point-in-time registry gauges: the global
// creature count, the number of accounts holding creatures, and the
// identity nonce.
type RegistryCollector struct {
	store     PersistentStore
	creatures *prometheus.Desc
	owners    *prometheus.Desc
	nonce     *prometheus.Desc
}

// NewRegistryCollector constructs a collector reading from store.
func NewRegistryCollector(store PersistentStore) *RegistryCollector {
	return &RegistryCollector{
		store: store,
		creatures: prometheus.NewDesc(
			"stablecore_creatures",
			"Number of creatures in the global registry.",
			nil, nil),
		owners: prometheus.NewDesc(
			"stablecore_owners",
			"Number of accounts holding at least one creature.",
			nil, nil),
		nonce: prometheus.NewDesc(
			"stablecore_identity_nonce",
			"Current identity derivation nonce.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *RegistryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.creatures
	ch <- c.owners
	ch <- c.nonce
}

// Collect implements prometheus.Collector.
func (c *RegistryCollector) Collect(ch chan<- prometheus.Metric) {
	var owners int
	_ = c.store.View(context.Background(), func(view TransactionView) error {
		owners = len(view.ListOwners())
		return nil
	})
	ch <- prometheus.MustNewConstMetric(c.creatures, prometheus.GaugeValue, float64(c.store.CreatureCount()))
	ch <- prometheus.MustNewConstMetric(c.owners, prometheus.GaugeValue, float64(owners))
	ch <- prometheus.MustNewConstMetric(c.nonce, prometheus.CounterValue, float64(c.store.Nonce()))
}
