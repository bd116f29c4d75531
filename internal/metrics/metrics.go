// internal/metrics/metrics.go
//
// Engine metrics:
//   - dragon_cycles_total{status}                  cycles by heartbeat status
//   - dragon_counterpart_stale                     1 while the counterpart is stale
//   - dragon_artifact_available{artifact}          1 when the artifact loaded this cycle
//   - dragon_ledger_entries_total{type,severity}   appended ledger entries
//   - dragon_cycle_duration_seconds                evaluate + emit latency
//   - dragon_output_failures_total{artifact}       failed engine-owned writes
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the engine's collector set. A nil *Metrics records nothing.
type Metrics struct {
	cycles         *prometheus.CounterVec
	stale          prometheus.Gauge
	available      *prometheus.GaugeVec
	ledgerEntries  *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	outputFailures *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dragon_cycles_total",
				Help: "Completed cycles by heartbeat status",
			},
			[]string{"status"},
		),
		stale: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dragon_counterpart_stale",
				Help: "1 while counterpart state is stale",
			},
		),
		available: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dragon_artifact_available",
				Help: "1 when the counterpart artifact loaded and validated this cycle",
			},
			[]string{"artifact"},
		),
		ledgerEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dragon_ledger_entries_total",
				Help: "Ledger entries appended",
			},
			[]string{"type", "severity"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dragon_cycle_duration_seconds",
				Help:    "Time spent evaluating and emitting one cycle",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		outputFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dragon_output_failures_total",
				Help: "Failed writes of engine-owned artifacts",
			},
			[]string{"artifact"},
		),
	}

	reg.MustRegister(m.cycles, m.stale, m.available, m.ledgerEntries, m.cycleDuration, m.outputFailures)
	return m
}

// Cycle records the outcome of one completed cycle.
func (m *Metrics) Cycle(status string, stale bool, took time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(status).Inc()
	if stale {
		m.stale.Set(1)
	} else {
		m.stale.Set(0)
	}
	m.cycleDuration.Observe(took.Seconds())
}

// Artifact records whether a counterpart artifact was usable this cycle.
func (m *Metrics) Artifact(name string, ok bool) {
	if m == nil {
		return
	}
	v := 0.0
	if ok {
		v = 1
	}
	m.available.WithLabelValues(name).Set(v)
}

// LedgerEntry counts one appended entry.
func (m *Metrics) LedgerEntry(typ, severity string) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(typ, severity).Inc()
}

// OutputFailure counts a failed engine-owned write.
func (m *Metrics) OutputFailure(artifact string) {
	if m == nil {
		return
	}
	m.outputFailures.WithLabelValues(artifact).Inc()
}
