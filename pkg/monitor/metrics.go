package monitor

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors a Monitor reports into. Create
// them once, attach with WithMetrics, and register them into the process
// registry alongside the default Go/process collectors.
type Metrics struct {
	Sweeps              prometheus.Counter
	SweepDuration       prometheus.Histogram
	Transitions         *prometheus.CounterVec
	AcquisitionFailures *prometheus.CounterVec
	Signals             prometheus.Gauge
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		Sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tolerance_monitor_sweeps_total",
			Help: "Total number of evaluation sweeps",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tolerance_monitor_sweep_duration_seconds",
			Help:    "Duration of evaluation sweeps including notification dispatch",
			Buckets: prometheus.DefBuckets,
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tolerance_monitor_transitions_total",
			Help: "Total number of committed classification transitions",
		}, []string{"state"}),
		AcquisitionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tolerance_monitor_acquisition_failures_total",
			Help: "Total number of failed value source reads",
		}, []string{"signal_id"}),
		Signals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tolerance_monitor_signals",
			Help: "Number of registered signals",
		}),
	}
}

// Register adds all collectors to the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(m.Sweeps, m.SweepDuration, m.Transitions, m.AcquisitionFailures, m.Signals)
}
