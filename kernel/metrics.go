package kernel

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus-compatible metrics for engine activity:
// reactor population, queue depth, chain latency, and activation and
// termination counts.
type Metrics struct {
	ReactorsAlive         prometheus.Gauge
	QueueDepth            prometheus.Gauge
	ChainLatencyMS        prometheus.Histogram
	ActivationsTotal      prometheus.Counter
	TerminationsByOutcome *prometheus.CounterVec
}

// NewMetrics registers the kernel's metrics against reg and returns a
// handle the Engine updates as it runs. Pass prometheus.NewRegistry() for
// an isolated registry in tests, or prometheus.DefaultRegisterer to expose
// the metrics on the process-wide /metrics endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReactorsAlive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reactorkernel",
			Name:      "reactors_alive",
			Help:      "Number of reactors currently not dead (ready, running, suspended, or zombie).",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reactorkernel",
			Name:      "queue_depth",
			Help:      "Number of activations currently pending in the engine's work queue.",
		}),
		ChainLatencyMS: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reactorkernel",
			Name:      "chain_latency_ms",
			Help:      "Wall-clock duration of one full propagation chain, in milliseconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
		ActivationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reactorkernel",
			Name:      "activations_total",
			Help:      "Cumulative number of activations processed across all chains.",
		}),
		TerminationsByOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reactorkernel",
			Name:      "reactor_terminations_total",
			Help:      "Cumulative reactor terminations, labeled by outcome (returned, failed, killed).",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeChain(start time.Time) {
	if m == nil {
		return
	}
	m.ChainLatencyMS.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}

func (m *Metrics) countActivation() {
	if m == nil {
		return
	}
	m.ActivationsTotal.Inc()
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) setReactorsAlive(n int) {
	if m == nil {
		return
	}
	m.ReactorsAlive.Set(float64(n))
}

func (m *Metrics) countTermination(outcome Outcome) {
	if m == nil {
		return
	}
	m.TerminationsByOutcome.WithLabelValues(outcome.String()).Inc()
}
