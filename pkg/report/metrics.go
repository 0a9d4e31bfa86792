package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/domino14/econsim/pkg/belief"
	"github.com/domino14/econsim/pkg/exchange"
)

// Metrics counts solver runs on a private registry so it can be dumped to a
// node_exporter textfile at exit.
type Metrics struct {
	Registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	iterations *prometheus.HistogramVec
	simulated  prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "econsim_runs_total",
			Help: "Solver runs by solver and terminal status",
		}, []string{"solver", "status"}),
		iterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "econsim_iterations",
			Help:    "Iterations used per solver run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"solver"}),
		simulated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "econsim_simulated_periods_total",
			Help: "Belief updates drawn by simulations",
		}),
	}
	m.Registry.MustRegister(m.runs, m.iterations, m.simulated)
	return m
}

func (m *Metrics) ObserveEquilibrium(r exchange.Result) {
	m.runs.WithLabelValues("tatonnement", r.Status.String()).Inc()
	m.iterations.WithLabelValues("tatonnement").Observe(float64(r.Iterations))
}

func (m *Metrics) ObserveTrajectory(t belief.Trajectory) {
	m.runs.WithLabelValues("belief", t.Status.String()).Inc()
	m.iterations.WithLabelValues("belief").Observe(float64(t.Iterations))
}

func (m *Metrics) ObservePath(p belief.Path) {
	m.simulated.Add(float64(len(p.Values)))
}

// WriteTextfile writes the current values in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
