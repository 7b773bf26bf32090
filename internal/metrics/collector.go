// Package metrics records coupling progress, both as Prometheus series and
// as in-process summaries for the CLI.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/coupling"
)

// CouplingCollector bundles the Prometheus series of coupled runs. It is a
// coupling.Observer.
type CouplingCollector struct {
	gatherer prometheus.Gatherer

	ControllerRuns      *prometheus.CounterVec
	ControllerDurations *prometheus.HistogramVec
	Solves              *prometheus.CounterVec
	SolveDurations      *prometheus.HistogramVec
	Iterations          *prometheus.CounterVec
	Residual            *prometheus.GaugeVec
	Runs                *prometheus.CounterVec
	RunDurations        prometheus.Histogram
}

var _ coupling.Observer = (*CouplingCollector)(nil)

// NewCouplingCollector registers the coupling series against reg, defaulting
// to the global registry when nil.
func NewCouplingCollector(reg prometheus.Registerer) (*CouplingCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	buckets := []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multinet_controller_runs_total",
		Help: "Controller executions, labeled by controller, level and result.",
	}, []string{"controller", "level", "result"}), "multinet_controller_runs_total")
	if err != nil {
		return nil, err
	}
	runDur, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "multinet_controller_duration_seconds",
		Help:    "Controller execution time in seconds.",
		Buckets: buckets,
	}, []string{"controller"}), "multinet_controller_duration_seconds")
	if err != nil {
		return nil, err
	}
	solves, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multinet_network_solves_total",
		Help: "Domain solver invocations, labeled by network and result.",
	}, []string{"network", "result"}), "multinet_network_solves_total")
	if err != nil {
		return nil, err
	}
	solveDur, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "multinet_network_solve_duration_seconds",
		Help:    "Domain solve time in seconds.",
		Buckets: buckets,
	}, []string{"network"}), "multinet_network_solve_duration_seconds")
	if err != nil {
		return nil, err
	}
	iters, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multinet_level_iterations_total",
		Help: "Iterations over a controller level, labeled by level and whether the level was stable.",
	}, []string{"level", "converged"}), "multinet_level_iterations_total")
	if err != nil {
		return nil, err
	}
	residual, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "multinet_level_residual",
		Help: "Largest controller residual in the last iteration of a level.",
	}, []string{"level"}), "multinet_level_residual")
	if err != nil {
		return nil, err
	}
	finished, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multinet_runs_total",
		Help: "Coupled runs, labeled by final state.",
	}, []string{"state"}), "multinet_runs_total")
	if err != nil {
		return nil, err
	}
	total := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "multinet_run_duration_seconds",
		Help:    "Wall time of a coupled run in seconds.",
		Buckets: buckets,
	})
	if err := reg.Register(total); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(prometheus.Histogram)
		if !ok {
			return nil, fmt.Errorf("collector multinet_run_duration_seconds already registered with incompatible type")
		}
		total = existing
	}

	return &CouplingCollector{
		gatherer:            gatherer,
		ControllerRuns:      runs,
		ControllerDurations: runDur,
		Solves:              solves,
		SolveDurations:      solveDur,
		Iterations:          iters,
		Residual:            residual,
		Runs:                finished,
		RunDurations:        total,
	}, nil
}

func (c *CouplingCollector) ControllerRun(level control.Level, name string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.ControllerRuns.WithLabelValues(name, level.String(), result(err)).Inc()
	c.ControllerDurations.WithLabelValues(name).Observe(d.Seconds())
}

func (c *CouplingCollector) NetworkSolved(name string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.Solves.WithLabelValues(name, result(err)).Inc()
	c.SolveDurations.WithLabelValues(name).Observe(d.Seconds())
}

func (c *CouplingCollector) IterationDone(rec coupling.IterationRecord) {
	if c == nil {
		return
	}
	level := rec.Level.String()
	c.Iterations.WithLabelValues(level, fmt.Sprint(rec.Converged)).Inc()
	c.Residual.WithLabelValues(level).Set(rec.Residual)
}

func (c *CouplingCollector) RunFinished(res *coupling.Result) {
	if c == nil || res == nil {
		return
	}
	c.Runs.WithLabelValues(res.State.String()).Inc()
	c.RunDurations.Observe(res.Duration.Seconds())
}

// WriteText writes the gathered series in the Prometheus text format.
func (c *CouplingCollector) WriteText(w io.Writer) error {
	families, err := c.gatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
