package metrics

import (
	"math"
	"time"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/coupling"
)

// Convergence keeps the residual of every level iteration in arrival order,
// for plotting after a run.
type Convergence struct {
	name      string
	residuals []float64
	levels    []string
	failures  int
}

var _ coupling.Observer = (*Convergence)(nil)

func NewConvergence() *Convergence {
	return &Convergence{name: "convergence"}
}

func (c *Convergence) Name() string { return c.name }

func (c *Convergence) ControllerRun(_ control.Level, _ string, _ time.Duration, err error) {
	if err != nil {
		c.failures++
	}
}

func (c *Convergence) NetworkSolved(_ string, _ time.Duration, err error) {
	if err != nil {
		c.failures++
	}
}

// IterationDone records the residual. Waiting controllers report +Inf, which
// is kept out of the series.
func (c *Convergence) IterationDone(rec coupling.IterationRecord) {
	r := rec.Residual
	if math.IsInf(r, 0) || math.IsNaN(r) {
		r = 0
		if len(c.residuals) > 0 {
			r = c.residuals[len(c.residuals)-1]
		}
	}
	c.residuals = append(c.residuals, r)
	c.levels = append(c.levels, rec.Level.String())
}

func (c *Convergence) RunFinished(*coupling.Result) {}

func (c *Convergence) Residuals() []float64 {
	return append([]float64(nil), c.residuals...)
}

func (c *Convergence) Levels() []string {
	return append([]string(nil), c.levels...)
}

func (c *Convergence) Failures() int { return c.failures }

// Value is the residual of the last iteration.
func (c *Convergence) Value() float64 {
	if len(c.residuals) == 0 {
		return 0
	}
	return c.residuals[len(c.residuals)-1]
}

func (c *Convergence) Reset() {
	c.residuals = nil
	c.levels = nil
	c.failures = 0
}
