package experiment

import (
	"context"
	"sync"

	"github.com/san-kum/multinet/internal/config"
	"github.com/san-kum/multinet/internal/coupling"
	"github.com/san-kum/multinet/internal/multinet"
)

// Outcome is the result of one scenario in an ensemble.
type Outcome struct {
	Scenario string
	Result   *coupling.Result
	MultiNet *multinet.MultiNetwork
	Err      error
}

// Ensemble runs independent scenarios concurrently. Every scenario gets its
// own networks and engine; the options are shared, so observers passed in
// must be safe for concurrent use.
type Ensemble struct {
	cfgs    []*config.Config
	workers int
	opts    []Option
}

func NewEnsemble(cfgs []*config.Config, workers int, opts ...Option) *Ensemble {
	if workers <= 0 {
		workers = 1
	}
	return &Ensemble{cfgs: cfgs, workers: workers, opts: opts}
}

// Run returns one outcome per scenario, in input order. A failing scenario
// does not stop the others.
func (e *Ensemble) Run(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, len(e.cfgs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(e.workers, len(e.cfgs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = e.runOne(ctx, e.cfgs[idx])
			}
		}()
	}

	for i := range e.cfgs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (e *Ensemble) runOne(ctx context.Context, cfg *config.Config) Outcome {
	out := Outcome{}
	if cfg == nil {
		out.Err = errNoScenario
		return out
	}
	out.Scenario = cfg.Name

	exp := New(cfg, e.opts...)
	if err := exp.Setup(); err != nil {
		out.Err = err
		return out
	}
	out.MultiNet = exp.MultiNet()
	out.Result, out.Err = exp.Run(ctx)
	return out
}
