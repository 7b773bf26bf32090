// Package experiment turns a scenario config into a MultiNetwork with its
// controller table and runs the coupling engine over it.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/multinet/internal/config"
	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/coupling"
	"github.com/san-kum/multinet/internal/multinet"
	"github.com/san-kum/multinet/internal/network"
)

var errNoScenario = errors.New("experiment has no scenario")

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []coupling.Observer

	mn     *multinet.MultiNetwork
	engine *coupling.Engine
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option { return func(e *Experiment) { e.tracer = t } }

func WithObserver(o coupling.Observer) Option {
	return func(e *Experiment) { e.observers = append(e.observers, o) }
}

// WithRegistry replaces the built-in controller factories.
func WithRegistry(r *Registry) Option { return func(e *Experiment) { e.registry = r } }

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Setup builds the networks and controllers. It can be called again to start
// over from the scenario's initial values.
func (e *Experiment) Setup() error {
	if e.cfg == nil {
		return errNoScenario
	}
	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}

	var stdTypes *network.StdTypeCatalog
	if len(e.cfg.StdTypes) > 0 {
		stdTypes = network.NewStdTypeCatalog(e.cfg.StdTypes...)
	}
	mn := multinet.New(e.cfg.Name, multinet.WithLogger(e.logger), multinet.WithStdTypes(stdTypes))

	for _, nc := range e.cfg.Networks {
		net, err := BuildNetwork(nc)
		if err != nil {
			return err
		}
		mn.AddNetwork(net, nc.Name, false)
	}

	for i, cc := range e.cfg.Controllers {
		name := cc.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", cc.Type, i)
		}
		c, err := e.registry.GetController(cc.Type, name, cc.Params)
		if err != nil {
			return fmt.Errorf("controllers[%d]: %w", i, err)
		}
		mn.Controllers.AddController(c,
			control.InService(cc.Enabled()),
			control.Order(cc.Order),
			control.AtLevel(cc.Level...),
			control.InitialRun(cc.InitialRun),
			control.Recycle(cc.Recycle),
		)
	}

	opts := []coupling.Option{coupling.WithLogger(e.logger)}
	if e.tracer != nil {
		opts = append(opts, coupling.WithTracer(e.tracer))
	}
	for _, o := range e.observers {
		opts = append(opts, coupling.WithObserver(o))
	}

	e.mn = mn
	e.engine = coupling.New(mn, Solvers(e.cfg.Solver, e.logger),
		coupling.Config{MaxIterations: e.cfg.Run.MaxIterations}, opts...)
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*coupling.Result, error) {
	if e.engine == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.engine.Run(ctx)
}

func (e *Experiment) MultiNet() *multinet.MultiNetwork { return e.mn }
func (e *Experiment) Engine() *coupling.Engine          { return e.engine }

// BuildNetwork creates the network object for one scenario entry.
func BuildNetwork(nc config.NetworkConfig) (network.Network, error) {
	d, err := network.ParseDomain(nc.Kind)
	if err != nil {
		return nil, fmt.Errorf("network %q: %w", nc.Name, err)
	}

	switch d {
	case network.Power:
		pn := network.NewPowerNet(nc.Name)
		if nc.BaseMVA > 0 {
			pn.BaseMVA = nc.BaseMVA
		}
		pn.Bus = append(pn.Bus, nc.Bus...)
		pn.Line = append(pn.Line, nc.Line...)
		pn.Load = append(pn.Load, nc.Load...)
		pn.SGen = append(pn.SGen, nc.SGen...)
		for _, eg := range nc.ExtGrid {
			pn.ExtGrid = append(pn.ExtGrid, network.PowerExtGrid{Name: eg.Name, Bus: eg.Bus, VaDegree: eg.VaDegree})
		}
		return pn, nil

	case network.Gas, network.Heat:
		fluid, err := network.LookupFluid(nc.FluidOrDefault(d))
		if err != nil {
			return nil, fmt.Errorf("network %q: %w", nc.Name, err)
		}
		var hn *network.HydraulicNet
		if d == network.Gas {
			hn = network.NewGasNet(nc.Name, fluid)
		} else {
			hn = network.NewHeatNet(nc.Name, fluid)
		}
		if nc.AmbientK > 0 {
			hn.AmbientK = nc.AmbientK
		}
		hn.Junction = append(hn.Junction, nc.Junction...)
		hn.Pipe = append(hn.Pipe, nc.Pipe...)
		hn.Sink = append(hn.Sink, nc.Sink...)
		hn.Source = append(hn.Source, nc.Source...)
		for _, eg := range nc.ExtGrid {
			hn.ExtGrid = append(hn.ExtGrid, network.HydraulicExtGrid{
				Name: eg.Name, Junction: eg.Junction, PBar: eg.PBar, TK: eg.TK,
			})
		}
		return hn, nil
	}
	return nil, fmt.Errorf("network %q: unsupported kind %s", nc.Name, d)
}
