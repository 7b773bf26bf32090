package experiment

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/san-kum/multinet/internal/config"
	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/controllers"
	"github.com/san-kum/multinet/internal/network"
	"github.com/san-kum/multinet/internal/pipeflow"
	"github.com/san-kum/multinet/internal/powerflow"
	"github.com/san-kum/multinet/internal/solver"
)

// ControllerFactory builds a controller from its scenario entry. name is the
// entry's name, or a generated one when the entry has none.
type ControllerFactory func(name string, p config.ControllerParams) (control.Controller, error)

type Registry struct {
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{controllers: make(map[string]ControllerFactory)}

	r.controllers["const"] = func(name string, p config.ControllerParams) (control.Controller, error) {
		if _, ok := controllers.ConstElements[p.Element]; !ok {
			return nil, fmt.Errorf("const %s: unknown element %q", name, p.Element)
		}
		c := controllers.NewConst(name, p.Net, p.Element, p.Index, p.Value)
		if p.Tol > 0 {
			c.Tol = p.Tol
		}
		return c, nil
	}
	r.controllers["p2g"] = func(name string, p config.ControllerParams) (control.Controller, error) {
		c := controllers.NewP2G(name, p.PowerNet, p.Loads, p.GasNet, p.Sources, p.Efficiency)
		if p.Tol > 0 {
			c.Tol = p.Tol
		}
		return c, nil
	}
	r.controllers["g2p"] = func(name string, p config.ControllerParams) (control.Controller, error) {
		c := controllers.NewG2P(name, p.GasNet, p.Sinks, p.PowerNet, p.SGens, p.Efficiency)
		if p.Tol > 0 {
			c.Tol = p.Tol
		}
		return c, nil
	}
	r.controllers["p2h"] = func(name string, p config.ControllerParams) (control.Controller, error) {
		c := controllers.NewP2H(name, p.PowerNet, p.Loads, p.HeatNet, p.Sources, p.COP, p.DeltaTK)
		if p.Tol > 0 {
			c.Tol = p.Tol
		}
		return c, nil
	}
	r.controllers["compressor"] = func(name string, p config.ControllerParams) (control.Controller, error) {
		c := controllers.NewCompressor(name, p.GasNet, p.ExtGrids, p.PowerNet, p.Load, p.SpecificEnergy)
		if p.Tol > 0 {
			c.Tol = p.Tol
		}
		return c, nil
	}

	return r
}

// Register adds or replaces the factory for a controller type.
func (r *Registry) Register(kind string, f ControllerFactory) {
	r.controllers[kind] = f
}

func (r *Registry) GetController(kind, name string, p config.ControllerParams) (control.Controller, error) {
	fn, ok := r.controllers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown controller type: %s", kind)
	}
	return fn(name, p)
}

func (r *Registry) ListControllers() []string {
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Solvers returns the default domain solvers: pipeflow for gas and heat,
// DC power flow for power.
func Solvers(cfg config.SolverConfig, logger *slog.Logger) *solver.Registry {
	pf := pipeflow.New(pipeflow.Config{
		TolPBar:    cfg.TolPBar,
		TolMKgPerS: cfg.TolMKgPerS,
		TolTK:      cfg.TolTK,
		MaxIter:    cfg.MaxIter,
	}, logger)
	return solver.NewRegistry().
		RegisterDomain(network.Gas, pf).
		RegisterDomain(network.Heat, pf).
		RegisterDomain(network.Power, powerflow.New(logger))
}
