package solver

import (
	"fmt"

	"github.com/san-kum/multinet/internal/network"
)

// Registry resolves the solver for a network: a solver registered for the
// network's name wins over one registered for its domain.
type Registry struct {
	byDomain map[network.Domain]Solver
	byName   map[string]Solver
}

func NewRegistry() *Registry {
	return &Registry{
		byDomain: make(map[network.Domain]Solver),
		byName:   make(map[string]Solver),
	}
}

func (r *Registry) RegisterDomain(d network.Domain, s Solver) *Registry {
	r.byDomain[d] = s
	return r
}

func (r *Registry) RegisterNetwork(name string, s Solver) *Registry {
	r.byName[name] = s
	return r
}

func (r *Registry) Lookup(name string, net network.Network) (Solver, error) {
	if s, ok := r.byName[name]; ok {
		return s, nil
	}
	if net != nil {
		if s, ok := r.byDomain[net.Domain()]; ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w for network %q", ErrNoSolver, name)
}
