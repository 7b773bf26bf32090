// Package solver defines the contract between the coupling layer and the
// per-domain physical solvers, plus the failures a solver may report.
package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/multinet/internal/network"
)

var (
	ErrNotConverged     = errors.New("solver: did not reach tolerance")
	ErrIllPosedTopology = errors.New("solver: ill-posed topology")
	ErrInvalidInput     = errors.New("solver: invalid input")
	ErrNoSolver         = errors.New("solver: no solver registered")
)

// Solver solves one network given its current boundary inputs and writes
// result tables in place.
type Solver interface {
	Solve(ctx context.Context, net network.Network) error
}

// Func adapts a function to Solver.
type Func func(ctx context.Context, net network.Network) error

func (f Func) Solve(ctx context.Context, net network.Network) error { return f(ctx, net) }

type Kind int

const (
	NonConvergence Kind = iota
	Topology
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case NonConvergence:
		return "non-convergence"
	case Topology:
		return "topology"
	default:
		return "invalid input"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case NonConvergence:
		return ErrNotConverged
	case Topology:
		return ErrIllPosedTopology
	default:
		return ErrInvalidInput
	}
}

// Failure is the typed error a solver returns. A solve stopped by its
// context is a NonConvergence failure wrapping the context error.
type Failure struct {
	Network    string
	Kind       Kind
	Iterations int
	Err        error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s: %s failure", f.Network, f.Kind)
	if f.Iterations > 0 {
		msg += fmt.Sprintf(" after %d iterations", f.Iterations)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind.sentinel()}
	}
	return []error{f.Kind.sentinel(), f.Err}
}

func Fail(net string, kind Kind, iterations int, err error) *Failure {
	return &Failure{Network: net, Kind: kind, Iterations: iterations, Err: err}
}
