package coupling

import (
	"time"

	"github.com/san-kum/multinet/internal/control"
)

type State int

const (
	Uninitialized State = iota
	InitialRun
	LevelIteration
	Converged
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case InitialRun:
		return "INITIAL_RUN"
	case LevelIteration:
		return "LEVEL_ITERATION"
	case Converged:
		return "CONVERGED"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool { return s == Converged || s == Failed }

// IterationRecord is one pass over a level.
type IterationRecord struct {
	Level     control.Level
	Iteration int
	Converged bool
	// Residual is the largest change reported by controllers that expose one.
	Residual float64
	Solved   []string
	Unstable []string
}

type Result struct {
	State State
	// Level is the last level entered. It names the failing level on
	// non-convergence.
	Level       control.Level
	Iterations  map[string]int
	History     []IterationRecord
	InitialRuns int
	Solves      int
	Duration    time.Duration
	Err         error
}

// TotalIterations sums iterations over every level.
func (r *Result) TotalIterations() int {
	n := 0
	for _, it := range r.Iterations {
		n += it
	}
	return n
}

// Observer receives progress of a coupling run.
type Observer interface {
	ControllerRun(level control.Level, name string, d time.Duration, err error)
	NetworkSolved(name string, d time.Duration, err error)
	IterationDone(rec IterationRecord)
	RunFinished(res *Result)
}
