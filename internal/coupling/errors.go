package coupling

import (
	"errors"
	"fmt"

	"github.com/san-kum/multinet/internal/control"
)

var (
	// ErrControllerFailure indicates a controller returned an error from Run.
	ErrControllerFailure = errors.New("coupling: controller failed")

	// ErrSolverNonConvergence indicates a domain solve failed.
	ErrSolverNonConvergence = errors.New("coupling: domain solve failed")

	// ErrLevelNonConvergence indicates a level exhausted its iteration ceiling.
	ErrLevelNonConvergence = errors.New("coupling: level did not converge")

	// ErrUnknownTarget indicates a controller targets a network that is not registered.
	ErrUnknownTarget = errors.New("coupling: controller targets unknown network")
)

// RunError is the failure of a coupling run together with where it happened.
type RunError struct {
	State      State
	Level      control.Level
	Controller string
	Network    string
	Iteration  int
	Reason     string
	Category   error
	Wrapped    error
}

func (e *RunError) Error() string {
	msg := e.Reason
	if msg == "" && e.Category != nil {
		msg = e.Category.Error()
	}
	switch {
	case e.Controller != "":
		msg = fmt.Sprintf("%s (controller %s)", msg, e.Controller)
	case e.Network != "":
		msg = fmt.Sprintf("%s (network %s)", msg, e.Network)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *RunError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Category != nil {
		errs = append(errs, e.Category)
	}
	if e.Wrapped != nil {
		errs = append(errs, e.Wrapped)
	}
	return errs
}
