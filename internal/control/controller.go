package control

import (
	"context"

	"github.com/san-kum/multinet/internal/network"
)

// Networks is the registry view a controller reads from and writes to.
type Networks interface {
	Network(name string) (network.Network, bool)
	Names() []string
}

type Controller interface {
	Run(ctx context.Context, nets Networks) error
	IsConverged() bool
}

// Targeter names the networks whose solves depend on a controller's writes.
// Controllers that do not implement it touch every registered network.
type Targeter interface {
	Targets() []string
}

// Recycler receives the row's recycle hint before a run starts.
type Recycler interface {
	SetRecycle(recycle bool)
}

// Cloner lets a controller take part in a deep copy of its multinet.
type Cloner interface {
	CloneController() Controller
}

// Named controllers are reported by name in failures and logs.
type Named interface {
	Name() string
}

// Residualer exposes the last coupling change a controller applied.
type Residualer interface {
	Residual() float64
}
