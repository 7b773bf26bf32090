package controllers

import (
	"context"
	"fmt"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/network"
)

// Const writes a fixed value into one column of an element table, e.g. to
// seed boundary values in the initial run.
type Const struct {
	coupler
	Net     string
	Element string
	Index   []int
	Value   float64
}

// ConstElements lists the element tables Const can write, with the column
// written for each.
var ConstElements = map[string]string{
	"load":   "p_mw",
	"sgen":   "p_mw",
	"sink":   "mdot_kg_per_s",
	"source": "mdot_kg_per_s",
}

func NewConst(name, net, element string, index []int, value float64) *Const {
	return &Const{
		coupler: newCoupler(name),
		Net:     net,
		Element: element,
		Index:   append([]int(nil), index...),
		Value:   value,
	}
}

func (c *Const) Targets() []string { return []string{c.Net} }

func (c *Const) Run(_ context.Context, nets control.Networks) error {
	n, ok := nets.Network(c.Net)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNetworkNotFound, c.Net)
	}
	col, err := c.column(n)
	if err != nil {
		return err
	}
	if err := checkIndex(c.Element, c.Index, len(col)); err != nil {
		return err
	}

	old := make([]float64, len(c.Index))
	out := make([]float64, len(c.Index))
	for i, idx := range c.Index {
		old[i] = *col[idx]
		*col[idx] = c.Value
		out[i] = c.Value
	}
	c.settle(old, out)
	return nil
}

// column returns pointers into the written column of the element table.
func (c *Const) column(n network.Network) ([]*float64, error) {
	var col []*float64
	switch net := n.(type) {
	case *network.PowerNet:
		switch c.Element {
		case "load":
			for i := range net.Load {
				col = append(col, &net.Load[i].PMW)
			}
			return col, nil
		case "sgen":
			for i := range net.SGen {
				col = append(col, &net.SGen[i].PMW)
			}
			return col, nil
		}
	case *network.HydraulicNet:
		switch c.Element {
		case "sink":
			for i := range net.Sink {
				col = append(col, &net.Sink[i].MdotKgPerS)
			}
			return col, nil
		case "source":
			for i := range net.Source {
				col = append(col, &net.Source[i].MdotKgPerS)
			}
			return col, nil
		}
	}
	return nil, fmt.Errorf("%w: %s network %q has no writable %q table", ErrParameter, n.Domain(), n.Name(), c.Element)
}

func (c *Const) CloneController() control.Controller {
	cc := *c
	cc.coupler = c.coupler.reset()
	cc.Index = append([]int(nil), c.Index...)
	return &cc
}

// Func adapts plain functions to a controller. It touches every network.
type Func struct {
	name      string
	RunFunc   func(ctx context.Context, nets control.Networks) error
	Converged func() bool
}

func NewFunc(name string, run func(ctx context.Context, nets control.Networks) error, converged func() bool) *Func {
	return &Func{name: name, RunFunc: run, Converged: converged}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Run(ctx context.Context, nets control.Networks) error {
	if f.RunFunc == nil {
		return nil
	}
	return f.RunFunc(ctx, nets)
}

// IsConverged defaults to true when no convergence test is set.
func (f *Func) IsConverged() bool {
	if f.Converged == nil {
		return true
	}
	return f.Converged()
}
