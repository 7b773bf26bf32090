package controllers

import (
	"context"
	"fmt"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/network"
)

const gasDomain = network.Gas

// G2P converts the gas consumed by gas-fired generators, modelled as sinks,
// into electrical generation: P = mdot * HHV * efficiency.
type G2P struct {
	coupler
	GasNet     string
	Sinks      []int
	PowerNet   string
	SGens      []int
	Efficiency float64
}

func NewG2P(name, gasNet string, sinks []int, powerNet string, sgens []int, efficiency float64) *G2P {
	return &G2P{
		coupler:    newCoupler(name),
		GasNet:     gasNet,
		Sinks:      append([]int(nil), sinks...),
		PowerNet:   powerNet,
		SGens:      append([]int(nil), sgens...),
		Efficiency: efficiency,
	}
}

func (c *G2P) Targets() []string { return []string{c.PowerNet} }

func (c *G2P) Run(_ context.Context, nets control.Networks) error {
	if err := checkPairs(c.Sinks, c.SGens); err != nil {
		return err
	}
	if c.Efficiency <= 0 {
		return fmt.Errorf("%w: efficiency %g", ErrParameter, c.Efficiency)
	}
	gn, err := hydraulicNet(nets, c.GasNet, gasDomain)
	if err != nil {
		return err
	}
	pn, err := powerNet(nets, c.PowerNet)
	if err != nil {
		return err
	}
	if err := checkIndex("sink", c.Sinks, len(gn.Sink)); err != nil {
		return err
	}
	if err := checkIndex("sgen", c.SGens, len(pn.SGen)); err != nil {
		return err
	}
	hhv := gn.Fluid.HHVMJPerKg
	if hhv <= 0 {
		return fmt.Errorf("%w: fluid %s has no heating value", ErrParameter, gn.Fluid.Name)
	}

	in := make([]float64, len(c.Sinks))
	for i, s := range c.Sinks {
		if sink := gn.Sink[s]; sink.InService {
			in[i] = sink.MdotKgPerS * sink.Scaling
		}
	}
	out := c.convert(in, func(m float64) float64 { return m * hhv * c.Efficiency })

	old := make([]float64, len(out))
	for i, g := range c.SGens {
		old[i] = pn.SGen[g].PMW
		pn.SGen[g].PMW = out[i]
	}
	c.settle(old, out)
	return nil
}

func (c *G2P) CloneController() control.Controller {
	cc := *c
	cc.coupler = c.coupler.reset()
	cc.Sinks = append([]int(nil), c.Sinks...)
	cc.SGens = append([]int(nil), c.SGens...)
	return &cc
}
