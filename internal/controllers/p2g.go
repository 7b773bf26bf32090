package controllers

import (
	"context"
	"fmt"

	"github.com/san-kum/multinet/internal/control"
)

// P2G converts the electrical demand of power-to-gas plants, modelled as
// loads, into gas injected at sources: mdot = P * efficiency / HHV.
type P2G struct {
	coupler
	PowerNet   string
	Loads      []int
	GasNet     string
	Sources    []int
	Efficiency float64
}

func NewP2G(name, powerNet string, loads []int, gasNet string, sources []int, efficiency float64) *P2G {
	return &P2G{
		coupler:    newCoupler(name),
		PowerNet:   powerNet,
		Loads:      append([]int(nil), loads...),
		GasNet:     gasNet,
		Sources:    append([]int(nil), sources...),
		Efficiency: efficiency,
	}
}

func (c *P2G) Targets() []string { return []string{c.GasNet} }

func (c *P2G) Run(_ context.Context, nets control.Networks) error {
	if err := checkPairs(c.Loads, c.Sources); err != nil {
		return err
	}
	if c.Efficiency <= 0 {
		return fmt.Errorf("%w: efficiency %g", ErrParameter, c.Efficiency)
	}
	pn, err := powerNet(nets, c.PowerNet)
	if err != nil {
		return err
	}
	gn, err := hydraulicNet(nets, c.GasNet, gasDomain)
	if err != nil {
		return err
	}
	if err := checkIndex("load", c.Loads, len(pn.Load)); err != nil {
		return err
	}
	if err := checkIndex("source", c.Sources, len(gn.Source)); err != nil {
		return err
	}
	hhv := gn.Fluid.HHVMJPerKg
	if hhv <= 0 {
		return fmt.Errorf("%w: fluid %s has no heating value", ErrParameter, gn.Fluid.Name)
	}

	in := make([]float64, len(c.Loads))
	for i, l := range c.Loads {
		if load := pn.Load[l]; load.InService {
			in[i] = load.PMW * load.Scaling
		}
	}
	// MW is MJ/s, so dividing by MJ/kg leaves kg/s.
	out := c.convert(in, func(p float64) float64 { return p * c.Efficiency / hhv })

	old := make([]float64, len(out))
	for i, s := range c.Sources {
		old[i] = gn.Source[s].MdotKgPerS
		gn.Source[s].MdotKgPerS = out[i]
	}
	c.settle(old, out)
	return nil
}

func (c *P2G) CloneController() control.Controller {
	cc := *c
	cc.coupler = c.coupler.reset()
	cc.Loads = append([]int(nil), c.Loads...)
	cc.Sources = append([]int(nil), c.Sources...)
	return &cc
}
