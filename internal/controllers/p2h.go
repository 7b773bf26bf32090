package controllers

import (
	"context"
	"fmt"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/network"
)

// P2H models heat pumps: an electrical load drives a heat source whose mass
// flow carries P * COP at the given supply/return temperature spread.
type P2H struct {
	coupler
	PowerNet string
	Loads    []int
	HeatNet  string
	Sources  []int
	COP      float64
	DeltaTK  float64
}

func NewP2H(name, powerNet string, loads []int, heatNet string, sources []int, cop, deltaTK float64) *P2H {
	return &P2H{
		coupler:  newCoupler(name),
		PowerNet: powerNet,
		Loads:    append([]int(nil), loads...),
		HeatNet:  heatNet,
		Sources:  append([]int(nil), sources...),
		COP:      cop,
		DeltaTK:  deltaTK,
	}
}

func (c *P2H) Targets() []string { return []string{c.HeatNet} }

func (c *P2H) Run(_ context.Context, nets control.Networks) error {
	if err := checkPairs(c.Loads, c.Sources); err != nil {
		return err
	}
	if c.COP <= 0 || c.DeltaTK <= 0 {
		return fmt.Errorf("%w: cop %g, delta_t %g", ErrParameter, c.COP, c.DeltaTK)
	}
	pn, err := powerNet(nets, c.PowerNet)
	if err != nil {
		return err
	}
	hn, err := hydraulicNet(nets, c.HeatNet, network.Heat)
	if err != nil {
		return err
	}
	if err := checkIndex("load", c.Loads, len(pn.Load)); err != nil {
		return err
	}
	if err := checkIndex("source", c.Sources, len(hn.Source)); err != nil {
		return err
	}
	cp := hn.Fluid.CpJPerKgK
	if cp <= 0 {
		return fmt.Errorf("%w: fluid %s has no heat capacity", ErrParameter, hn.Fluid.Name)
	}

	in := make([]float64, len(c.Loads))
	for i, l := range c.Loads {
		if load := pn.Load[l]; load.InService {
			in[i] = load.PMW * load.Scaling
		}
	}
	out := c.convert(in, func(p float64) float64 { return p * 1e6 * c.COP / (cp * c.DeltaTK) })

	old := make([]float64, len(out))
	for i, s := range c.Sources {
		old[i] = hn.Source[s].MdotKgPerS
		hn.Source[s].MdotKgPerS = out[i]
	}
	c.settle(old, out)
	return nil
}

func (c *P2H) CloneController() control.Controller {
	cc := *c
	cc.coupler = c.coupler.reset()
	cc.Loads = append([]int(nil), c.Loads...)
	cc.Sources = append([]int(nil), c.Sources...)
	return &cc
}
