package controllers

import (
	"context"
	"fmt"

	"github.com/san-kum/multinet/internal/control"
)

// Compressor turns the gas drawn through ext grids into the electrical load
// of the compressor station feeding them. It reads solve results, so it waits
// until the gas network has been solved at least once.
type Compressor struct {
	coupler
	GasNet   string
	ExtGrids []int
	PowerNet string
	Load     int
	// SpecificEnergyMJPerKg is the compression work per kg of gas.
	SpecificEnergyMJPerKg float64
}

func NewCompressor(name, gasNet string, extGrids []int, powerNet string, load int, specificEnergy float64) *Compressor {
	return &Compressor{
		coupler:               newCoupler(name),
		GasNet:                gasNet,
		ExtGrids:              append([]int(nil), extGrids...),
		PowerNet:              powerNet,
		Load:                  load,
		SpecificEnergyMJPerKg: specificEnergy,
	}
}

func (c *Compressor) Targets() []string { return []string{c.PowerNet} }

func (c *Compressor) Run(_ context.Context, nets control.Networks) error {
	if len(c.ExtGrids) == 0 || c.SpecificEnergyMJPerKg <= 0 {
		return fmt.Errorf("%w: compressor needs ext grids and a positive specific energy", ErrParameter)
	}
	gn, err := hydraulicNet(nets, c.GasNet, gasDomain)
	if err != nil {
		return err
	}
	pn, err := powerNet(nets, c.PowerNet)
	if err != nil {
		return err
	}
	if err := checkIndex("ext_grid", c.ExtGrids, len(gn.ExtGrid)); err != nil {
		return err
	}
	if err := checkIndex("load", []int{c.Load}, len(pn.Load)); err != nil {
		return err
	}
	if !gn.Converged || len(gn.ResExtGrid) != len(gn.ExtGrid) {
		c.wait()
		return nil
	}

	mdot := 0.0
	for _, i := range c.ExtGrids {
		mdot += gn.ResExtGrid[i].MdotKgPerS
	}
	if mdot < 0 {
		mdot = 0
	}
	out := c.convert([]float64{mdot}, func(m float64) float64 { return m * c.SpecificEnergyMJPerKg })

	old := []float64{pn.Load[c.Load].PMW}
	pn.Load[c.Load].PMW = out[0]
	c.settle(old, out)
	return nil
}

func (c *Compressor) CloneController() control.Controller {
	cc := *c
	cc.coupler = c.coupler.reset()
	cc.ExtGrids = append([]int(nil), c.ExtGrids...)
	return &cc
}
