package pipeflow

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/multinet/internal/network"
)

func outletTemperature(ps *pipeState, tIn, ambient, cp float64) float64 {
	m := math.Abs(ps.m)
	if ps.alpha == 0 || m < minFlow || cp <= 0 {
		return tIn
	}
	return ambient + (tIn-ambient)*math.Exp(-ps.alpha*ps.perim*ps.length/(m*cp))
}

// sectionTemperatures returns the temperature at each section boundary, from
// the pipe's from junction to its to junction. tIn is the temperature where
// the flow enters.
func sectionTemperatures(ps *pipeState, tIn, ambient, cp float64) []float64 {
	temps := make([]float64, ps.sections+1)
	temps[0] = tIn
	seg := *ps
	seg.length = ps.length / float64(ps.sections)
	for k := 1; k <= ps.sections; k++ {
		temps[k] = outletTemperature(&seg, temps[k-1], ambient, cp)
	}
	if ps.m < 0 {
		slices.Reverse(temps)
	}
	return temps
}

// propagateTemperature mixes inflows at each junction until temperatures
// settle. Potential flow has no directed cycles, so this ends within one
// sweep per junction.
func (s *Solver) propagateTemperature(net *network.HydraulicNet, pipes []*pipeState) ([]float64, error) {
	nJ := len(net.Junction)
	temps := make([]float64, nJ)
	fixed := make([]bool, nJ)
	for j, jn := range net.Junction {
		temps[j] = jn.TfluidK
	}
	for _, eg := range net.ExtGrid {
		temps[eg.Junction] = eg.TK
		fixed[eg.Junction] = true
	}

	for sweep := 0; sweep <= nJ; sweep++ {
		heat := make([]float64, nJ)
		mass := make([]float64, nJ)
		for _, src := range net.Source {
			if src.InService && src.MdotKgPerS > 0 {
				m := src.MdotKgPerS * src.Scaling
				heat[src.Junction] += m * net.Junction[src.Junction].TfluidK
				mass[src.Junction] += m
			}
		}
		for _, ps := range pipes {
			up, down := ps.from, ps.to
			if ps.m < 0 {
				up, down = ps.to, ps.from
			}
			m := math.Abs(ps.m)
			if m < minFlow {
				continue
			}
			heat[down] += m * outletTemperature(ps, temps[up], net.AmbientK, net.Fluid.CpJPerKgK)
			mass[down] += m
		}

		maxDT := 0.0
		for j := range temps {
			if fixed[j] || mass[j] == 0 {
				continue
			}
			t := heat[j] / mass[j]
			maxDT = math.Max(maxDT, math.Abs(t-temps[j]))
			temps[j] = t
		}
		if maxDT < s.cfg.TolTK {
			return temps, nil
		}
	}
	return nil, fmt.Errorf("temperature did not settle within %d sweeps", nJ+1)
}
