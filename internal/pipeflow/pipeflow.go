// Package pipeflow is a reference steady-state solver for gas and heat pipe
// networks.
//
// Hydraulics use a linearized nodal formulation: every pipe carries
// m = g*(p_from - p_to) with conductance g = 1/(R*|m|) taken from the
// previous iterate, where R follows Darcy-Weisbach with a rough-pipe
// (Nikuradse) friction factor. Junction pressures are solved with gonum
// until pressures and flows settle. Temperatures are then propagated along
// the flow direction with exponential heat loss to ambient.
package pipeflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multinet/internal/network"
	"github.com/san-kum/multinet/internal/solver"
)

const (
	pascalPerBar = 1e5
	minFlow      = 1e-6
)

type Config struct {
	TolPBar    float64
	TolMKgPerS float64
	TolTK      float64
	MaxIter    int
}

func DefaultConfig() Config {
	return Config{
		TolPBar:    1e-4,
		TolMKgPerS: 1e-4,
		TolTK:      1e-3,
		MaxIter:    100,
	}
}

type Solver struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Solver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Solver{cfg: cfg, logger: logger}
}

func (s *Solver) validateConfig() error {
	if s.cfg.MaxIter <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", s.cfg.MaxIter)
	}
	if s.cfg.TolPBar <= 0 || s.cfg.TolMKgPerS <= 0 || s.cfg.TolTK <= 0 {
		return errors.New("tolerances must be positive")
	}
	return nil
}

type pipeState struct {
	from, to int
	r        float64
	area     float64
	perim    float64 // heated surface per metre
	length   float64
	alpha    float64
	sections int
	m        float64
	mPrev    float64
}

func (s *Solver) Solve(ctx context.Context, n network.Network) error {
	net, ok := n.(*network.HydraulicNet)
	if !ok {
		return solver.Fail(n.Name(), solver.InvalidInput, 0, fmt.Errorf("pipeflow: unsupported network type %T", n))
	}
	net.Converged = false
	if err := s.validateConfig(); err != nil {
		return solver.Fail(net.Name(), solver.InvalidInput, 0, err)
	}
	if err := validate(net); err != nil {
		return solver.Fail(net.Name(), solver.InvalidInput, 0, err)
	}
	if len(net.ExtGrid) == 0 {
		return solver.Fail(net.Name(), solver.Topology, 0, errors.New("no external grid fixes a pressure"))
	}

	nJ := len(net.Junction)
	fixedP := make([]float64, nJ)
	fixed := make([]bool, nJ)
	refP := 0.0
	for _, eg := range net.ExtGrid {
		fixed[eg.Junction] = true
		fixedP[eg.Junction] = eg.PBar * pascalPerBar
		refP += eg.PBar
	}
	refP /= float64(len(net.ExtGrid))
	rho := net.Fluid.Density(refP)

	inj := injections(net)
	reached := reachable(net, fixed)
	unknown := make([]int, nJ)
	nU := 0
	for j := range unknown {
		if !reached[j] && inj[j] != 0 {
			return solver.Fail(net.Name(), solver.Topology, 0, fmt.Errorf("junction %d has demand but no path to an external grid", j))
		}
		if fixed[j] || !reached[j] {
			unknown[j] = -1
			continue
		}
		unknown[j] = nU
		nU++
	}

	pipes := make([]*pipeState, 0, len(net.Pipe))
	pipeIdx := make([]int, 0, len(net.Pipe))
	for k, p := range net.Pipe {
		if !p.InService || !reached[p.FromJunction] {
			continue
		}
		lambda := nikuradse(p.DiameterM, p.KMm)
		lengthM := p.LengthKm * 1000
		area := math.Pi * p.DiameterM * p.DiameterM / 4
		pipes = append(pipes, &pipeState{
			from:     p.FromJunction,
			to:       p.ToJunction,
			r:        8 * lambda * lengthM / (rho * math.Pi * math.Pi * math.Pow(p.DiameterM, 5)),
			area:     area,
			perim:    math.Pi * p.DiameterM,
			length:   lengthM,
			alpha:    p.AlphaWPerM2K,
			sections: max(p.Sections, 1),
			m:        1,
			mPrev:    1,
		})
		pipeIdx = append(pipeIdx, k)
	}

	p := make([]float64, nJ)
	for j := range p {
		if fixed[j] {
			p[j] = fixedP[j]
		} else {
			p[j] = refP * pascalPerBar
		}
	}

	converged := false
	iter := 0
	for iter = 1; iter <= s.cfg.MaxIter; iter++ {
		select {
		case <-ctx.Done():
			return solver.Fail(net.Name(), solver.NonConvergence, iter-1, ctx.Err())
		default:
		}

		g := make([]float64, len(pipes))
		for k, ps := range pipes {
			mlin := math.Max((math.Abs(ps.m)+math.Abs(ps.mPrev))/2, minFlow)
			g[k] = 1 / (ps.r * mlin)
		}

		var pNew []float64
		if nU > 0 {
			a := mat.NewDense(nU, nU, nil)
			b := mat.NewVecDense(nU, nil)
			for j := 0; j < nJ; j++ {
				if u := unknown[j]; u >= 0 {
					b.SetVec(u, inj[j])
				}
			}
			for k, ps := range pipes {
				stamp(a, b, unknown, fixedP, ps.from, ps.to, g[k])
			}

			var x mat.VecDense
			if err := x.SolveVec(a, b); err != nil {
				var cond mat.Condition
				if !errors.As(err, &cond) {
					return solver.Fail(net.Name(), solver.Topology, iter, fmt.Errorf("junction without path to an external grid: %w", err))
				}
			}
			pNew = make([]float64, nJ)
			for j := range pNew {
				if u := unknown[j]; u >= 0 {
					pNew[j] = x.AtVec(u)
				} else {
					pNew[j] = fixedP[j]
				}
			}
		} else {
			pNew = append([]float64(nil), p...)
		}

		maxDP, maxDM := 0.0, 0.0
		for j := range p {
			maxDP = math.Max(maxDP, math.Abs(pNew[j]-p[j])/pascalPerBar)
		}
		for k, ps := range pipes {
			mNew := g[k] * (pNew[ps.from] - pNew[ps.to])
			if math.IsNaN(mNew) || math.IsInf(mNew, 0) {
				return solver.Fail(net.Name(), solver.NonConvergence, iter, errors.New("mass flow diverged"))
			}
			maxDM = math.Max(maxDM, math.Abs(mNew-ps.m))
			ps.mPrev = ps.m
			ps.m = mNew
		}
		p = pNew

		if iter > 1 && maxDP < s.cfg.TolPBar && maxDM < s.cfg.TolMKgPerS {
			converged = true
			break
		}
	}
	if !converged {
		return solver.Fail(net.Name(), solver.NonConvergence, s.cfg.MaxIter, nil)
	}

	temps, err := s.propagateTemperature(net, pipes)
	if err != nil {
		return solver.Fail(net.Name(), solver.NonConvergence, iter, err)
	}

	writeResults(net, pipes, pipeIdx, p, temps, rho, inj, reached)
	net.Converged = true
	s.logger.Debug("pipeflow converged", "net", net.Name(), "iterations", iter)
	return nil
}

// stamp adds the conductance of pipe i->j to the nodal system.
func stamp(a *mat.Dense, b *mat.VecDense, unknown []int, fixedP []float64, i, j int, g float64) {
	ui, uj := unknown[i], unknown[j]
	if ui >= 0 {
		a.Set(ui, ui, a.At(ui, ui)+g)
		if uj >= 0 {
			a.Set(ui, uj, a.At(ui, uj)-g)
		} else {
			b.SetVec(ui, b.AtVec(ui)+g*fixedP[j])
		}
	}
	if uj >= 0 {
		a.Set(uj, uj, a.At(uj, uj)+g)
		if ui >= 0 {
			a.Set(uj, ui, a.At(uj, ui)-g)
		} else {
			b.SetVec(uj, b.AtVec(uj)+g*fixedP[i])
		}
	}
}

// reachable marks junctions connected to an external grid through in-service pipes.
func reachable(net *network.HydraulicNet, fixed []bool) []bool {
	adj := make([][]int, len(net.Junction))
	for _, p := range net.Pipe {
		if !p.InService {
			continue
		}
		adj[p.FromJunction] = append(adj[p.FromJunction], p.ToJunction)
		adj[p.ToJunction] = append(adj[p.ToJunction], p.FromJunction)
	}
	seen := make([]bool, len(net.Junction))
	var queue []int
	for j, f := range fixed {
		if f {
			seen[j] = true
			queue = append(queue, j)
		}
	}
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		for _, k := range adj[j] {
			if !seen[k] {
				seen[k] = true
				queue = append(queue, k)
			}
		}
	}
	return seen
}

// injections returns the net mass fed into each junction in kg/s.
func injections(net *network.HydraulicNet) []float64 {
	inj := make([]float64, len(net.Junction))
	for _, src := range net.Source {
		if src.InService {
			inj[src.Junction] += src.MdotKgPerS * src.Scaling
		}
	}
	for _, snk := range net.Sink {
		if snk.InService {
			inj[snk.Junction] -= snk.MdotKgPerS * snk.Scaling
		}
	}
	return inj
}

func writeResults(net *network.HydraulicNet, pipes []*pipeState, pipeIdx []int, p, temps []float64, rho float64, inj []float64, reached []bool) {
	net.ResJunction = make([]network.ResJunction, len(net.Junction))
	for j := range net.Junction {
		if !reached[j] {
			net.ResJunction[j] = network.ResJunction{PBar: math.NaN(), TK: math.NaN()}
			continue
		}
		net.ResJunction[j] = network.ResJunction{PBar: p[j] / pascalPerBar, TK: temps[j]}
	}

	net.ResPipe = make([]network.ResPipe, len(net.Pipe))
	balance := append([]float64(nil), inj...)
	for i, ps := range pipes {
		upstream := ps.from
		if ps.m < 0 {
			upstream = ps.to
		}
		profile := sectionTemperatures(ps, temps[upstream], net.AmbientK, net.Fluid.CpJPerKgK)
		tOut := profile[len(profile)-1]
		if ps.m < 0 {
			tOut = profile[0]
		}
		net.ResPipe[pipeIdx[i]] = network.ResPipe{
			MdotKgPerS:  ps.m,
			VMeanMPerS:  ps.m / (rho * ps.area),
			TOutK:       tOut,
			TSectionK:   profile,
			PSectionBar: sectionPressures(p[ps.from], p[ps.to], ps.sections),
		}
		balance[ps.from] -= ps.m
		balance[ps.to] += ps.m
	}

	net.ResExtGrid = make([]network.ResHydraulicExtGrid, len(net.ExtGrid))
	seen := make(map[int]bool, len(net.ExtGrid))
	for i, eg := range net.ExtGrid {
		if seen[eg.Junction] {
			continue
		}
		seen[eg.Junction] = true
		// the ext grid supplies whatever leaves its junction
		net.ResExtGrid[i] = network.ResHydraulicExtGrid{MdotKgPerS: -balance[eg.Junction]}
	}
}

// sectionPressures interpolates the pressure along a pipe. Friction loss is
// uniform over the length for a given flow.
func sectionPressures(pFrom, pTo float64, sections int) []float64 {
	out := make([]float64, sections+1)
	for k := range out {
		frac := float64(k) / float64(sections)
		out[k] = (pFrom + (pTo-pFrom)*frac) / pascalPerBar
	}
	return out
}

func validate(net *network.HydraulicNet) error {
	nJ := len(net.Junction)
	inRange := func(j int) bool { return j >= 0 && j < nJ }
	if nJ == 0 {
		return errors.New("network has no junctions")
	}
	if net.Fluid.DensityKgPerM3 <= 0 {
		return errors.New("fluid density must be positive")
	}
	for k, p := range net.Pipe {
		if !inRange(p.FromJunction) || !inRange(p.ToJunction) {
			return fmt.Errorf("pipe %d references unknown junction", k)
		}
		if p.FromJunction == p.ToJunction {
			return fmt.Errorf("pipe %d connects junction %d to itself", k, p.FromJunction)
		}
		if p.LengthKm <= 0 || p.DiameterM <= 0 {
			return fmt.Errorf("pipe %d needs positive length and diameter", k)
		}
		if p.KMm < 0 || p.AlphaWPerM2K < 0 {
			return fmt.Errorf("pipe %d has negative roughness or heat transfer", k)
		}
		if p.Sections < 0 {
			return fmt.Errorf("pipe %d has negative section count %d", k, p.Sections)
		}
	}
	for k, eg := range net.ExtGrid {
		if !inRange(eg.Junction) {
			return fmt.Errorf("ext grid %d references unknown junction", k)
		}
	}
	for k, s := range net.Sink {
		if !inRange(s.Junction) {
			return fmt.Errorf("sink %d references unknown junction", k)
		}
	}
	for k, s := range net.Source {
		if !inRange(s.Junction) {
			return fmt.Errorf("source %d references unknown junction", k)
		}
	}
	return nil
}
