// Package powerflow is a reference DC power-flow solver for [network.PowerNet].
//
// Angles follow from B'θ = P with line susceptances in per unit of the
// network base; ext grid buses hold their voltage angle fixed. Results use
// the load convention: ResBus.PMW is net consumption, ResExtGrid.PMW is the
// power the slack supplies.
package powerflow

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

type Solver struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Solver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Solver{logger: logger}
}

type branch struct {
	idx      int
	from, to int
	b        float64
}

func (s *Solver) Solve(ctx context.Context, n network.Network) error {
	net, ok := n.(*network.PowerNet)
	if !ok {
		return solver.Fail(n.Name(), solver.InvalidInput, 0, fmt.Errorf("powerflow: unsupported network type %T", n))
	}
	net.Converged = false
	if err := validate(net); err != nil {
		return solver.Fail(net.Name(), solver.InvalidInput, 0, err)
	}
	if len(net.ExtGrid) == 0 {
		return solver.Fail(net.Name(), solver.Topology, 0, errors.New("no ext grid provides a slack bus"))
	}
	select {
	case <-ctx.Done():
		return solver.Fail(net.Name(), solver.NonConvergence, 0, ctx.Err())
	default:
	}

	base := net.BaseMVA
	if base <= 0 {
		base = 1
	}

	nB := len(net.Bus)
	fixed := make([]bool, nB)
	theta := make([]float64, nB)
	for _, eg := range net.ExtGrid {
		fixed[eg.Bus] = true
		theta[eg.Bus] = eg.VaDegree * math.Pi / 180
	}

	inj := make([]float64, nB)
	for _, g := range net.SGen {
		if g.InService {
			inj[g.Bus] += g.PMW * g.Scaling / base
		}
	}
	for _, l := range net.Load {
		if l.InService {
			inj[l.Bus] -= l.PMW * l.Scaling / base
		}
	}

	var branches []branch
	for k, l := range net.Line {
		if !l.InService {
			continue
		}
		vn := net.Bus[l.FromBus].VnKV
		xPU := l.XOhmPerKm * l.LengthKm / (vn * vn / base)
		branches = append(branches, branch{idx: k, from: l.FromBus, to: l.ToBus, b: 1 / xPU})
	}

	reached := reachable(nB, branches, fixed)
	unknown := make([]int, nB)
	nU := 0
	for i := range unknown {
		if !reached[i] && inj[i] != 0 {
			return solver.Fail(net.Name(), solver.Topology, 0, fmt.Errorf("bus %d has injection but no path to an ext grid", i))
		}
		if fixed[i] || !reached[i] {
			unknown[i] = -1
			continue
		}
		unknown[i] = nU
		nU++
	}

	if nU > 0 {
		a := mat.NewDense(nU, nU, nil)
		b := mat.NewVecDense(nU, nil)
		for i := range unknown {
			if u := unknown[i]; u >= 0 {
				b.SetVec(u, inj[i])
			}
		}
		for _, br := range branches {
			uf, ut := unknown[br.from], unknown[br.to]
			if uf >= 0 {
				a.Set(uf, uf, a.At(uf, uf)+br.b)
				if ut >= 0 {
					a.Set(uf, ut, a.At(uf, ut)-br.b)
				} else {
					b.SetVec(uf, b.AtVec(uf)+br.b*theta[br.to])
				}
			}
			if ut >= 0 {
				a.Set(ut, ut, a.At(ut, ut)+br.b)
				if uf >= 0 {
					a.Set(ut, uf, a.At(ut, uf)-br.b)
				} else {
					b.SetVec(ut, b.AtVec(ut)+br.b*theta[br.from])
				}
			}
		}

		var x mat.VecDense
		if err := x.SolveVec(a, b); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return solver.Fail(net.Name(), solver.Topology, 0, err)
			}
		}
		for i := range unknown {
			if u := unknown[i]; u >= 0 {
				theta[i] = x.AtVec(u)
			}
		}
	}

	net.ResBus = make([]network.ResBus, nB)
	for i := range net.Bus {
		if !reached[i] {
			net.ResBus[i] = network.ResBus{VaDegree: math.NaN(), PMW: math.NaN()}
			continue
		}
		net.ResBus[i] = network.ResBus{VaDegree: theta[i] * 180 / math.Pi, PMW: -inj[i] * base}
	}

	balance := append([]float64(nil), inj...)
	net.ResLine = make([]network.ResLine, len(net.Line))
	for _, br := range branches {
		pFrom := br.b * (theta[br.from] - theta[br.to])
		balance[br.from] -= pFrom
		balance[br.to] += pFrom

		line := net.Line[br.idx]
		res := network.ResLine{PFromMW: pFrom * base}
		if line.MaxIKA > 0 {
			iKA := math.Abs(res.PFromMW) / (math.Sqrt(3) * net.Bus[br.from].VnKV)
			res.LoadingPercent = iKA / line.MaxIKA * 100
		}
		net.ResLine[br.idx] = res
	}

	net.ResExtGrid = make([]network.ResExtGrid, len(net.ExtGrid))
	seen := make(map[int]bool, len(net.ExtGrid))
	for i, eg := range net.ExtGrid {
		if seen[eg.Bus] {
			continue
		}
		seen[eg.Bus] = true
		net.ResExtGrid[i] = network.ResExtGrid{PMW: -balance[eg.Bus] * base}
	}

	net.Converged = true
	s.logger.Debug("dc power flow solved", "net", net.Name(), "buses", nB, "lines", len(branches))
	return nil
}

func reachable(n int, branches []branch, fixed []bool) []bool {
	adj := make([][]int, n)
	for _, br := range branches {
		adj[br.from] = append(adj[br.from], br.to)
		adj[br.to] = append(adj[br.to], br.from)
	}
	seen := make([]bool, n)
	var queue []int
	for i, f := range fixed {
		if f {
			seen[i] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, k := range adj[i] {
			if !seen[k] {
				seen[k] = true
				queue = append(queue, k)
			}
		}
	}
	return seen
}

func validate(net *network.PowerNet) error {
	nB := len(net.Bus)
	inRange := func(i int) bool { return i >= 0 && i < nB }
	if nB == 0 {
		return errors.New("network has no buses")
	}
	for i, b := range net.Bus {
		if b.VnKV <= 0 {
			return fmt.Errorf("bus %d needs a positive nominal voltage", i)
		}
	}
	for k, l := range net.Line {
		if !inRange(l.FromBus) || !inRange(l.ToBus) {
			return fmt.Errorf("line %d references unknown bus", k)
		}
		if l.FromBus == l.ToBus {
			return fmt.Errorf("line %d connects bus %d to itself", k, l.FromBus)
		}
		if l.InService && l.XOhmPerKm*l.LengthKm <= 0 {
			return fmt.Errorf("line %d needs positive reactance", k)
		}
	}
	for k, l := range net.Load {
		if !inRange(l.Bus) {
			return fmt.Errorf("load %d references unknown bus", k)
		}
	}
	for k, g := range net.SGen {
		if !inRange(g.Bus) {
			return fmt.Errorf("sgen %d references unknown bus", k)
		}
	}
	for k, eg := range net.ExtGrid {
		if !inRange(eg.Bus) {
			return fmt.Errorf("ext grid %d references unknown bus", k)
		}
	}
	return nil
}
