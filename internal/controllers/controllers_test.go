package controllers

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/multinet"
	"github.com/san-kum/multinet/internal/network"
	"github.com/san-kum/multinet/internal/pipeflow"
)

var (
	_ control.Targeter   = (*P2G)(nil)
	_ control.Recycler   = (*G2P)(nil)
	_ control.Cloner     = (*P2H)(nil)
	_ control.Residualer = (*Compressor)(nil)
	_ control.Named      = (*Const)(nil)
	_ control.Controller = (*Func)(nil)
)

func fixture(t *testing.T) (*multinet.MultiNetwork, *network.PowerNet, *network.HydraulicNet, *network.HydraulicNet) {
	t.Helper()
	pn := network.NewPowerNet("power")
	b0 := pn.AddBus("b0", 20)
	b1 := pn.AddBus("b1", 20)
	pn.AddExtGrid(b0)
	pn.AddLine(b0, b1, 1, 0.4)
	pn.AddLoad(b1, 10)
	pn.AddSGen(b1, 0)

	lgas, _ := network.LookupFluid("lgas")
	gn := network.NewGasNet("gas", lgas)
	j0 := gn.AddJunction(5, 283)
	j1 := gn.AddJunction(5, 283)
	gn.AddExtGrid(j0, 5, 283)
	gn.AddPipe(j0, j1, 1, 0.3)
	gn.AddSink(j1, 0.1)
	gn.AddSource(j1, 0)

	water, _ := network.LookupFluid("water")
	hn := network.NewHeatNet("heat", water)
	h0 := hn.AddJunction(5, 350)
	hn.AddSource(h0, 0)

	mn := multinet.New("fixture")
	mn.AddNetworks(false, multinet.Pair("power", pn), multinet.Pair("gas", gn), multinet.Pair("heat", hn))
	return mn, pn, gn, hn
}

func near(t *testing.T, what string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %g, want %g", what, got, want)
	}
}

func TestP2G(t *testing.T) {
	mn, _, gn, _ := fixture(t)
	c := NewP2G("p2g", "power", []int{0}, "gas", []int{0}, 0.7)
	ctx := context.Background()

	if err := c.Run(ctx, mn); err != nil {
		t.Fatal(err)
	}
	want := 10 * 0.7 / 41.2
	near(t, "source mdot", gn.Source[0].MdotKgPerS, want)
	if c.IsConverged() {
		t.Error("first write changed the source and cannot be converged")
	}
	near(t, "residual", c.Residual(), want)

	if err := c.Run(ctx, mn); err != nil {
		t.Fatal(err)
	}
	if !c.IsConverged() || c.Residual() != 0 {
		t.Errorf("second run should settle, residual %g", c.Residual())
	}
	if got := c.Targets(); len(got) != 1 || got[0] != "gas" {
		t.Errorf("targets = %v", got)
	}
}

func TestP2GSkipsLoadOutOfService(t *testing.T) {
	mn, pn, gn, _ := fixture(t)
	pn.Load[0].InService = false
	gn.Source[0].MdotKgPerS = 1
	c := NewP2G("p2g", "power", []int{0}, "gas", []int{0}, 0.7)
	if err := c.Run(context.Background(), mn); err != nil {
		t.Fatal(err)
	}
	near(t, "source mdot", gn.Source[0].MdotKgPerS, 0)
}

func TestG2P(t *testing.T) {
	mn, pn, _, _ := fixture(t)
	c := NewG2P("g2p", "gas", []int{0}, "power", []int{0}, 0.5)
	if err := c.Run(context.Background(), mn); err != nil {
		t.Fatal(err)
	}
	near(t, "sgen p", pn.SGen[0].PMW, 0.1*41.2*0.5)
}

func TestFluidWithoutHeatingValue(t *testing.T) {
	mn, pn, gn, _ := fixture(t)
	gn.Fluid, _ = network.LookupFluid("water")
	pn.SGen[0].PMW = 2

	for _, c := range []control.Controller{
		NewG2P("g2p", "gas", []int{0}, "power", []int{0}, 0.5),
		NewP2G("p2g", "power", []int{0}, "gas", []int{0}, 0.7),
	} {
		if err := c.Run(context.Background(), mn); !errors.Is(err, ErrParameter) {
			t.Errorf("%T: expected %v, got %v", c, ErrParameter, err)
		}
	}
	near(t, "sgen p untouched", pn.SGen[0].PMW, 2)
}

func TestP2H(t *testing.T) {
	mn, _, _, hn := fixture(t)
	c := NewP2H("hp", "power", []int{0}, "heat", []int{0}, 3, 30)
	if err := c.Run(context.Background(), mn); err != nil {
		t.Fatal(err)
	}
	near(t, "heat source mdot", hn.Source[0].MdotKgPerS, 10e6*3/(4182*30))
}

func TestCompressorWaitsForResults(t *testing.T) {
	mn, pn, gn, _ := fixture(t)
	c := NewCompressor("comp", "gas", []int{0}, "power", 0, 0.5)
	ctx := context.Background()

	if err := c.Run(ctx, mn); err != nil {
		t.Fatal(err)
	}
	if c.IsConverged() || !math.IsInf(c.Residual(), 1) {
		t.Error("compressor should wait for gas results")
	}
	near(t, "load untouched", pn.Load[0].PMW, 10)

	if err := pipeflow.New(pipeflow.DefaultConfig(), nil).Solve(ctx, gn); err != nil {
		t.Fatal(err)
	}
	if err := c.Run(ctx, mn); err != nil {
		t.Fatal(err)
	}
	near(t, "compressor load", pn.Load[0].PMW, 0.1*0.5)
	if c.Runs() != 2 {
		t.Errorf("runs = %d", c.Runs())
	}
}

func TestConst(t *testing.T) {
	mn, pn, gn, _ := fixture(t)
	ctx := context.Background()

	sink := NewConst("seed", "gas", "sink", []int{0}, 0.4)
	if err := sink.Run(ctx, mn); err != nil {
		t.Fatal(err)
	}
	near(t, "sink", gn.Sink[0].MdotKgPerS, 0.4)

	load := NewConst("load", "power", "load", []int{0}, 10)
	if err := load.Run(ctx, mn); err != nil {
		t.Fatal(err)
	}
	if !load.IsConverged() {
		t.Error("writing the value already present should converge")
	}
	near(t, "load", pn.Load[0].PMW, 10)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		c    control.Controller
		want error
	}{
		{"missing net", NewP2G("x", "nope", []int{0}, "gas", []int{0}, 0.7), ErrNetworkNotFound},
		{"wrong type", NewP2G("x", "gas", []int{0}, "gas", []int{0}, 0.7), ErrNetworkType},
		{"heat as gas", NewG2P("x", "heat", []int{0}, "power", []int{0}, 0.5), ErrNetworkType},
		{"bad index", NewG2P("x", "gas", []int{3}, "power", []int{0}, 0.5), ErrElementIndex},
		{"unpaired", NewP2G("x", "power", []int{0}, "gas", nil, 0.7), ErrParameter},
		{"zero efficiency", NewP2G("x", "power", []int{0}, "gas", []int{0}, 0), ErrParameter},
		{"bad cop", NewP2H("x", "power", []int{0}, "heat", []int{0}, 0, 30), ErrParameter},
		{"unknown element", NewConst("x", "power", "sink", []int{0}, 1), ErrParameter},
		{"compressor without grids", NewCompressor("x", "gas", nil, "power", 0, 1), ErrParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mn, _, _, _ := fixture(t)
			err := tt.c.Run(context.Background(), mn)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRecycleReusesOutputs(t *testing.T) {
	mn, _, gn, _ := fixture(t)
	ctx := context.Background()

	c := NewP2G("p2g", "power", []int{0}, "gas", []int{0}, 0.7)
	c.SetRecycle(true)
	if err := c.Run(ctx, mn); err != nil {
		t.Fatal(err)
	}
	c.Efficiency = 0.5
	if err := c.Run(ctx, mn); err != nil {
		t.Fatal(err)
	}
	near(t, "recycled output", gn.Source[0].MdotKgPerS, 10*0.7/41.2)

	c.SetRecycle(false)
	if err := c.Run(ctx, mn); err != nil {
		t.Fatal(err)
	}
	near(t, "recomputed output", gn.Source[0].MdotKgPerS, 10*0.5/41.2)
}

func TestCloneController(t *testing.T) {
	mn, _, _, _ := fixture(t)
	c := NewP2G("p2g", "power", []int{0}, "gas", []int{0}, 0.7)
	c.Tol = 1e-3
	if err := c.Run(context.Background(), mn); err != nil {
		t.Fatal(err)
	}

	cc := c.CloneController().(*P2G)
	cc.Loads[0] = 5
	if c.Loads[0] != 0 {
		t.Error("clone shares the load index slice")
	}
	if cc.Runs() != 0 || cc.IsConverged() {
		t.Error("clone should start without run state")
	}
	if cc.Tol != 1e-3 || cc.Name() != "p2g" {
		t.Error("clone lost its configuration")
	}
}

func TestFunc(t *testing.T) {
	mn, _, _, _ := fixture(t)
	calls := 0
	f := NewFunc("f", func(context.Context, control.Networks) error {
		calls++
		return nil
	}, func() bool { return calls >= 2 })

	_ = f.Run(context.Background(), mn)
	if f.IsConverged() {
		t.Error("converged too early")
	}
	_ = f.Run(context.Background(), mn)
	if !f.IsConverged() {
		t.Error("not converged after two calls")
	}
	if !NewFunc("empty", nil, nil).IsConverged() {
		t.Error("func without test should report converged")
	}
}
