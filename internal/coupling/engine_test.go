package coupling

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/multinet"
	"github.com/san-kum/multinet/internal/network"
	"github.com/san-kum/multinet/internal/solver"
)

// journal records the sequence of controller runs and solves.
type journal struct {
	events []string
}

func (j *journal) add(ev string) { j.events = append(j.events, ev) }

func (j *journal) count(ev string) int {
	n := 0
	for _, e := range j.events {
		if e == ev {
			n++
		}
	}
	return n
}

// stepper converges once it has run a given number of times.
type stepper struct {
	name    string
	j       *journal
	needs   int
	runs    int
	targets []string
	err     error
	recycle bool
}

func (p *stepper) Name() string { return p.name }

func (p *stepper) Run(ctx context.Context, nets control.Networks) error {
	p.runs++
	p.j.add(p.name)
	return p.err
}

func (p *stepper) IsConverged() bool { return p.runs >= p.needs }

func (p *stepper) Residual() float64 {
	if p.IsConverged() {
		return 0
	}
	return float64(p.needs - p.runs)
}

func (p *stepper) SetRecycle(v bool) { p.recycle = v }

// targeted is a stepper that declares which networks it touches.
type targeted struct{ *stepper }

func (t targeted) Targets() []string { return t.stepper.targets }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T, names ...string) (*multinet.MultiNetwork, *solver.Registry, *journal) {
	t.Helper()
	j := &journal{}
	mn := multinet.New("test", multinet.WithLogger(quietLogger()))
	lgas, _ := network.LookupFluid("lgas")
	for _, name := range names {
		mn.AddNetwork(network.NewGasNet(name, lgas), name, false)
	}
	reg := solver.NewRegistry().RegisterDomain(network.Gas, solver.Func(func(_ context.Context, n network.Network) error {
		j.add("solve:" + n.Name())
		return nil
	}))
	return mn, reg, j
}

func runEngine(t *testing.T, mn *multinet.MultiNetwork, reg *solver.Registry, opts ...Option) (*Result, error) {
	t.Helper()
	return New(mn, reg, Config{MaxIterations: 5}, opts...).Run(context.Background())
}

func TestNoControllersSolvesEachNetworkOnce(t *testing.T) {
	mn, reg, j := setup(t, "a", "b")
	res, err := runEngine(t, mn, reg)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Converged {
		t.Errorf("state = %s, want CONVERGED", res.State)
	}
	want := "solve:a,solve:b"
	if got := strings.Join(j.events, ","); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

func TestNilControllerIsNotRun(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	mn.Controllers.AddController(nil, control.InitialRun(true))

	res, err := runEngine(t, mn, reg)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Converged || j.count("solve:gas") != 1 {
		t.Errorf("state %s events %v, want a plain solve", res.State, j.events)
	}
}

func TestInitialRunExactlyOnce(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	seed := &stepper{name: "seed", j: j, needs: 1}
	mn.Controllers.AddController(seed, control.InitialRun(true))

	res, err := runEngine(t, mn, reg)
	if err != nil {
		t.Fatal(err)
	}
	if res.InitialRuns != 1 {
		t.Errorf("initial runs = %d, want 1", res.InitialRuns)
	}
	// once in the initial pass, once in the level loop
	if seed.runs != 2 {
		t.Errorf("seed ran %d times, want 2", seed.runs)
	}
	if j.events[0] != "seed" || j.events[1] != "seed" || j.events[2] != "solve:gas" {
		t.Errorf("unexpected sequence %v", j.events)
	}
}

func TestInitialRunOrder(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	mn.Controllers.AddController(&stepper{name: "late", j: j, needs: 1},
		control.AtLevel(1), control.InitialRun(true))
	mn.Controllers.AddController(&stepper{name: "second", j: j, needs: 1},
		control.Order(2), control.InitialRun(true))
	mn.Controllers.AddController(&stepper{name: "first", j: j, needs: 1},
		control.Order(1), control.InitialRun(true))
	mn.Controllers.AddController(&stepper{name: "skipped", j: j, needs: 1},
		control.InService(false), control.InitialRun(true))

	if _, err := runEngine(t, mn, reg); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(j.events[:3], ",")
	if got != "first,second,late" {
		t.Errorf("initial pass = %s", got)
	}
	if j.count("skipped") != 0 {
		t.Error("out-of-service controller ran")
	}
}

func TestLevelAndOrderSequence(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	mn.Controllers.AddController(&stepper{name: "a", j: j, needs: 1}, control.AtLevel(0), control.Order(5))
	mn.Controllers.AddController(&stepper{name: "b", j: j, needs: 1}, control.AtLevel(0), control.Order(1))
	mn.Controllers.AddController(&stepper{name: "c", j: j, needs: 1}, control.AtLevel(1), control.Order(0))

	res, err := runEngine(t, mn, reg)
	if err != nil {
		t.Fatal(err)
	}
	want := "b,a,solve:gas,c,solve:gas"
	if got := strings.Join(j.events, ","); got != want {
		t.Errorf("sequence = %s, want %s", got, want)
	}
	if res.Iterations["0"] != 1 || res.Iterations["1"] != 1 {
		t.Errorf("iterations = %v", res.Iterations)
	}
}

func TestLevelIteratesUntilStable(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	slow := &stepper{name: "slow", j: j, needs: 3}
	fast := &stepper{name: "fast", j: j, needs: 1}
	mn.Controllers.AddController(fast)
	mn.Controllers.AddController(slow)

	res, err := runEngine(t, mn, reg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Iterations["0"] != 3 {
		t.Errorf("iterations = %d, want 3", res.Iterations["0"])
	}
	if fast.runs != 3 {
		t.Errorf("every controller at a level runs each iteration, fast ran %d", fast.runs)
	}
	if j.count("solve:gas") != 3 {
		t.Errorf("solves = %d, want 3", j.count("solve:gas"))
	}
	if len(res.History) != 3 || res.History[0].Converged || !res.History[2].Converged {
		t.Errorf("history = %+v", res.History)
	}
	if res.History[0].Residual != 2 || res.History[0].Unstable[0] != "slow" {
		t.Errorf("first record = %+v", res.History[0])
	}
}

func TestLevelNonConvergence(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	mn.Controllers.AddController(&stepper{name: "ok", j: j, needs: 1})
	mn.Controllers.AddController(&stepper{name: "stuck", j: j, needs: 100}, control.AtLevel(1))
	never := &stepper{name: "never", j: j, needs: 1}
	mn.Controllers.AddController(never, control.AtLevel(2))

	res, err := runEngine(t, mn, reg)
	if !errors.Is(err, ErrLevelNonConvergence) {
		t.Fatalf("expected level non-convergence, got %v", err)
	}
	if err.Error() != "non-convergence at level 1" {
		t.Errorf("message = %q", err.Error())
	}
	var re *RunError
	if !errors.As(err, &re) || !re.Level.Equal(control.L(1)) || re.Iteration != 5 {
		t.Errorf("run error = %+v", re)
	}
	if res.State != Failed || !res.Level.Equal(control.L(1)) {
		t.Errorf("result state %s at level %s", res.State, res.Level)
	}
	if never.runs != 0 {
		t.Error("a higher level ran after a lower level failed")
	}
	if res.Iterations["1"] != 5 {
		t.Errorf("iterations at level 1 = %d, want 5", res.Iterations["1"])
	}
}

func TestControllerFailureAborts(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	boom := errors.New("boom")
	mn.Controllers.AddController(&stepper{name: "bad", j: j, needs: 1, err: boom})
	after := &stepper{name: "after", j: j, needs: 1}
	mn.Controllers.AddController(after, control.Order(1))

	res, err := runEngine(t, mn, reg)
	if !errors.Is(err, ErrControllerFailure) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped controller failure, got %v", err)
	}
	var re *RunError
	if errors.As(err, &re) && re.Controller != "bad" {
		t.Errorf("controller = %q", re.Controller)
	}
	if after.runs != 0 || j.count("solve:gas") != 0 {
		t.Error("run continued after controller failure")
	}
	if res.State != Failed {
		t.Errorf("state = %s", res.State)
	}
}

func TestSolverFailureSurfaces(t *testing.T) {
	mn, _, j := setup(t, "gas")
	reg := solver.NewRegistry().RegisterDomain(network.Gas, solver.Func(func(_ context.Context, n network.Network) error {
		return solver.Fail(n.Name(), solver.NonConvergence, 10, nil)
	}))
	mn.Controllers.AddController(&stepper{name: "p", j: j, needs: 1})

	_, err := runEngine(t, mn, reg)
	if !errors.Is(err, ErrSolverNonConvergence) || !errors.Is(err, solver.ErrNotConverged) {
		t.Fatalf("expected solver failure, got %v", err)
	}
	var f *solver.Failure
	if !errors.As(err, &f) || f.Iterations != 10 {
		t.Errorf("solver failure not reachable: %v", err)
	}
}

func TestMissingSolver(t *testing.T) {
	mn, _, j := setup(t, "gas")
	mn.Controllers.AddController(&stepper{name: "p", j: j, needs: 1})
	_, err := runEngine(t, mn, solver.NewRegistry())
	if !errors.Is(err, solver.ErrNoSolver) {
		t.Errorf("expected missing solver, got %v", err)
	}
}

func TestTargetedSolves(t *testing.T) {
	mn, reg, j := setup(t, "a", "b", "c")
	mn.Controllers.AddController(targeted{&stepper{name: "x", j: j, needs: 1, targets: []string{"c", "a"}}})
	mn.Controllers.AddController(targeted{&stepper{name: "y", j: j, needs: 1, targets: []string{"a"}}})

	if _, err := runEngine(t, mn, reg); err != nil {
		t.Fatal(err)
	}
	want := "x,y,solve:a,solve:c"
	if got := strings.Join(j.events, ","); got != want {
		t.Errorf("sequence = %s, want %s", got, want)
	}
}

func TestUntargetedControllerSolvesAll(t *testing.T) {
	mn, reg, j := setup(t, "a", "b")
	mn.Controllers.AddController(targeted{&stepper{name: "x", j: j, needs: 1, targets: []string{"a"}}})
	mn.Controllers.AddController(&stepper{name: "y", j: j, needs: 1})

	if _, err := runEngine(t, mn, reg); err != nil {
		t.Fatal(err)
	}
	if j.count("solve:a") != 1 || j.count("solve:b") != 1 {
		t.Errorf("expected each network solved once, got %v", j.events)
	}
}

func TestUnknownTarget(t *testing.T) {
	mn, reg, j := setup(t, "a")
	mn.Controllers.AddController(targeted{&stepper{name: "x", j: j, needs: 1, targets: []string{"nope"}}})
	_, err := runEngine(t, mn, reg)
	if !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("expected unknown target, got %v", err)
	}
}

func TestVacuousLevel(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	mn.Controllers.AddController(&stepper{name: "live", j: j, needs: 1})
	mn.Controllers.AddController(&stepper{name: "off", j: j, needs: 100}, control.AtLevel(3), control.InService(false))

	res, err := runEngine(t, mn, reg)
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := res.Iterations["3"]; !ok || n != 0 {
		t.Errorf("disabled level should be visited with no iterations, got %v", res.Iterations)
	}
	if res.State != Converged {
		t.Errorf("state = %s", res.State)
	}
}

func TestRecycleHint(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	p := &stepper{name: "p", j: j, needs: 1}
	mn.Controllers.AddController(p, control.Recycle(true))
	if _, err := runEngine(t, mn, reg); err != nil {
		t.Fatal(err)
	}
	if !p.recycle {
		t.Error("recycle hint not handed to the controller")
	}
}

func TestCancelledContext(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	mn.Controllers.AddController(&stepper{name: "p", j: j, needs: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(mn, reg, DefaultConfig()).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if res.State != Failed || len(j.events) != 0 {
		t.Errorf("state %s after events %v", res.State, j.events)
	}
}

func TestInvalidConfig(t *testing.T) {
	mn, reg, _ := setup(t, "gas")
	if _, err := New(mn, reg, Config{}).Run(context.Background()); err == nil {
		t.Error("expected error for zero iteration ceiling")
	}
}

func TestCollectionSolvesMembers(t *testing.T) {
	mn, reg, j := setup(t)
	lgas, _ := network.LookupFluid("lgas")
	mn.AddNetwork(network.NewCollection("cluster",
		network.NewGasNet("g1", lgas), network.NewGasNet("g2", lgas)), "cluster", false)

	if _, err := runEngine(t, mn, reg); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(j.events, ","); got != "solve:g1,solve:g2" {
		t.Errorf("events = %s", got)
	}
}

type countingObserver struct {
	controllers, solves, iterations, finished int
	last                                      *Result
}

func (o *countingObserver) ControllerRun(control.Level, string, time.Duration, error) {
	o.controllers++
}
func (o *countingObserver) NetworkSolved(string, time.Duration, error) { o.solves++ }
func (o *countingObserver) IterationDone(IterationRecord)              { o.iterations++ }
func (o *countingObserver) RunFinished(r *Result)                      { o.finished++; o.last = r }

func TestObserver(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	mn.Controllers.AddController(&stepper{name: "p", j: j, needs: 2}, control.InitialRun(true))
	obs := &countingObserver{}

	res, err := runEngine(t, mn, reg, WithObserver(obs))
	if err != nil {
		t.Fatal(err)
	}
	if obs.controllers != 2 || obs.solves != 1 || obs.iterations != 1 || obs.finished != 1 {
		t.Errorf("observer counts = %+v", obs)
	}
	if obs.last != res {
		t.Error("observer should receive the run result")
	}
}

func TestSpans(t *testing.T) {
	mn, reg, j := setup(t, "gas")
	mn.Controllers.AddController(&stepper{name: "a", j: j, needs: 1})
	mn.Controllers.AddController(&stepper{name: "b", j: j, needs: 1}, control.AtLevel(1))

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	if _, err := runEngine(t, mn, reg, WithTracer(tp.Tracer("test"))); err != nil {
		t.Fatal(err)
	}

	spans := sr.Ended()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	levels := 0
	for _, s := range spans {
		switch s.Name() {
		case "coupling.Level":
			levels++
		case "coupling.Run":
		default:
			t.Errorf("unexpected span %q", s.Name())
		}
	}
	if levels != 2 {
		t.Errorf("level spans = %d, want 2", levels)
	}
}

func TestStateString(t *testing.T) {
	if Converged.String() != "CONVERGED" || !Failed.Terminal() || LevelIteration.Terminal() {
		t.Error("state helpers")
	}
}
