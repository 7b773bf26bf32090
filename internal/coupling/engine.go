// Package coupling runs the controllers of a multinet against its domain
// solvers, level by level, until every level has stabilised.
package coupling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/multinet"
	"github.com/san-kum/multinet/internal/network"
	"github.com/san-kum/multinet/internal/solver"
)

const tracerName = "github.com/san-kum/multinet/internal/coupling"

type Config struct {
	// MaxIterations bounds the passes over a single level.
	MaxIterations int
}

func DefaultConfig() Config {
	return Config{MaxIterations: 30}
}

type Engine struct {
	mn        *multinet.MultiNetwork
	solvers   *solver.Registry
	cfg       Config
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
	state     State
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.AddObserver(o) }
}

func New(mn *multinet.MultiNetwork, solvers *solver.Registry, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		mn:        mn,
		solvers:   solvers,
		cfg:       cfg,
		logger:    mn.Logger(),
		observers: make([]Observer, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e
}

func (e *Engine) AddObserver(o Observer) {
	if o != nil {
		e.observers = append(e.observers, o)
	}
}

// State is the protocol state reached by the last Run.
func (e *Engine) State() State { return e.state }

// run carries the bookkeeping of a single Run call.
type run struct {
	*Engine
	res   *Result
	level control.Level
	iter  int
}

// Run executes the initial-run pass and then every level in ascending order.
// Networks are mutated in place and keep their last state on failure.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.validateConfig(); err != nil {
		return nil, err
	}

	start := time.Now()
	e.state = Uninitialized
	r := &run{
		Engine: e,
		res:    &Result{State: Uninitialized, Iterations: make(map[string]int)},
	}

	ctx, span := e.tracer.Start(ctx, "coupling.Run", trace.WithAttributes(
		attribute.String("multinet.name", e.mn.Name),
		attribute.Int("multinet.networks", e.mn.Len()),
		attribute.Int("multinet.controllers", e.mn.Controllers.Len()),
	))
	defer span.End()

	e.logger.Info("coupled run started",
		"multinet", e.mn.Name, "networks", e.mn.Len(), "controllers", e.mn.Controllers.Len())

	err := r.execute(ctx)
	r.res.Duration = time.Since(start)
	if err != nil {
		r.res.Err = err
		r.transition(Failed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("coupled run failed", "level", r.level.String(), "iteration", r.iter, "err", err)
	} else {
		r.transition(Converged)
		span.SetStatus(codes.Ok, "")
		e.logger.Info("coupled run converged",
			"iterations", r.res.TotalIterations(), "solves", r.res.Solves, "duration", r.res.Duration)
	}
	span.SetAttributes(
		attribute.String("coupling.state", r.res.State.String()),
		attribute.Int("coupling.iterations", r.res.TotalIterations()),
	)

	for _, obs := range e.observers {
		obs.RunFinished(r.res)
	}
	return r.res, err
}

func (e *Engine) validateConfig() error {
	if e.cfg.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", e.cfg.MaxIterations)
	}
	if e.solvers == nil {
		return errors.New("coupling: no solver registry")
	}
	return nil
}

func (r *run) transition(s State) {
	r.state = s
	r.res.State = s
}

func (r *run) execute(ctx context.Context) error {
	table := r.mn.Controllers
	for _, row := range table.Rows() {
		if rc, ok := row.Controller.(control.Recycler); ok {
			rc.SetRecycle(row.Recycle)
		}
	}

	plan := table.Plan()
	if !hasInService(plan) {
		// Nothing couples the networks: a plain solve of each.
		r.transition(LevelIteration)
		r.level = control.L(0)
		r.iter = 1
		solved, err := r.solveAll(ctx, r.mn.Names())
		if err != nil {
			return err
		}
		r.res.Level = r.level
		r.res.Iterations[r.level.String()] = 1
		r.res.History = append(r.res.History, IterationRecord{Level: r.level, Iteration: 1, Converged: true, Solved: solved})
		return nil
	}

	r.transition(InitialRun)
	for _, row := range plan.InitialRuns {
		r.level = row.Level
		if err := r.runController(ctx, row); err != nil {
			return err
		}
		r.res.InitialRuns++
	}

	r.transition(LevelIteration)
	for _, step := range plan.Steps {
		if err := r.runLevel(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func hasInService(p control.Plan) bool {
	for _, s := range p.Steps {
		if len(s.Rows) > 0 {
			return true
		}
	}
	return false
}

func (r *run) runLevel(ctx context.Context, step control.Step) (err error) {
	r.level = step.Level
	r.res.Level = step.Level
	key := step.Level.String()

	if len(step.Rows) == 0 {
		r.logger.Debug("level has no controllers in service", "level", key)
		r.res.Iterations[key] = 0
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "coupling.Level", trace.WithAttributes(
		attribute.String("coupling.level", key),
		attribute.Int("coupling.controllers", len(step.Rows)),
	))
	defer func() {
		span.SetAttributes(attribute.Int("coupling.iterations", r.res.Iterations[key]))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	targets, err := r.targets(step)
	if err != nil {
		return err
	}

	for r.iter = 1; r.iter <= r.cfg.MaxIterations; r.iter++ {
		r.res.Iterations[key] = r.iter
		for _, row := range step.Rows {
			if err := r.runController(ctx, row); err != nil {
				return err
			}
		}

		solved, err := r.solveAll(ctx, targets)
		if err != nil {
			return err
		}

		rec := IterationRecord{Level: step.Level, Iteration: r.iter, Solved: solved}
		for _, row := range step.Rows {
			if rs, ok := row.Controller.(control.Residualer); ok {
				rec.Residual = math.Max(rec.Residual, rs.Residual())
			}
			if !row.Controller.IsConverged() {
				rec.Unstable = append(rec.Unstable, row.Name())
			}
		}
		rec.Converged = len(rec.Unstable) == 0
		r.res.History = append(r.res.History, rec)
		for _, obs := range r.observers {
			obs.IterationDone(rec)
		}
		r.logger.Debug("level iteration done",
			"level", key, "iteration", r.iter, "converged", rec.Converged, "residual", rec.Residual)

		if rec.Converged {
			r.logger.Info("level converged", "level", key, "iterations", r.iter)
			return nil
		}
	}

	r.iter = r.cfg.MaxIterations
	return &RunError{
		State:     LevelIteration,
		Level:     step.Level,
		Iteration: r.cfg.MaxIterations,
		Reason:    fmt.Sprintf("non-convergence at level %s", key),
		Category:  ErrLevelNonConvergence,
	}
}

// targets resolves the networks solved after the controllers of a step ran,
// in registry order.
func (r *run) targets(step control.Step) ([]string, error) {
	names := r.mn.Names()
	touched := make(map[string]bool)
	for _, row := range step.Rows {
		t, ok := row.Controller.(control.Targeter)
		if !ok {
			return names, nil
		}
		for _, name := range t.Targets() {
			if _, ok := r.mn.Network(name); !ok {
				return nil, &RunError{
					State:      LevelIteration,
					Level:      step.Level,
					Controller: row.Name(),
					Network:    name,
					Reason:     fmt.Sprintf("unknown target %q", name),
					Category:   ErrUnknownTarget,
				}
			}
			touched[name] = true
		}
	}
	out := make([]string, 0, len(touched))
	for _, name := range names {
		if touched[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

func (r *run) runController(ctx context.Context, row control.Row) error {
	if err := ctx.Err(); err != nil {
		return r.cancelled(err)
	}
	name := row.Name()
	start := time.Now()
	err := row.Controller.Run(ctx, r.mn)
	for _, obs := range r.observers {
		obs.ControllerRun(row.Level, name, time.Since(start), err)
	}
	if err != nil {
		return &RunError{
			State:      r.state,
			Level:      row.Level,
			Controller: name,
			Iteration:  r.iter,
			Reason:     "controller run failed",
			Category:   ErrControllerFailure,
			Wrapped:    err,
		}
	}
	return nil
}

func (r *run) solveAll(ctx context.Context, names []string) ([]string, error) {
	solved := make([]string, 0, len(names))
	for _, name := range names {
		net, ok := r.mn.Network(name)
		if !ok {
			continue
		}
		if err := r.solve(ctx, name, net); err != nil {
			return solved, err
		}
		solved = append(solved, name)
	}
	return solved, nil
}

// solve runs the domain solver for net. Collections solve each member.
func (r *run) solve(ctx context.Context, name string, net network.Network) error {
	if c, ok := net.(*network.Collection); ok {
		for _, member := range c.Members() {
			if err := r.solve(ctx, name+"."+member.Name(), member); err != nil {
				return err
			}
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return r.cancelled(err)
	}

	s, err := r.solvers.Lookup(name, net)
	if err == nil {
		start := time.Now()
		err = s.Solve(ctx, net)
		for _, obs := range r.observers {
			obs.NetworkSolved(name, time.Since(start), err)
		}
		r.res.Solves++
	}
	if err != nil {
		return &RunError{
			State:     r.state,
			Level:     r.level,
			Network:   name,
			Iteration: r.iter,
			Reason:    "domain solve failed",
			Category:  ErrSolverNonConvergence,
			Wrapped:   err,
		}
	}
	return nil
}

func (r *run) cancelled(err error) error {
	return &RunError{
		State:     r.state,
		Level:     r.level,
		Iteration: r.iter,
		Reason:    "run cancelled",
		Wrapped:   err,
	}
}
