// Package tui shows the progress of a coupled run in the terminal.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/coupling"
	"github.com/san-kum/multinet/internal/viz"
)

const (
	width     = 60
	maxEvents = 8
)

type (
	controllerMsg struct {
		level control.Level
		name  string
		took  time.Duration
		err   error
	}
	solveMsg struct {
		name string
		took time.Duration
		err  error
	}
	iterationMsg coupling.IterationRecord
	resultMsg    struct{ res *coupling.Result }
	finishedMsg  struct{}
	tickMsg      time.Time
)

type model struct {
	scenario string
	started  time.Time
	elapsed  time.Duration

	level     string
	iteration int
	residuals []float64
	runs      int
	solves    int
	failures  int
	events    []string

	state    string
	terminal bool
	quitting bool
}

func newModel(scenario string) model {
	return model{
		scenario: scenario,
		started:  time.Now(),
		level:    "-",
		state:    coupling.Uninitialized.String(),
		events:   make([]string, 0, maxEvents),
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m.elapsed = time.Since(m.started)
		return m, tick()

	case controllerMsg:
		m.runs++
		if msg.err != nil {
			m.failures++
			m.log(fmt.Sprintf("controller %s failed at level %s: %v", msg.name, msg.level, msg.err))
		}
		if m.state == coupling.Uninitialized.String() {
			m.state = coupling.InitialRun.String()
		}

	case solveMsg:
		m.solves++
		if msg.err != nil {
			m.failures++
			m.log(fmt.Sprintf("%s did not solve: %v", msg.name, msg.err))
		} else {
			m.log(fmt.Sprintf("solved %s in %s", msg.name, msg.took.Round(time.Microsecond)))
		}

	case iterationMsg:
		m.state = coupling.LevelIteration.String()
		m.level = msg.Level.String()
		m.iteration = msg.Iteration
		if !math.IsInf(msg.Residual, 0) && !math.IsNaN(msg.Residual) {
			m.residuals = append(m.residuals, msg.Residual)
		}
		status := "unstable"
		if msg.Converged {
			status = "stable"
		}
		m.log(fmt.Sprintf("level %s iteration %d %s", m.level, msg.Iteration, status))

	case resultMsg:
		if msg.res != nil {
			m.state = msg.res.State.String()
			m.terminal = msg.res.State.Terminal()
			m.elapsed = msg.res.Duration
		}

	case finishedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) log(line string) {
	if len(m.events) == maxEvents {
		copy(m.events, m.events[1:])
		m.events = m.events[:maxEvents-1]
	}
	m.events = append(m.events, line)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(viz.Header("multinet " + m.scenario))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s %s   %s %s\n",
		viz.Label("state:"), viz.StateBadge(m.state),
		viz.Label("elapsed:"), viz.Value(m.elapsed.Round(time.Millisecond).String()))
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s   %s %s\n",
		viz.Label("level:"), viz.Value(m.level),
		viz.Label("iteration:"), viz.Value(fmt.Sprint(m.iteration)),
		viz.Label("controller runs:"), viz.Value(fmt.Sprint(m.runs)),
		viz.Label("solves:"), viz.Value(fmt.Sprint(m.solves)))
	if m.failures > 0 {
		fmt.Fprintf(&b, "%s %s\n", viz.Label("failures:"), viz.StateBadge(fmt.Sprint(m.failures)))
	}

	b.WriteString("\n")
	b.WriteString(viz.Label("residual "))
	b.WriteString(viz.SparklineChart(m.residuals, width-9))
	b.WriteString("\n")
	b.WriteString(viz.Separator(width))
	b.WriteString("\n")

	for _, ev := range m.events {
		b.WriteString("  " + ev + "\n")
	}
	if !m.quitting && !m.terminal {
		b.WriteString("\n" + viz.Label("q to stop") + "\n")
	}
	return b.String()
}

// Watcher is a coupling observer that renders the run as it happens.
type Watcher struct {
	program *tea.Program
}

func NewWatcher(scenario string, opts ...tea.ProgramOption) *Watcher {
	return &Watcher{program: tea.NewProgram(newModel(scenario), opts...)}
}

func (w *Watcher) ControllerRun(level control.Level, name string, d time.Duration, err error) {
	w.program.Send(controllerMsg{level: level, name: name, took: d, err: err})
}

func (w *Watcher) NetworkSolved(name string, d time.Duration, err error) {
	w.program.Send(solveMsg{name: name, took: d, err: err})
}

func (w *Watcher) IterationDone(rec coupling.IterationRecord) { w.program.Send(iterationMsg(rec)) }
func (w *Watcher) RunFinished(res *coupling.Result)           { w.program.Send(resultMsg{res: res}) }

// Run calls fn in the background and renders until it returns. Quitting
// the view cancels the context passed to fn.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) (*coupling.Result, error)) (*coupling.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		res *coupling.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := fn(ctx)
		done <- outcome{res: res, err: err}
		w.program.Send(finishedMsg{})
	}()

	_, uiErr := w.program.Run()
	cancel()
	out := <-done
	if uiErr != nil && out.err == nil {
		return out.res, uiErr
	}
	return out.res, out.err
}
