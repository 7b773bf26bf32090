package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/coupling"
	"github.com/san-kum/multinet/internal/multinet"
)

// Describe renders the network listing of mn, colored per domain.
func Describe(mn *multinet.MultiNetwork) string {
	var b strings.Builder
	b.WriteString(Header(fmt.Sprintf("%s (multinet %s)", mn.Name, mn.Version)))
	b.WriteString("\n")

	entries := mn.Entries()
	if len(entries) == 0 {
		b.WriteString(Label("  no networks"))
		b.WriteString("\n")
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s %s\n", DomainStyle(e.Class).Render(e.Name), Label("("+e.Label()+")"))
	}

	if tables := mn.ParamTables(); len(tables) > 0 {
		b.WriteString(Label("parameter tables:"))
		b.WriteString("\n")
		for _, t := range tables {
			fmt.Fprintf(&b, "  %s %s\n", t.Name, Value(fmt.Sprintf("%d", t.Rows)))
		}
	}
	return b.String()
}

// Summary renders the outcome of a coupled run.
func Summary(res *coupling.Result) string {
	var b strings.Builder
	b.WriteString(Header("coupled run"))
	b.WriteString("\n")

	row := func(label, value string) {
		fmt.Fprintf(&b, "  %-14s %s\n", Label(label), value)
	}
	row("state", StateBadge(res.State.String()))
	row("duration", Value(res.Duration.String()))
	row("initial runs", Value(fmt.Sprint(res.InitialRuns)))
	row("solves", Value(fmt.Sprint(res.Solves)))

	levels := make([]string, 0, len(res.Iterations))
	for l := range res.Iterations {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return parseLevel(levels[i]).Compare(parseLevel(levels[j])) < 0 })
	for _, l := range levels {
		row("level "+l, Value(fmt.Sprintf("%d iterations", res.Iterations[l])))
	}

	if res.Err != nil {
		row("error", CurrentTheme.fg(CurrentTheme.Error).Render(res.Err.Error()))
	}
	return b.String()
}

// parseLevel reads back Level.String output for ordering.
func parseLevel(s string) control.Level {
	s = strings.Trim(s, "()")
	var parts []int
	for _, p := range strings.Split(s, ",") {
		var v int
		if _, err := fmt.Sscan(strings.TrimSpace(p), &v); err == nil {
			parts = append(parts, v)
		}
	}
	return control.L(parts...)
}

// Residuals extracts the residual of every iteration in the run history.
func Residuals(history []coupling.IterationRecord) []float64 {
	out := make([]float64, len(history))
	for i, rec := range history {
		out[i] = rec.Residual
	}
	return out
}

// PlotResiduals charts log10 of the residuals. Zero and non-finite values
// are clamped so converged iterations stay on the chart.
func PlotResiduals(values []float64, caption string) string {
	if len(values) == 0 {
		return Label("no iterations to plot")
	}

	const floor = -12.0
	data := make([]float64, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			data[i] = 0
			if i > 0 {
				data[i] = data[i-1]
			}
		case v <= 0:
			data[i] = floor
		default:
			data[i] = max(math.Log10(v), floor)
		}
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}

	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(60),
		asciigraph.Caption(caption),
	)
}
