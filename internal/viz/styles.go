package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/multinet/internal/network"
)

// Header renders a bold title with a rule underneath.
func Header(title string) string {
	t := CurrentTheme
	if t.plain() {
		return title + "\n" + strings.Repeat("─", lipgloss.Width(title))
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(t.Muted).
		Render(title)
}

func Label(s string) string { return CurrentTheme.fg(CurrentTheme.Muted).Render(s) }

func Value(s string) string {
	st := CurrentTheme.fg(CurrentTheme.Accent)
	if !CurrentTheme.plain() {
		st = st.Bold(true)
	}
	return st.Render(s)
}

// StateBadge colors a coupling state name by outcome.
func StateBadge(state string) string {
	t := CurrentTheme
	c := t.Warning
	switch state {
	case "CONVERGED":
		c = t.Success
	case "FAILED":
		c = t.Error
	}
	st := t.fg(c)
	if !t.plain() {
		st = st.Bold(true)
	}
	return st.Render(state)
}

// DomainStyle returns the listing style of a network class.
func DomainStyle(class network.Class) lipgloss.Style {
	t := CurrentTheme
	switch class {
	case network.ClassPower:
		return t.fg(t.Power)
	case network.ClassGas:
		return t.fg(t.Gas)
	case network.ClassHeat:
		return t.fg(t.Heat)
	}
	return t.fg(t.Text)
}

// Separator draws a decorative rule.
func Separator(width int) string {
	if width < 8 {
		width = 8
	}
	mid := width / 2
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return Label(left + " ◆ " + right)
}

// SparklineChart renders a mini sparkline from values, sampled to width.
func SparklineChart(values []float64, width int) string {
	if width < 1 {
		width = 1
	}
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		b.WriteRune(chars[idx])
	}
	return b.String()
}
