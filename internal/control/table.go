package control

import (
	"fmt"
	"sort"
)

// Descriptor is one row of the controller table.
type Descriptor struct {
	Controller Controller
	InService  bool
	Order      float64
	Level      Level
	InitialRun bool
	// Recycle allows the controller to reuse state from the previous
	// iteration. The table only carries the hint.
	Recycle bool
}

// Name returns the controller's own name, or its Go type.
func (d Descriptor) Name() string {
	if n, ok := d.Controller.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", d.Controller)
}

// Row is a descriptor together with its insertion index.
type Row struct {
	Index int
	Descriptor
}

type Table struct {
	rows []Descriptor
}

func NewTable() *Table {
	return &Table{rows: make([]Descriptor, 0)}
}

// Add appends a row and returns its index. Order and level need not be unique.
// A row without a controller is not added and Add returns -1.
func (t *Table) Add(d Descriptor) int {
	if d.Controller == nil {
		return -1
	}
	d.Level = d.Level.normalize()
	t.rows = append(t.rows, d)
	return len(t.rows) - 1
}

type Option func(*Descriptor)

func InService(v bool) Option      { return func(d *Descriptor) { d.InService = v } }
func Order(v float64) Option       { return func(d *Descriptor) { d.Order = v } }
func AtLevel(parts ...int) Option  { return func(d *Descriptor) { d.Level = L(parts...) } }
func InitialRun(v bool) Option     { return func(d *Descriptor) { d.InitialRun = v } }
func Recycle(v bool) Option        { return func(d *Descriptor) { d.Recycle = v } }
func WithLevel(level Level) Option { return func(d *Descriptor) { d.Level = L(level...) } }

// AddController adds c in service at level 0, order 0, unless options say otherwise.
func (t *Table) AddController(c Controller, opts ...Option) int {
	d := Descriptor{Controller: c, InService: true, Level: Level{0}}
	for _, opt := range opts {
		opt(&d)
	}
	return t.Add(d)
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Row(idx int) (Descriptor, bool) {
	if idx < 0 || idx >= len(t.rows) {
		return Descriptor{}, false
	}
	return t.rows[idx], true
}

// Rows returns the rows in insertion order.
func (t *Table) Rows() []Row {
	rows := make([]Row, len(t.rows))
	for i, d := range t.rows {
		rows[i] = Row{Index: i, Descriptor: d}
	}
	return rows
}

func (t *Table) SetInService(idx int, v bool) error {
	if idx < 0 || idx >= len(t.rows) {
		return fmt.Errorf("controller index %d out of range [0, %d)", idx, len(t.rows))
	}
	t.rows[idx].InService = v
	return nil
}

// Clone copies the table rows. Controllers implementing Cloner are copied too;
// all others are shared with the original.
func (t *Table) Clone() *Table {
	c := &Table{rows: make([]Descriptor, len(t.rows))}
	for i, d := range t.rows {
		d.Level = L(d.Level...)
		if cl, ok := d.Controller.(Cloner); ok {
			d.Controller = cl.CloneController()
		}
		c.rows[i] = d
	}
	return c
}

// Step is the set of in-service rows sharing one level, in execution order.
type Step struct {
	Level Level
	Rows  []Row
}

// Plan is the execution plan derived from the table.
type Plan struct {
	InitialRuns []Row
	Steps       []Step
}

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].Level.Compare(rows[j].Level); c != 0 {
			return c < 0
		}
		if rows[i].Order != rows[j].Order {
			return rows[i].Order < rows[j].Order
		}
		return rows[i].Index < rows[j].Index
	})
}

// Levels returns every distinct level in the table, ascending. Levels whose
// rows are all out of service are included.
func (t *Table) Levels() []Level {
	var levels []Level
	for _, d := range t.rows {
		found := false
		for _, l := range levels {
			if l.Equal(d.Level) {
				found = true
				break
			}
		}
		if !found {
			levels = append(levels, d.Level)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Compare(levels[j]) < 0 })
	return levels
}

// InitialRuns returns in-service rows flagged for the initial run in
// ascending (level, order).
func (t *Table) InitialRuns() []Row {
	var rows []Row
	for i, d := range t.rows {
		if d.InService && d.InitialRun {
			rows = append(rows, Row{Index: i, Descriptor: d})
		}
	}
	sortRows(rows)
	return rows
}

// Plan groups in-service rows by level. A level with no in-service rows
// yields a step with no rows.
func (t *Table) Plan() Plan {
	p := Plan{InitialRuns: t.InitialRuns()}
	for _, level := range t.Levels() {
		step := Step{Level: level}
		for i, d := range t.rows {
			if d.InService && d.Level.Equal(level) {
				step.Rows = append(step.Rows, Row{Index: i, Descriptor: d})
			}
		}
		sortRows(step.Rows)
		p.Steps = append(p.Steps, step)
	}
	return p
}
