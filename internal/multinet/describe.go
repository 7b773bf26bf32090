package multinet

import (
	"fmt"
	"strings"

	"github.com/san-kum/multinet/internal/network"
)

// ParamTable is a populated parameter table of the container.
type ParamTable struct {
	Name string
	Rows int
}

// ParamTables lists the controller table when it has rows, and the standard
// type catalog whenever one is set.
func (m *MultiNetwork) ParamTables() []ParamTable {
	var tables []ParamTable
	if m.Controllers != nil && m.Controllers.Len() > 0 {
		tables = append(tables, ParamTable{Name: "controller", Rows: m.Controllers.Len()})
	}
	if m.StdTypes != nil {
		tables = append(tables, ParamTable{Name: "std_type", Rows: m.StdTypes.Len()})
	}
	return tables
}

// Entry is one line of the network listing.
type Entry struct {
	Name  string
	Class network.Class
	Count int
}

func (m *MultiNetwork) Entries() []Entry {
	entries := make([]Entry, 0, len(m.order))
	for _, name := range m.order {
		net := m.nets[name]
		entries = append(entries, Entry{Name: name, Class: network.Classify(net), Count: network.Count(net)})
	}
	return entries
}

// Label renders the entry's count with its classification.
func (e Entry) Label() string {
	switch e.Class {
	case network.ClassPower:
		return fmt.Sprintf("%d power network", e.Count)
	case network.ClassGas, network.ClassHeat:
		return fmt.Sprintf("%d pipe network", e.Count)
	case network.ClassAggregate:
		return fmt.Sprintf("%d nets", e.Count)
	}
	return fmt.Sprintf("%d network", e.Count)
}

// Describe summarises the registered networks and populated parameter tables.
func (m *MultiNetwork) Describe() string {
	var b strings.Builder
	b.WriteString("This multi net includes following nets:")
	for _, e := range m.Entries() {
		fmt.Fprintf(&b, "\n   - %s (%s)", e.Name, e.Label())
	}
	if tables := m.ParamTables(); len(tables) > 0 {
		b.WriteString("\nand the following parameter tables:")
		for _, t := range tables {
			fmt.Fprintf(&b, "\n   - %s (%d elements)", t.Name, t.Rows)
		}
	}
	return b.String()
}

func (m *MultiNetwork) String() string { return m.Describe() }

// CountByClass tallies registered networks per classification. Aggregates
// count their members under ClassAggregate.
func (m *MultiNetwork) CountByClass() map[network.Class]int {
	counts := make(map[network.Class]int)
	for _, e := range m.Entries() {
		counts[e.Class] += e.Count
	}
	return counts
}
