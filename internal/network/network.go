package network

import (
	"fmt"
	"strings"
)

type Domain int

const (
	Unknown Domain = iota
	Power
	Gas
	Heat
	Aggregate
)

func (d Domain) String() string {
	switch d {
	case Power:
		return "power"
	case Gas:
		return "gas"
	case Heat:
		return "heat"
	case Aggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// ParseDomain maps a config kind to a Domain.
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(s) {
	case "power", "electric", "electricity":
		return Power, nil
	case "gas":
		return Gas, nil
	case "heat", "district_heating":
		return Heat, nil
	}
	return Unknown, fmt.Errorf("unknown network kind: %q", s)
}

// TableInfo names one tabular attribute of a network and its row count.
type TableInfo struct {
	Name string
	Rows int
}

type Network interface {
	Name() string
	Domain() Domain
	Tables() []TableInfo
	Clone() Network
}

type PowerGrid interface {
	Network
	Buses() []Bus
	Lines() []Line
}

type Hydraulic interface {
	Network
	Junctions() []Junction
	Pipes() []Pipe
}

// Class is the result of probing a network's capabilities.
type Class int

const (
	Unclassified Class = iota
	ClassPower
	ClassGas
	ClassHeat
	ClassAggregate
)

// Classify probes net for a known capability set. The Domain tag selects the
// candidate class; the capability interface must back it up.
func Classify(net Network) Class {
	if net == nil {
		return Unclassified
	}
	switch net.Domain() {
	case Power:
		if _, ok := net.(PowerGrid); ok {
			return ClassPower
		}
	case Gas:
		if _, ok := net.(Hydraulic); ok {
			return ClassGas
		}
	case Heat:
		if _, ok := net.(Hydraulic); ok {
			return ClassHeat
		}
	case Aggregate:
		if _, ok := net.(*Collection); ok {
			return ClassAggregate
		}
	}
	return Unclassified
}

// Count reports how many networks a registry entry stands for.
func Count(net Network) int {
	if c, ok := net.(*Collection); ok {
		return c.Len()
	}
	return 1
}

// Describe renders the populated tables of a single network.
func Describe(net Network) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s network %q", net.Domain(), net.Name())
	populated := 0
	for _, t := range net.Tables() {
		if t.Rows == 0 {
			continue
		}
		if populated == 0 {
			b.WriteString(" with the following tables:")
		}
		populated++
		fmt.Fprintf(&b, "\n   - %s (%d elements)", t.Name, t.Rows)
	}
	if populated == 0 {
		b.WriteString(" (empty)")
	}
	return b.String()
}
