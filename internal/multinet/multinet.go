// Package multinet holds the coupling container: a registry of power, gas and
// heat networks together with the controller table that couples them.
package multinet

import (
	"log/slog"

	"github.com/san-kum/multinet/internal/control"
	"github.com/san-kum/multinet/internal/network"
)

// Version tags the coupling-layer schema a MultiNetwork was built with.
const Version = "0.3.0"

const DefaultName = "multinet"

type MultiNetwork struct {
	Name    string
	Version string

	Controllers *control.Table
	StdTypes    *network.StdTypeCatalog

	nets  map[string]network.Network
	order []string

	// latest network per class, with the name it was registered under
	latest map[network.Class]entry

	logger *slog.Logger
}

type Option func(*MultiNetwork)

func WithLogger(logger *slog.Logger) Option {
	return func(m *MultiNetwork) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithStdTypes(c *network.StdTypeCatalog) Option {
	return func(m *MultiNetwork) { m.StdTypes = c }
}

func New(name string, opts ...Option) *MultiNetwork {
	if name == "" {
		name = DefaultName
	}
	m := &MultiNetwork{
		Name:        name,
		Version:     Version,
		Controllers: control.NewTable(),
		nets:        make(map[string]network.Network),
		latest:      make(map[network.Class]entry),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type entry struct {
	name string
	net  network.Network
}

// Named is a name/network pair for AddNetworks.
type Named struct {
	Name string
	Net  network.Network
}

func Pair(name string, net network.Network) Named {
	return Named{Name: name, Net: net}
}

// AddNetwork stores net under name. An existing name is kept, with a
// warning, unless overwrite is set.
func (m *MultiNetwork) AddNetwork(net network.Network, name string, overwrite bool) {
	if name == "" {
		m.logger.Warn("network name must not be empty; network not added")
		return
	}
	if net == nil {
		m.logger.Warn("nil network not added", "net_name", name)
		return
	}
	if _, exists := m.nets[name]; exists {
		if !overwrite {
			m.logger.Warn("a network with this name already exists; set overwrite to replace it",
				"net_name", name)
			return
		}
	} else {
		m.order = append(m.order, name)
	}
	m.nets[name] = net
	m.project(name, net)
}

// AddNetworks adds each pair in order. A skipped pair does not stop the rest.
func (m *MultiNetwork) AddNetworks(overwrite bool, pairs ...Named) {
	for _, p := range pairs {
		m.AddNetwork(p.Net, p.Name, overwrite)
	}
}

func (m *MultiNetwork) project(name string, net network.Network) {
	switch class := network.Classify(net); class {
	case network.ClassPower, network.ClassGas, network.ClassHeat:
		m.latest[class] = entry{name: name, net: net}
	case network.ClassAggregate:
	default:
		m.logger.Warn("network matches no known capability set; stored without projection",
			"net_name", name, "domain", net.Domain().String())
	}
}

func (m *MultiNetwork) Network(name string) (network.Network, bool) {
	net, ok := m.nets[name]
	return net, ok
}

// Names returns network names in insertion order.
func (m *MultiNetwork) Names() []string {
	return append([]string(nil), m.order...)
}

func (m *MultiNetwork) Len() int { return len(m.nets) }

func (m *MultiNetwork) Logger() *slog.Logger { return m.logger }

// PowerGrid returns the most recently registered power network, or nil.
func (m *MultiNetwork) PowerGrid() network.PowerGrid {
	if e, ok := m.latest[network.ClassPower]; ok {
		return e.net.(network.PowerGrid)
	}
	return nil
}

// PowerNet is PowerGrid narrowed to the reference implementation.
func (m *MultiNetwork) PowerNet() *network.PowerNet {
	p, _ := m.PowerGrid().(*network.PowerNet)
	return p
}

func (m *MultiNetwork) GasNet() network.Hydraulic  { return m.hydraulic(network.ClassGas) }
func (m *MultiNetwork) HeatNet() network.Hydraulic { return m.hydraulic(network.ClassHeat) }

func (m *MultiNetwork) hydraulic(class network.Class) network.Hydraulic {
	if e, ok := m.latest[class]; ok {
		return e.net.(network.Hydraulic)
	}
	return nil
}

func (m *MultiNetwork) PowerBuses() []network.Bus {
	if g := m.PowerGrid(); g != nil {
		return g.Buses()
	}
	return nil
}

func (m *MultiNetwork) PowerLines() []network.Line {
	if g := m.PowerGrid(); g != nil {
		return g.Lines()
	}
	return nil
}

func (m *MultiNetwork) GasJunctions() []network.Junction {
	if h := m.GasNet(); h != nil {
		return h.Junctions()
	}
	return nil
}

func (m *MultiNetwork) GasPipes() []network.Pipe {
	if h := m.GasNet(); h != nil {
		return h.Pipes()
	}
	return nil
}

func (m *MultiNetwork) HeatJunctions() []network.Junction {
	if h := m.HeatNet(); h != nil {
		return h.Junctions()
	}
	return nil
}

func (m *MultiNetwork) HeatPipes() []network.Pipe {
	if h := m.HeatNet(); h != nil {
		return h.Pipes()
	}
	return nil
}

// Clone returns a deep copy. Networks are cloned, the projection is carried
// over to the copies and the controller table is copied.
func (m *MultiNetwork) Clone() *MultiNetwork {
	c := &MultiNetwork{
		Name:        m.Name,
		Version:     m.Version,
		Controllers: m.Controllers.Clone(),
		StdTypes:    m.StdTypes.Clone(),
		nets:        make(map[string]network.Network, len(m.nets)),
		order:       append([]string(nil), m.order...),
		latest:      make(map[network.Class]entry, len(m.latest)),
		logger:      m.logger,
	}
	for _, name := range m.order {
		c.nets[name] = m.nets[name].Clone()
	}
	for class, e := range m.latest {
		// A projected network replaced by an overwrite of another class
		// is no longer in the registry and gets its own copy.
		if m.nets[e.name] == e.net {
			c.latest[class] = entry{name: e.name, net: c.nets[e.name]}
		} else {
			c.latest[class] = entry{name: e.name, net: e.net.Clone()}
		}
	}
	return c
}
