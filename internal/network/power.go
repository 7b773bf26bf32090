package network

type Bus struct {
	Name string  `yaml:"name"`
	VnKV float64 `yaml:"vn_kv"`
}

type Line struct {
	Name      string  `yaml:"name"`
	FromBus   int     `yaml:"from_bus"`
	ToBus     int     `yaml:"to_bus"`
	LengthKm  float64 `yaml:"length_km"`
	XOhmPerKm float64 `yaml:"x_ohm_per_km"`
	MaxIKA    float64 `yaml:"max_i_ka"`
	InService bool    `yaml:"in_service"`
}

type Load struct {
	Name      string  `yaml:"name"`
	Bus       int     `yaml:"bus"`
	PMW       float64 `yaml:"p_mw"`
	Scaling   float64 `yaml:"scaling"`
	InService bool    `yaml:"in_service"`
}

// SGen is a static generator injecting a fixed active power.
type SGen struct {
	Name      string  `yaml:"name"`
	Bus       int     `yaml:"bus"`
	PMW       float64 `yaml:"p_mw"`
	Scaling   float64 `yaml:"scaling"`
	InService bool    `yaml:"in_service"`
}

// PowerExtGrid is the slack connection of a power network.
type PowerExtGrid struct {
	Name     string  `yaml:"name"`
	Bus      int     `yaml:"bus"`
	VaDegree float64 `yaml:"va_degree"`
}

type ResBus struct {
	VaDegree float64
	PMW      float64
}

type ResLine struct {
	PFromMW        float64
	LoadingPercent float64
}

type ResExtGrid struct {
	PMW float64
}

// PowerNet is an electrical network with DC power-flow results.
type PowerNet struct {
	name string

	Bus     []Bus
	Line    []Line
	Load    []Load
	SGen    []SGen
	ExtGrid []PowerExtGrid
	BaseMVA float64
	FreqHz  float64

	ResBus     []ResBus
	ResLine    []ResLine
	ResExtGrid []ResExtGrid
	Converged  bool
}

func NewPowerNet(name string) *PowerNet {
	return &PowerNet{name: name, BaseMVA: 1, FreqHz: 50}
}

func (n *PowerNet) Name() string   { return n.name }
func (n *PowerNet) Domain() Domain { return Power }
func (n *PowerNet) Buses() []Bus   { return n.Bus }
func (n *PowerNet) Lines() []Line  { return n.Line }

func (n *PowerNet) Tables() []TableInfo {
	return []TableInfo{
		{"bus", len(n.Bus)},
		{"line", len(n.Line)},
		{"load", len(n.Load)},
		{"sgen", len(n.SGen)},
		{"ext_grid", len(n.ExtGrid)},
		{"res_bus", len(n.ResBus)},
		{"res_line", len(n.ResLine)},
		{"res_ext_grid", len(n.ResExtGrid)},
	}
}

// AddBus appends a bus and returns its index.
func (n *PowerNet) AddBus(name string, vnKV float64) int {
	n.Bus = append(n.Bus, Bus{Name: name, VnKV: vnKV})
	return len(n.Bus) - 1
}

func (n *PowerNet) AddLine(from, to int, lengthKm, xOhmPerKm float64) int {
	n.Line = append(n.Line, Line{FromBus: from, ToBus: to, LengthKm: lengthKm, XOhmPerKm: xOhmPerKm, InService: true})
	return len(n.Line) - 1
}

func (n *PowerNet) AddLoad(bus int, pMW float64) int {
	n.Load = append(n.Load, Load{Bus: bus, PMW: pMW, Scaling: 1, InService: true})
	return len(n.Load) - 1
}

func (n *PowerNet) AddSGen(bus int, pMW float64) int {
	n.SGen = append(n.SGen, SGen{Bus: bus, PMW: pMW, Scaling: 1, InService: true})
	return len(n.SGen) - 1
}

func (n *PowerNet) AddExtGrid(bus int) int {
	n.ExtGrid = append(n.ExtGrid, PowerExtGrid{Bus: bus})
	return len(n.ExtGrid) - 1
}

func (n *PowerNet) Clone() Network {
	c := *n
	c.Bus = cloneSlice(n.Bus)
	c.Line = cloneSlice(n.Line)
	c.Load = cloneSlice(n.Load)
	c.SGen = cloneSlice(n.SGen)
	c.ExtGrid = cloneSlice(n.ExtGrid)
	c.ResBus = cloneSlice(n.ResBus)
	c.ResLine = cloneSlice(n.ResLine)
	c.ResExtGrid = cloneSlice(n.ResExtGrid)
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	c := make([]T, len(s))
	copy(c, s)
	return c
}
