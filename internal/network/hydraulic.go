package network

type Junction struct {
	Name    string  `yaml:"name"`
	PnBar   float64 `yaml:"pn_bar"`
	TfluidK float64 `yaml:"tfluid_k"`
}

type Pipe struct {
	Name         string  `yaml:"name"`
	FromJunction int     `yaml:"from_junction"`
	ToJunction   int     `yaml:"to_junction"`
	LengthKm     float64 `yaml:"length_km"`
	DiameterM    float64 `yaml:"diameter_m"`
	KMm          float64 `yaml:"k_mm"`
	AlphaWPerM2K float64 `yaml:"alpha_w_per_m2k"`
	Sections     int     `yaml:"sections"`
	InService    bool    `yaml:"in_service"`
}

// HydraulicExtGrid fixes pressure and temperature at a junction.
type HydraulicExtGrid struct {
	Name     string  `yaml:"name"`
	Junction int     `yaml:"junction"`
	PBar     float64 `yaml:"p_bar"`
	TK       float64 `yaml:"t_k"`
}

type Sink struct {
	Name       string  `yaml:"name"`
	Junction   int     `yaml:"junction"`
	MdotKgPerS float64 `yaml:"mdot_kg_per_s"`
	Scaling    float64 `yaml:"scaling"`
	InService  bool    `yaml:"in_service"`
}

type Source struct {
	Name       string  `yaml:"name"`
	Junction   int     `yaml:"junction"`
	MdotKgPerS float64 `yaml:"mdot_kg_per_s"`
	Scaling    float64 `yaml:"scaling"`
	InService  bool    `yaml:"in_service"`
}

type ResJunction struct {
	PBar float64
	TK   float64
}

// ResPipe holds the results of one pipe. The section profiles have one value
// per section boundary, Sections+1 in all, ordered from FromJunction to
// ToJunction whatever the flow direction.
type ResPipe struct {
	MdotKgPerS  float64
	VMeanMPerS  float64
	TOutK       float64
	TSectionK   []float64
	PSectionBar []float64
}

type ResHydraulicExtGrid struct {
	MdotKgPerS float64
}

// HydraulicNet is a pipe network carrying gas or heat.
type HydraulicNet struct {
	name    string
	carrier Domain

	Fluid    Fluid
	AmbientK float64
	Junction []Junction
	Pipe     []Pipe
	ExtGrid  []HydraulicExtGrid
	Sink     []Sink
	Source   []Source

	ResJunction []ResJunction
	ResPipe     []ResPipe
	ResExtGrid  []ResHydraulicExtGrid
	Converged   bool
}

func NewGasNet(name string, fluid Fluid) *HydraulicNet {
	return &HydraulicNet{name: name, carrier: Gas, Fluid: fluid, AmbientK: 293.15}
}

func NewHeatNet(name string, fluid Fluid) *HydraulicNet {
	return &HydraulicNet{name: name, carrier: Heat, Fluid: fluid, AmbientK: 293.15}
}

func (n *HydraulicNet) Name() string          { return n.name }
func (n *HydraulicNet) Domain() Domain        { return n.carrier }
func (n *HydraulicNet) Junctions() []Junction { return n.Junction }
func (n *HydraulicNet) Pipes() []Pipe         { return n.Pipe }

func (n *HydraulicNet) Tables() []TableInfo {
	return []TableInfo{
		{"junction", len(n.Junction)},
		{"pipe", len(n.Pipe)},
		{"ext_grid", len(n.ExtGrid)},
		{"sink", len(n.Sink)},
		{"source", len(n.Source)},
		{"res_junction", len(n.ResJunction)},
		{"res_pipe", len(n.ResPipe)},
		{"res_ext_grid", len(n.ResExtGrid)},
	}
}

func (n *HydraulicNet) AddJunction(pnBar, tfluidK float64) int {
	n.Junction = append(n.Junction, Junction{PnBar: pnBar, TfluidK: tfluidK})
	return len(n.Junction) - 1
}

// AddPipe appends a pipe with default roughness and no heat transfer.
func (n *HydraulicNet) AddPipe(from, to int, lengthKm, diameterM float64) int {
	n.Pipe = append(n.Pipe, Pipe{
		FromJunction: from,
		ToJunction:   to,
		LengthKm:     lengthKm,
		DiameterM:    diameterM,
		KMm:          0.1,
		Sections:     1,
		InService:    true,
	})
	return len(n.Pipe) - 1
}

func (n *HydraulicNet) AddExtGrid(junction int, pBar, tK float64) int {
	n.ExtGrid = append(n.ExtGrid, HydraulicExtGrid{Junction: junction, PBar: pBar, TK: tK})
	return len(n.ExtGrid) - 1
}

func (n *HydraulicNet) AddSink(junction int, mdot float64) int {
	n.Sink = append(n.Sink, Sink{Junction: junction, MdotKgPerS: mdot, Scaling: 1, InService: true})
	return len(n.Sink) - 1
}

func (n *HydraulicNet) AddSource(junction int, mdot float64) int {
	n.Source = append(n.Source, Source{Junction: junction, MdotKgPerS: mdot, Scaling: 1, InService: true})
	return len(n.Source) - 1
}

func (n *HydraulicNet) Clone() Network {
	c := *n
	c.Junction = cloneSlice(n.Junction)
	c.Pipe = cloneSlice(n.Pipe)
	c.ExtGrid = cloneSlice(n.ExtGrid)
	c.Sink = cloneSlice(n.Sink)
	c.Source = cloneSlice(n.Source)
	c.ResJunction = cloneSlice(n.ResJunction)
	c.ResPipe = cloneSlice(n.ResPipe)
	for i, r := range c.ResPipe {
		c.ResPipe[i].TSectionK = cloneSlice(r.TSectionK)
		c.ResPipe[i].PSectionBar = cloneSlice(r.PSectionBar)
	}
	c.ResExtGrid = cloneSlice(n.ResExtGrid)
	return &c
}
