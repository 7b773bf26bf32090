package config

import (
	"sort"

	"github.com/san-kum/multinet/internal/network"
)

// Presets are the built-in scenarios. GetPreset hands out copies.
var Presets = map[string]*Config{
	"single_pipe":       singlePipe(),
	"tee":               tee(),
	"direction_changed": directionChanged(),
	"mesh":              mesh(),
	"p2g":               powerToGas(),
	"g2p":               gasToPower(),
	"heat_pump":         heatPump(),
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func scenario(name string, nets []NetworkConfig, ctrls ...ControllerConfig) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Networks = nets
	cfg.Controllers = ctrls
	return cfg
}

func junctions(n int, pnBar, tK float64) []network.Junction {
	js := make([]network.Junction, n)
	for i := range js {
		js[i] = network.Junction{PnBar: pnBar, TfluidK: tK}
	}
	return js
}

// heatPipe matches the 2.5 km DN75 pipes of the bidirectional heat test grids.
func heatPipe(from, to int) network.Pipe {
	return network.Pipe{
		FromJunction: from, ToJunction: to,
		LengthKm: 2.5, DiameterM: 0.075, KMm: 0.1,
		AlphaWPerM2K: 5, Sections: 5, InService: true,
	}
}

func sink(j int, mdot float64) network.Sink {
	return network.Sink{Junction: j, MdotKgPerS: mdot, Scaling: 1, InService: true}
}

func seed(net, element string, index []int, value float64) ControllerConfig {
	return ControllerConfig{
		Type:       "const",
		Name:       "seed_" + net,
		Params:     ControllerParams{Net: net, Element: element, Index: index, Value: value},
		Level:      []int{0},
		InitialRun: true,
	}
}

func singlePipe() *Config {
	return scenario("single_pipe", []NetworkConfig{{
		Name: "gas", Kind: "gas", Fluid: "lgas",
		Junction: junctions(2, 5, 283.15),
		Pipe: []network.Pipe{{
			FromJunction: 0, ToJunction: 1, LengthKm: 1, DiameterM: 0.2,
			KMm: 0.1, Sections: 1, InService: true,
		}},
		ExtGrid: []ExtGridConfig{{Junction: 0, PBar: 5, TK: 283.15}},
		Sink:    []network.Sink{sink(1, 0)},
	}}, seed("gas", "sink", []int{0}, 1))
}

func tee() *Config {
	return scenario("tee", []NetworkConfig{{
		Name: "heat", Kind: "heat", Fluid: "water",
		Junction: junctions(4, 5, 283),
		Pipe:     []network.Pipe{heatPipe(0, 1), heatPipe(1, 2), heatPipe(1, 3)},
		ExtGrid:  []ExtGridConfig{{Junction: 0, PBar: 5, TK: 350}},
		Sink:     []network.Sink{sink(2, 0), sink(3, 0)},
	}}, seed("heat", "sink", []int{0, 1}, 1))
}

// directionChanged feeds one offtake from two ext grids, so one of the pipes
// carries flow against its from/to orientation.
func directionChanged() *Config {
	return scenario("direction_changed", []NetworkConfig{{
		Name: "heat", Kind: "heat", Fluid: "water",
		Junction: junctions(4, 5, 283),
		Pipe:     []network.Pipe{heatPipe(0, 2), heatPipe(2, 1), heatPipe(2, 3)},
		ExtGrid: []ExtGridConfig{
			{Junction: 0, PBar: 5, TK: 350},
			{Junction: 1, PBar: 5, TK: 350},
		},
		Sink: []network.Sink{sink(3, 0)},
	}}, seed("heat", "sink", []int{0}, 1))
}

func mesh() *Config {
	return scenario("mesh", []NetworkConfig{{
		Name: "heat", Kind: "heat", Fluid: "water",
		Junction: junctions(4, 5, 283),
		Pipe:     []network.Pipe{heatPipe(0, 1), heatPipe(1, 2), heatPipe(1, 3), heatPipe(3, 2)},
		ExtGrid:  []ExtGridConfig{{Junction: 0, PBar: 5, TK: 350}},
		Sink:     []network.Sink{sink(2, 0)},
	}}, seed("heat", "sink", []int{0}, 1))
}

func powerGrid(loads ...network.Load) NetworkConfig {
	return NetworkConfig{
		Name: "power", Kind: "power", BaseMVA: 1,
		Bus: []network.Bus{{Name: "grid", VnKV: 20}, {Name: "plant", VnKV: 20}},
		Line: []network.Line{{
			FromBus: 0, ToBus: 1, LengthKm: 5, XOhmPerKm: 0.4, MaxIKA: 0.4, InService: true,
		}},
		Load:    loads,
		SGen:    []network.SGen{{Name: "chp", Bus: 1, Scaling: 1, InService: true}},
		ExtGrid: []ExtGridConfig{{Bus: 0}},
	}
}

func gasGrid() NetworkConfig {
	return NetworkConfig{
		Name: "gas", Kind: "gas", Fluid: "lgas",
		Junction: junctions(3, 5, 283.15),
		Pipe: []network.Pipe{
			{FromJunction: 0, ToJunction: 1, LengthKm: 10, DiameterM: 0.3, KMm: 0.1, Sections: 1, InService: true},
			{FromJunction: 1, ToJunction: 2, LengthKm: 5, DiameterM: 0.2, KMm: 0.1, Sections: 1, InService: true},
		},
		ExtGrid: []ExtGridConfig{{Junction: 0, PBar: 5, TK: 283.15}},
		Sink:    []network.Sink{sink(2, 0.2)},
		Source:  []network.Source{{Name: "electrolyser", Junction: 1, Scaling: 1, InService: true}},
	}
}

// powerToGas drives an electrolyser from the power grid and, one level later,
// charges the gas supply's compressor back to the power grid.
func powerToGas() *Config {
	return scenario("p2g",
		[]NetworkConfig{
			powerGrid(
				network.Load{Name: "electrolyser", Bus: 1, PMW: 2, Scaling: 1, InService: true},
				network.Load{Name: "compressor", Bus: 0, Scaling: 1, InService: true},
			),
			gasGrid(),
		},
		ControllerConfig{
			Type: "p2g", Name: "electrolyser",
			Params: ControllerParams{PowerNet: "power", Loads: []int{0}, GasNet: "gas", Sources: []int{0}, Efficiency: 0.7},
			Level:  []int{0},
		},
		ControllerConfig{
			Type: "compressor", Name: "compressor",
			Params: ControllerParams{GasNet: "gas", ExtGrids: []int{0}, PowerNet: "power", Load: 1, SpecificEnergy: 0.3},
			Level:  []int{1},
		},
	)
}

func gasToPower() *Config {
	return scenario("g2p",
		[]NetworkConfig{
			gasGrid(),
			powerGrid(network.Load{Name: "demand", Bus: 1, PMW: 5, Scaling: 1, InService: true}),
		},
		seed("gas", "sink", []int{0}, 0.1),
		ControllerConfig{
			Type: "g2p", Name: "chp",
			Params: ControllerParams{GasNet: "gas", Sinks: []int{0}, PowerNet: "power", SGens: []int{0}, Efficiency: 0.45},
			Level:  []int{1},
		},
	)
}

func heatPump() *Config {
	heat := mesh().Networks[0]
	heat.Source = []network.Source{{Name: "heat_pump", Junction: 3, Scaling: 1, InService: true}}
	return scenario("heat_pump",
		[]NetworkConfig{
			powerGrid(network.Load{Name: "heat_pump", Bus: 1, PMW: 0.02, Scaling: 1, InService: true}),
			heat,
		},
		seed("heat", "sink", []int{0}, 1),
		ControllerConfig{
			Type: "p2h", Name: "heat_pump",
			Params: ControllerParams{PowerNet: "power", Loads: []int{0}, HeatNet: "heat", Sources: []int{0}, COP: 3, DeltaTK: 30},
			Level:  []int{0},
			Order:  1,
		},
	)
}
