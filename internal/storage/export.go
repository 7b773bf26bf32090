package storage

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/san-kum/multinet/internal/coupling"
	"github.com/san-kum/multinet/internal/multinet"
	"github.com/san-kum/multinet/internal/network"
)

// Float encodes NaN and infinities as null, which plain JSON cannot hold.
// Buses cut off from every ext grid carry NaN results.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

type Snapshot struct {
	Name     string            `json:"name"`
	Version  string            `json:"version"`
	State    string            `json:"state"`
	Networks []NetworkSnapshot `json:"networks"`
}

// NetworkSnapshot holds the result tables of one network. Power networks fill
// buses and lines, gas and heat networks junctions and pipes.
type NetworkSnapshot struct {
	Name      string           `json:"name"`
	Kind      string           `json:"kind"`
	Converged bool             `json:"converged"`
	Buses     []BusResult      `json:"buses,omitempty"`
	Lines     []LineResult     `json:"lines,omitempty"`
	Junctions []JunctionResult `json:"junctions,omitempty"`
	Pipes     []PipeResult     `json:"pipes,omitempty"`
	ExtGrids  []Float          `json:"ext_grids,omitempty"`
	Members   []string         `json:"members,omitempty"`
}

type BusResult struct {
	VaDegree Float `json:"va_degree"`
	PMW      Float `json:"p_mw"`
}

type LineResult struct {
	PFromMW        Float `json:"p_from_mw"`
	LoadingPercent Float `json:"loading_percent"`
}

type JunctionResult struct {
	PBar Float `json:"p_bar"`
	TK   Float `json:"t_k"`
}

type PipeResult struct {
	MdotKgPerS  Float   `json:"mdot_kg_per_s"`
	VMeanMPerS  Float   `json:"v_mean_m_per_s"`
	TOutK       Float   `json:"t_out_k"`
	TSectionK   []Float `json:"t_section_k,omitempty"`
	PSectionBar []Float `json:"p_section_bar,omitempty"`
}

// NewSnapshot captures the current results of every registered network.
// res may be nil when no run has happened.
func NewSnapshot(mn *multinet.MultiNetwork, res *coupling.Result) *Snapshot {
	snap := &Snapshot{Name: mn.Name, Version: mn.Version, State: coupling.Uninitialized.String()}
	if res != nil {
		snap.State = res.State.String()
	}
	for _, name := range mn.Names() {
		net, _ := mn.Network(name)
		snap.Networks = append(snap.Networks, snapshotOf(name, net))
	}
	return snap
}

func snapshotOf(name string, net network.Network) NetworkSnapshot {
	ns := NetworkSnapshot{Name: name, Kind: net.Domain().String()}
	switch n := net.(type) {
	case *network.PowerNet:
		ns.Converged = n.Converged
		for _, r := range n.ResBus {
			ns.Buses = append(ns.Buses, BusResult{VaDegree: Float(r.VaDegree), PMW: Float(r.PMW)})
		}
		for _, r := range n.ResLine {
			ns.Lines = append(ns.Lines, LineResult{PFromMW: Float(r.PFromMW), LoadingPercent: Float(r.LoadingPercent)})
		}
		for _, r := range n.ResExtGrid {
			ns.ExtGrids = append(ns.ExtGrids, Float(r.PMW))
		}
	case *network.HydraulicNet:
		ns.Converged = n.Converged
		for _, r := range n.ResJunction {
			ns.Junctions = append(ns.Junctions, JunctionResult{PBar: Float(r.PBar), TK: Float(r.TK)})
		}
		for _, r := range n.ResPipe {
			ns.Pipes = append(ns.Pipes, PipeResult{
				MdotKgPerS:  Float(r.MdotKgPerS),
				VMeanMPerS:  Float(r.VMeanMPerS),
				TOutK:       Float(r.TOutK),
				TSectionK:   floats(r.TSectionK),
				PSectionBar: floats(r.PSectionBar),
			})
		}
		for _, r := range n.ResExtGrid {
			ns.ExtGrids = append(ns.ExtGrids, Float(r.MdotKgPerS))
		}
	case *network.Collection:
		for _, m := range n.Members() {
			ns.Members = append(ns.Members, m.Name())
		}
	}
	return ns
}

func floats(in []float64) []Float {
	if len(in) == 0 {
		return nil
	}
	out := make([]Float, len(in))
	for i, v := range in {
		out[i] = Float(v)
	}
	return out
}

func ExportJSON(path string, mn *multinet.MultiNetwork, res *coupling.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, mn, res)
}

func WriteJSON(w io.Writer, mn *multinet.MultiNetwork, res *coupling.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewSnapshot(mn, res))
}
