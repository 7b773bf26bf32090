package network

import (
	"fmt"
	"sort"
)

// NormalPressureBar is the absolute reference pressure for gas densities.
const NormalPressureBar = 1.01325

type Fluid struct {
	Name string
	// DensityKgPerM3 is given at normal conditions for compressible fluids.
	DensityKgPerM3 float64
	CpJPerKgK      float64
	HHVMJPerKg     float64
	Compressible   bool
}

// Density returns the fluid density at the given gauge pressure. Gas density
// scales with absolute pressure (isothermal ideal gas).
func (f Fluid) Density(pBar float64) float64 {
	if !f.Compressible {
		return f.DensityKgPerM3
	}
	abs := pBar + NormalPressureBar
	if abs <= 0 {
		abs = NormalPressureBar
	}
	return f.DensityKgPerM3 * abs / NormalPressureBar
}

var fluids = map[string]Fluid{
	"water":    {Name: "water", DensityKgPerM3: 998.2, CpJPerKgK: 4182},
	"lgas":     {Name: "lgas", DensityKgPerM3: 0.829, CpJPerKgK: 2200, HHVMJPerKg: 41.2, Compressible: true},
	"hgas":     {Name: "hgas", DensityKgPerM3: 0.784, CpJPerKgK: 2200, HHVMJPerKg: 54.0, Compressible: true},
	"hydrogen": {Name: "hydrogen", DensityKgPerM3: 0.0899, CpJPerKgK: 14300, HHVMJPerKg: 141.8, Compressible: true},
}

// LookupFluid returns a fluid from the built-in library.
func LookupFluid(name string) (Fluid, error) {
	f, ok := fluids[name]
	if !ok {
		return Fluid{}, fmt.Errorf("unknown fluid: %q", name)
	}
	return f, nil
}

func ListFluids() []string {
	names := make([]string, 0, len(fluids))
	for name := range fluids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
