package network

import (
	"strings"
	"testing"
)

type opaqueNet struct{ domain Domain }

func (o *opaqueNet) Name() string        { return "opaque" }
func (o *opaqueNet) Domain() Domain      { return o.domain }
func (o *opaqueNet) Tables() []TableInfo { return nil }
func (o *opaqueNet) Clone() Network      { return &opaqueNet{domain: o.domain} }

func TestClassify(t *testing.T) {
	water, _ := LookupFluid("water")
	lgas, _ := LookupFluid("lgas")

	tests := []struct {
		name string
		net  Network
		want Class
	}{
		{"power", NewPowerNet("p"), ClassPower},
		{"gas", NewGasNet("g", lgas), ClassGas},
		{"heat", NewHeatNet("h", water), ClassHeat},
		{"collection", NewCollection("c"), ClassAggregate},
		{"power tag without tables", &opaqueNet{domain: Power}, Unclassified},
		{"gas tag without tables", &opaqueNet{domain: Gas}, Unclassified},
		{"unknown", &opaqueNet{domain: Unknown}, Unclassified},
		{"nil", nil, Unclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.net); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDomain(t *testing.T) {
	for in, want := range map[string]Domain{"power": Power, "GAS": Gas, "heat": Heat} {
		got, err := ParseDomain(in)
		if err != nil {
			t.Fatalf("ParseDomain(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseDomain(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseDomain("steam"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestPowerNetClone(t *testing.T) {
	net := NewPowerNet("power")
	b0 := net.AddBus("b0", 20)
	b1 := net.AddBus("b1", 20)
	net.AddLine(b0, b1, 1, 0.4)
	net.AddLoad(b1, 2)

	c := net.Clone().(*PowerNet)
	c.Load[0].PMW = 5
	c.Bus[0].Name = "renamed"

	if net.Load[0].PMW != 2 {
		t.Errorf("clone aliases load table: got %f", net.Load[0].PMW)
	}
	if net.Bus[0].Name != "b0" {
		t.Errorf("clone aliases bus table: got %q", net.Bus[0].Name)
	}
	if c.Name() != "power" {
		t.Errorf("clone lost name, got %q", c.Name())
	}
}

func TestHydraulicNetClone(t *testing.T) {
	lgas, _ := LookupFluid("lgas")
	net := NewGasNet("gas", lgas)
	j0 := net.AddJunction(5, 283)
	j1 := net.AddJunction(5, 283)
	net.AddPipe(j0, j1, 2.5, 0.075)
	net.AddSink(j1, 1)
	net.ResJunction = []ResJunction{{PBar: 5}, {PBar: 4.9}}

	c := net.Clone().(*HydraulicNet)
	c.Sink[0].MdotKgPerS = 3
	c.ResJunction[1].PBar = 0

	if net.Sink[0].MdotKgPerS != 1 {
		t.Errorf("clone aliases sink table")
	}
	if net.ResJunction[1].PBar != 4.9 {
		t.Errorf("clone aliases result table")
	}
	if c.Domain() != Gas {
		t.Errorf("clone domain = %v, want gas", c.Domain())
	}
}

func TestCollection(t *testing.T) {
	water, _ := LookupFluid("water")
	c := NewCollection("district", NewHeatNet("a", water), NewHeatNet("b", water))
	c.Add(NewPowerNet("p"))

	if c.Len() != 3 || Count(c) != 3 {
		t.Errorf("expected 3 members, got %d", c.Len())
	}
	if Count(NewPowerNet("x")) != 1 {
		t.Error("single network should count as 1")
	}

	cc := c.Clone().(*Collection)
	cc.Members()[0].(*HydraulicNet).AddJunction(1, 300)
	if len(c.Members()[0].(*HydraulicNet).Junction) != 0 {
		t.Error("collection clone shares members")
	}
}

func TestFluidDensity(t *testing.T) {
	water, err := LookupFluid("water")
	if err != nil {
		t.Fatal(err)
	}
	if water.Density(10) != water.DensityKgPerM3 {
		t.Error("incompressible density should not depend on pressure")
	}

	lgas, _ := LookupFluid("lgas")
	if lgas.Density(0) != lgas.DensityKgPerM3 {
		t.Errorf("gas density at 0 barg = %f, want normal density", lgas.Density(0))
	}
	if lgas.Density(5) <= lgas.Density(1) {
		t.Error("gas density should increase with pressure")
	}

	if _, err := LookupFluid("mercury"); err == nil {
		t.Error("expected error for unknown fluid")
	}
	if len(ListFluids()) != 4 {
		t.Errorf("expected 4 fluids, got %v", ListFluids())
	}
}

func TestDescribe(t *testing.T) {
	net := NewPowerNet("grid")
	net.AddBus("b0", 0.4)
	net.AddExtGrid(0)

	out := Describe(net)
	if !strings.Contains(out, `power network "grid"`) {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "bus (1 elements)") || !strings.Contains(out, "ext_grid (1 elements)") {
		t.Errorf("missing tables: %q", out)
	}
	if strings.Contains(out, "line") {
		t.Errorf("empty table listed: %q", out)
	}

	if !strings.Contains(Describe(NewPowerNet("empty")), "(empty)") {
		t.Error("empty network not marked")
	}
}

func TestStdTypeCatalog(t *testing.T) {
	params := map[string]float64{"x_ohm_per_km": 0.4}
	cat := NewStdTypeCatalog(StdType{Name: "NA2XS2Y", Kind: "line", Params: params})
	params["x_ohm_per_km"] = 9

	got, ok := cat.Get("NA2XS2Y")
	if !ok {
		t.Fatal("std type missing")
	}
	if got.Params["x_ohm_per_km"] != 0.4 {
		t.Error("catalog aliases caller params")
	}

	c := cat.Clone()
	c.Add(StdType{Name: "PE100", Kind: "pipe"})
	if cat.Len() != 1 || c.Len() != 2 {
		t.Errorf("clone not independent: %d, %d", cat.Len(), c.Len())
	}
	if names := c.Names(); names[0] != "NA2XS2Y" || names[1] != "PE100" {
		t.Errorf("unexpected names %v", names)
	}
}
