package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/multinet/internal/network"
)

const (
	DefaultMaxIterations = 30
	DefaultTolPBar       = 1e-4
	DefaultTolMKgPerS    = 1e-4
	DefaultTolTK         = 1e-3
	DefaultSolverIter    = 100
	DefaultFluidGas      = "lgas"
	DefaultFluidHeat     = "water"
)

// Config describes one coupled scenario.
type Config struct {
	Name        string             `yaml:"name"`
	Run         RunConfig          `yaml:"run"`
	Solver      SolverConfig       `yaml:"solver"`
	Networks    []NetworkConfig    `yaml:"networks"`
	Controllers []ControllerConfig `yaml:"controllers"`
	StdTypes    []network.StdType  `yaml:"std_types,omitempty"`
}

type RunConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

type SolverConfig struct {
	TolPBar    float64 `yaml:"tol_p_bar"`
	TolMKgPerS float64 `yaml:"tol_m_kg_per_s"`
	TolTK      float64 `yaml:"tol_t_k"`
	MaxIter    int     `yaml:"max_iter"`
}

// NetworkConfig holds the element tables of one network. Power networks use
// bus/line/load/sgen, gas and heat networks junction/pipe/sink/source.
type NetworkConfig struct {
	Name     string  `yaml:"name"`
	Kind     string  `yaml:"kind"`
	Fluid    string  `yaml:"fluid,omitempty"`
	AmbientK float64 `yaml:"ambient_k,omitempty"`
	BaseMVA  float64 `yaml:"base_mva,omitempty"`

	Bus      []network.Bus      `yaml:"bus,omitempty"`
	Line     []network.Line     `yaml:"line,omitempty"`
	Load     []network.Load     `yaml:"load,omitempty"`
	SGen     []network.SGen     `yaml:"sgen,omitempty"`
	ExtGrid  []ExtGridConfig    `yaml:"ext_grid,omitempty"`
	Junction []network.Junction `yaml:"junction,omitempty"`
	Pipe     []network.Pipe     `yaml:"pipe,omitempty"`
	Sink     []network.Sink     `yaml:"sink,omitempty"`
	Source   []network.Source   `yaml:"source,omitempty"`
}

// ExtGridConfig is a slack connection: Bus for power networks, Junction with
// pressure and temperature for gas and heat.
type ExtGridConfig struct {
	Name     string  `yaml:"name,omitempty"`
	Bus      int     `yaml:"bus,omitempty"`
	VaDegree float64 `yaml:"va_degree,omitempty"`
	Junction int     `yaml:"junction,omitempty"`
	PBar     float64 `yaml:"p_bar,omitempty"`
	TK       float64 `yaml:"t_k,omitempty"`
}

type ControllerConfig struct {
	Type       string           `yaml:"type"`
	Name       string           `yaml:"name,omitempty"`
	Params     ControllerParams `yaml:"params"`
	Level      []int            `yaml:"level,flow,omitempty"`
	Order      float64          `yaml:"order"`
	InitialRun bool             `yaml:"initial_run"`
	Recycle    bool             `yaml:"recycle"`
	InService  *bool            `yaml:"in_service,omitempty"`
}

// Enabled reports in_service, which defaults to true.
func (c ControllerConfig) Enabled() bool {
	return c.InService == nil || *c.InService
}

// ControllerParams is the union of the parameters the built-in controller
// types read. Each type ignores what it does not use.
type ControllerParams struct {
	PowerNet string `yaml:"power_net,omitempty"`
	GasNet   string `yaml:"gas_net,omitempty"`
	HeatNet  string `yaml:"heat_net,omitempty"`
	Net      string `yaml:"net,omitempty"`
	Element  string `yaml:"element,omitempty"`

	Loads    []int `yaml:"loads,flow,omitempty"`
	SGens    []int `yaml:"sgens,flow,omitempty"`
	Sinks    []int `yaml:"sinks,flow,omitempty"`
	Sources  []int `yaml:"sources,flow,omitempty"`
	ExtGrids []int `yaml:"ext_grids,flow,omitempty"`
	Index    []int `yaml:"index,flow,omitempty"`
	Load     int   `yaml:"load,omitempty"`

	Efficiency     float64 `yaml:"efficiency,omitempty"`
	COP            float64 `yaml:"cop,omitempty"`
	DeltaTK        float64 `yaml:"delta_t_k,omitempty"`
	SpecificEnergy float64 `yaml:"specific_energy_mj_per_kg,omitempty"`
	Value          float64 `yaml:"value,omitempty"`
	Tol            float64 `yaml:"tol,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "multinet",
		Run:  RunConfig{MaxIterations: DefaultMaxIterations},
		Solver: SolverConfig{
			TolPBar:    DefaultTolPBar,
			TolMKgPerS: DefaultTolMKgPerS,
			TolTK:      DefaultTolTK,
			MaxIter:    DefaultSolverIter,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a scenario on top of the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone deep-copies the config through its YAML form.
func (c *Config) Clone() *Config {
	data, err := yaml.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("config: marshal for clone: %v", err))
	}
	cc := &Config{}
	if err := yaml.Unmarshal(data, cc); err != nil {
		panic(fmt.Sprintf("config: unmarshal for clone: %v", err))
	}
	return cc
}

// Validate checks the parts of a scenario that do not need the networks
// built: names, kinds, fluids and iteration limits.
func (c *Config) Validate() error {
	var errs []error
	if c.Run.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("run.max_iterations must be positive, got %d", c.Run.MaxIterations))
	}
	if c.Solver.MaxIter <= 0 {
		errs = append(errs, fmt.Errorf("solver.max_iter must be positive, got %d", c.Solver.MaxIter))
	}
	seen := make(map[string]bool, len(c.Networks))
	for i, n := range c.Networks {
		if n.Name == "" {
			errs = append(errs, fmt.Errorf("networks[%d]: name is required", i))
		} else if seen[n.Name] {
			errs = append(errs, fmt.Errorf("networks[%d]: duplicate name %q", i, n.Name))
		}
		seen[n.Name] = true

		d, err := network.ParseDomain(n.Kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("networks[%d]: %w", i, err))
			continue
		}
		if d == network.Gas || d == network.Heat {
			if _, err := network.LookupFluid(n.FluidOrDefault(d)); err != nil {
				errs = append(errs, fmt.Errorf("networks[%d]: %w", i, err))
			}
		}
	}
	for i, ctrl := range c.Controllers {
		if ctrl.Type == "" {
			errs = append(errs, fmt.Errorf("controllers[%d]: type is required", i))
		}
	}
	return errors.Join(errs...)
}

// FluidOrDefault returns the configured fluid, or the usual one for the domain.
func (n NetworkConfig) FluidOrDefault(d network.Domain) string {
	if n.Fluid != "" {
		return n.Fluid
	}
	if d == network.Heat {
		return DefaultFluidHeat
	}
	return DefaultFluidGas
}
