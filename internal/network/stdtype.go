package network

import "sort"

// StdType is a named parameter set for lines or pipes.
type StdType struct {
	Name   string             `yaml:"name"`
	Kind   string             `yaml:"kind"`
	Params map[string]float64 `yaml:"params"`
}

// StdTypeCatalog holds standard types keyed by name.
type StdTypeCatalog struct {
	types map[string]StdType
}

func NewStdTypeCatalog(types ...StdType) *StdTypeCatalog {
	c := &StdTypeCatalog{types: make(map[string]StdType, len(types))}
	for _, t := range types {
		c.Add(t)
	}
	return c
}

func (c *StdTypeCatalog) Add(t StdType) {
	params := make(map[string]float64, len(t.Params))
	for k, v := range t.Params {
		params[k] = v
	}
	t.Params = params
	c.types[t.Name] = t
}

func (c *StdTypeCatalog) Get(name string) (StdType, bool) {
	t, ok := c.types[name]
	return t, ok
}

func (c *StdTypeCatalog) Len() int { return len(c.types) }

func (c *StdTypeCatalog) Names() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *StdTypeCatalog) Clone() *StdTypeCatalog {
	if c == nil {
		return nil
	}
	cc := NewStdTypeCatalog()
	for _, t := range c.types {
		cc.Add(t)
	}
	return cc
}
