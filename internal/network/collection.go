package network

// Collection groups several networks under a single name. It is stored in a
// registry like any other network but is never projected.
type Collection struct {
	name string
	nets []Network
}

func NewCollection(name string, nets ...Network) *Collection {
	return &Collection{name: name, nets: append([]Network(nil), nets...)}
}

func (c *Collection) Name() string   { return c.name }
func (c *Collection) Domain() Domain { return Aggregate }
func (c *Collection) Len() int       { return len(c.nets) }

func (c *Collection) Add(net Network) { c.nets = append(c.nets, net) }

func (c *Collection) Members() []Network {
	return append([]Network(nil), c.nets...)
}

func (c *Collection) Tables() []TableInfo {
	var tables []TableInfo
	for _, n := range c.nets {
		for _, t := range n.Tables() {
			tables = append(tables, TableInfo{Name: n.Name() + "." + t.Name, Rows: t.Rows})
		}
	}
	return tables
}

func (c *Collection) Clone() Network {
	cc := &Collection{name: c.name, nets: make([]Network, len(c.nets))}
	for i, n := range c.nets {
		cc.nets[i] = n.Clone()
	}
	return cc
}
