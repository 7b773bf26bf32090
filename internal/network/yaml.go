package network

import "gopkg.in/yaml.v3"

// Element tables decoded from YAML start from the same defaults as the Add
// helpers: in service, unit scaling.

func (l *Line) UnmarshalYAML(n *yaml.Node) error {
	type raw Line
	r := raw{InService: true}
	if err := n.Decode(&r); err != nil {
		return err
	}
	*l = Line(r)
	return nil
}

func (l *Load) UnmarshalYAML(n *yaml.Node) error {
	type raw Load
	r := raw{Scaling: 1, InService: true}
	if err := n.Decode(&r); err != nil {
		return err
	}
	*l = Load(r)
	return nil
}

func (g *SGen) UnmarshalYAML(n *yaml.Node) error {
	type raw SGen
	r := raw{Scaling: 1, InService: true}
	if err := n.Decode(&r); err != nil {
		return err
	}
	*g = SGen(r)
	return nil
}

func (p *Pipe) UnmarshalYAML(n *yaml.Node) error {
	type raw Pipe
	r := raw{KMm: 0.1, Sections: 1, InService: true}
	if err := n.Decode(&r); err != nil {
		return err
	}
	*p = Pipe(r)
	return nil
}

func (s *Sink) UnmarshalYAML(n *yaml.Node) error {
	type raw Sink
	r := raw{Scaling: 1, InService: true}
	if err := n.Decode(&r); err != nil {
		return err
	}
	*s = Sink(r)
	return nil
}

func (s *Source) UnmarshalYAML(n *yaml.Node) error {
	type raw Source
	r := raw{Scaling: 1, InService: true}
	if err := n.Decode(&r); err != nil {
		return err
	}
	*s = Source(r)
	return nil
}
