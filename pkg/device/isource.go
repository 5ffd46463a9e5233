package device

import "github.com/kurtamohler/LiveSPICE/pkg/symbolic"

// CurrentSource pushes a fixed current from its first node to its second.
type CurrentSource struct {
	BaseDevice
}

func NewCurrentSource(name string, value float64) *CurrentSource {
	return &CurrentSource{BaseDevice: BaseDevice{Name: name, Value: value}}
}

func (c *CurrentSource) GetType() string { return "I" }

func (c *CurrentSource) Stamp(s Stamper) error {
	n1, n2 := c.Nodes[0], c.Nodes[1]
	i := symbolic.NFloat(c.Value)

	s.AddCurrent(n1, i)
	s.AddCurrent(n2, symbolic.Neg(i))
	return nil
}
