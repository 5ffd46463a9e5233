package device

import "github.com/kurtamohler/LiveSPICE/pkg/symbolic"

type Capacitor struct {
	BaseDevice
}

func NewCapacitor(name string, value float64) *Capacitor {
	return &Capacitor{BaseDevice: BaseDevice{Name: name, Value: value}}
}

func (c *Capacitor) GetType() string { return "C" }

func (c *Capacitor) Stamp(s Stamper) error {
	n1, n2 := c.Nodes[0], c.Nodes[1]
	v := symbolic.SubOf(s.NodeVoltage(n1), s.NodeVoltage(n2))
	i := symbolic.MulOf(symbolic.NFloat(c.Value), symbolic.D(v, s.Time()))

	s.AddCurrent(n1, i)
	s.AddCurrent(n2, symbolic.Neg(i))
	return nil
}
