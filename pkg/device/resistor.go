package device

import "github.com/kurtamohler/LiveSPICE/pkg/symbolic"

type Resistor struct {
	BaseDevice
}

func NewResistor(name string, value float64) *Resistor {
	return &Resistor{BaseDevice: BaseDevice{Name: name, Value: value}}
}

func (r *Resistor) GetType() string { return "R" }

func (r *Resistor) Stamp(s Stamper) error {
	n1, n2 := r.Nodes[0], r.Nodes[1]
	v := symbolic.SubOf(s.NodeVoltage(n1), s.NodeVoltage(n2))
	i := symbolic.DivOf(v, symbolic.NFloat(r.Value))

	s.AddCurrent(n1, i)
	s.AddCurrent(n2, symbolic.Neg(i))
	return nil
}
