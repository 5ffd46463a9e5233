package device

import "github.com/kurtamohler/LiveSPICE/pkg/symbolic"

type Inductor struct {
	BaseDevice
}

func NewInductor(name string, value float64) *Inductor {
	return &Inductor{BaseDevice: BaseDevice{Name: name, Value: value}}
}

func (l *Inductor) GetType() string { return "L" }

func (l *Inductor) Stamp(s Stamper) error {
	n1, n2 := l.Nodes[0], l.Nodes[1]
	il := s.AddBranch(l.Name)

	s.AddCurrent(n1, il)
	s.AddCurrent(n2, symbolic.Neg(il))

	// L*di/dt = v
	v := symbolic.SubOf(s.NodeVoltage(n1), s.NodeVoltage(n2))
	s.AddEquation(symbolic.Eq(symbolic.MulOf(symbolic.NFloat(l.Value), symbolic.D(il, s.Time())), v))
	return nil
}
