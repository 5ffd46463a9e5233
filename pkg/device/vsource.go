package device

import (
	"math"

	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

type SourceType int

const (
	DC SourceType = iota
	SIN
	Input
)

// VoltageSource fixes the voltage between its nodes to a signal expression
// and introduces a branch current unknown. An Input source carries an
// opaque signal the runtime binds per sample; it contributes a DC hint
// pinning the signal to zero at t = 0.
type VoltageSource struct {
	BaseDevice
	vtype SourceType
	// DC, common params
	dcValue float64
	// SIN params
	amplitude float64
	freq      float64
	phase     float64
	// Input params
	signalName string
}

func NewDCVoltageSource(name string, value float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{Name: name, Value: value},
		vtype:      DC,
		dcValue:    value,
	}
}

func NewSinVoltageSource(name string, offset, amplitude, freq, phase float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{Name: name, Value: offset},
		vtype:      SIN,
		dcValue:    offset,
		amplitude:  amplitude,
		freq:       freq,
		phase:      phase,
	}
}

func NewInputVoltageSource(name, signalName string) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{Name: name},
		vtype:      Input,
		signalName: signalName,
	}
}

// Signal returns the source voltage as an expression of time.
func (v *VoltageSource) Signal(t symbolic.Expr) symbolic.Expr {
	switch v.vtype {
	case SIN:
		phaseRad := v.phase * math.Pi / 180.0
		return symbolic.AddOf(
			symbolic.NFloat(v.dcValue),
			symbolic.MulOf(symbolic.NFloat(v.amplitude),
				symbolic.SinOf(symbolic.AddOf(
					symbolic.MulOf(symbolic.NFloat(2.0*math.Pi*v.freq), t),
					symbolic.NFloat(phaseRad)))))
	case Input:
		return symbolic.CallOf(v.signalName, t)
	default:
		return symbolic.NFloat(v.dcValue)
	}
}

func (v *VoltageSource) GetType() string { return "V" }

func (v *VoltageSource) Stamp(s Stamper) error {
	n1, n2 := v.Nodes[0], v.Nodes[1]
	iv := s.AddBranch(v.Name)

	s.AddCurrent(n1, iv)
	s.AddCurrent(n2, symbolic.Neg(iv))

	vd := symbolic.SubOf(s.NodeVoltage(n1), s.NodeVoltage(n2))
	s.AddEquation(symbolic.Eq(vd, v.Signal(s.Time())))

	if v.vtype == Input {
		s.AddInitialCondition(symbolic.Arrow{
			LHS: symbolic.CallOf(v.signalName, symbolic.N(0)),
			RHS: symbolic.N(0),
		})
	}
	return nil
}
