package device

import (
	"fmt"

	"github.com/kurtamohler/LiveSPICE/internal/consts"
	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

type Diode struct {
	BaseDevice
	// Model parameters
	Is   float64 // Saturation current
	N    float64 // Ideality factor / emission coefficient
	Temp float64 // Junction temperature (K)
}

func NewDiode(name string) *Diode {
	d := &Diode{BaseDevice: BaseDevice{Name: name}}
	d.setDefaultParameters()
	return d
}

func (d *Diode) GetType() string { return "D" }

func (d *Diode) setDefaultParameters() {
	d.Is = 1e-14 // 1e-14 A
	d.N = 1.0
	d.Temp = consts.STDTEMP
}

func (d *Diode) SetModelParameters(params map[string]float64) {
	if is, ok := params["is"]; ok {
		d.Is = is
	}
	if n, ok := params["n"]; ok {
		d.N = n
	}
	if temp, ok := params["temp"]; ok {
		d.Temp = temp
	}
}

// Stamp adds the Shockley diode current Is*(exp(v/(N*VT)) - 1) from anode
// to cathode.
func (d *Diode) Stamp(s Stamper) error {
	if len(d.Nodes) != 2 {
		return fmt.Errorf("diode %s: requires exactly 2 nodes", d.Name)
	}
	n1, n2 := d.Nodes[0], d.Nodes[1]
	vt := consts.ThermalVoltage(d.Temp)

	v := symbolic.SubOf(s.NodeVoltage(n1), s.NodeVoltage(n2))
	i := symbolic.MulOf(symbolic.NFloat(d.Is),
		symbolic.SubOf(
			symbolic.ExpOf(symbolic.DivOf(v, symbolic.NFloat(d.N*vt))),
			symbolic.N(1)))

	s.AddCurrent(n1, i)
	s.AddCurrent(n2, symbolic.Neg(i))
	return nil
}
