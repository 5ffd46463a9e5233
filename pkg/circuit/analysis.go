package circuit

import "github.com/kurtamohler/LiveSPICE/pkg/symbolic"

// Analysis is the read-only artifact the solver compiles: the MNA equation
// system of a circuit, the ordered unknowns (node voltages followed by
// branch currents), and side-condition assignments consumed only during DC
// analysis, such as input signals pinned to zero at t = 0.
type Analysis struct {
	Equations         []symbolic.Equation
	Unknowns          []symbolic.Expr
	InitialConditions []symbolic.Arrow
}
