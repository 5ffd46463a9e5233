package solver

import (
	"fmt"

	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

// IntegrateTrapezoid rewrites solved first-order ODEs dy/dt := f(y, t) as
// implicit trapezoidal updates
//
//	y := y(t0) + (h/2)*(f(y, t) + f(y(t0), t0))
//
// algebraic in the current-step unknowns. Substituting t -> t0 into f
// rewrites every current-step value, including the unknowns' time
// arguments, to its previous-step form.
func IntegrateTrapezoid(arrows []symbolic.Arrow, t, t0, h symbolic.Expr) ([]symbolic.Arrow, error) {
	prev := []symbolic.Arrow{{LHS: t, RHS: t0}}
	out := make([]symbolic.Arrow, 0, len(arrows))
	for _, a := range arrows {
		if !symbolic.IsD(a.LHS) {
			return nil, fmt.Errorf("integrating %s: %w", a.LHS, ErrNotDifferential)
		}
		y := symbolic.DArg(a.LHS)
		y0 := symbolic.Substitute(y, prev)
		f0 := symbolic.Substitute(a.RHS, prev)
		rhs := symbolic.AddOf(y0, symbolic.MulOf(symbolic.F(1, 2), h, symbolic.AddOf(a.RHS, f0)))
		out = append(out, symbolic.Arrow{LHS: y, RHS: rhs})
	}
	return out, nil
}
