package solver

import (
	"log/slog"

	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

// dcSolve computes the DC steady state of the system: every derivative is
// zeroed, time is pinned to zero, the analysis hints are applied, and the
// remaining algebraic system is solved numerically from an all-zero guess.
// Failure is soft: a warning is logged and an empty list returned, so a
// circuit with no DC solution still compiles.
func dcSolve(mna []symbolic.Equation, y, dydt []symbolic.Expr, hints []symbolic.Arrow, log *slog.Logger) []symbolic.Arrow {
	subs := make([]symbolic.Arrow, 0, len(dydt)+2)
	for _, d := range dydt {
		subs = append(subs, symbolic.Arrow{LHS: d, RHS: symbolic.N(0)})
	}
	subs = append(subs,
		symbolic.Arrow{LHS: symbolic.T, RHS: symbolic.N(0)},
		symbolic.Arrow{LHS: symbolic.T0, RHS: symbolic.N(0)})

	var eqs []symbolic.Equation
	for _, eq := range mna {
		se := symbolic.SubstituteEq(eq, subs)
		se = symbolic.SubstituteEq(se, hints)
		if symbolic.IsZero(se.Residual()) {
			continue
		}
		eqs = append(eqs, se)
	}

	atZero := []symbolic.Arrow{{LHS: symbolic.T, RHS: symbolic.N(0)}}
	guess := make([]symbolic.Arrow, len(y))
	for i, u := range y {
		guess[i] = symbolic.Arrow{LHS: symbolic.Substitute(u, atZero), RHS: symbolic.N(0)}
	}

	sol, err := symbolic.NSolve(eqs, guess)
	if err != nil {
		log.Warn("DC analysis failed, continuing without initial conditions", "error", err)
		return nil
	}
	return sol
}
