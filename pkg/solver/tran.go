package solver

import (
	"fmt"
	"log/slog"

	"github.com/kurtamohler/LiveSPICE/pkg/circuit"
	"github.com/kurtamohler/LiveSPICE/pkg/linear"
	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

// Solve compiles the analysis into a TransientSolution for the given
// timestep. The differential subsystem is integrated with the trapezoidal
// rule, closed-form linear solutions are peeled off, and whatever remains
// becomes a Newton iteration block. When withInitialConditions is set the
// DC steady state is computed as well; its failure is soft. log may be nil.
//
// The compiler is single-threaded and pure: identical inputs produce
// byte-identical output under the canonical rendering.
func Solve(an *circuit.Analysis, timeStep float64, withInitialConditions bool, log *slog.Logger) (*TransientSolution, error) {
	if timeStep <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidTimeStep, timeStep)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	h := symbolic.NFloat(timeStep)
	mna := append([]symbolic.Equation(nil), an.Equations...)
	y := append([]symbolic.Expr(nil), an.Unknowns...)

	log.Info("compiling transient solution",
		"equations", len(mna), "unknowns", len(y), "timestep", timeStep)

	// Find the derivatives the system references.
	var dydt []symbolic.Expr
	for _, u := range y {
		d := symbolic.D(u, symbolic.T)
		for _, eq := range mna {
			if symbolic.DependsOn(eq.Residual(), []symbolic.Expr{d}) {
				dydt = append(dydt, d)
				break
			}
		}
	}

	var initials []symbolic.Arrow
	if withInitialConditions {
		initials = dcSolve(mna, y, dydt, an.InitialConditions, log)
	}

	// Split the differential equations from the algebraic ones.
	diffeq := linear.NewSystem()
	var algebraic []symbolic.Equation
	for _, eq := range mna {
		r := eq.Residual()
		if !symbolic.DependsOn(r, dydt) {
			algebraic = append(algebraic, eq)
			continue
		}
		row, err := linear.FromExpression(r, dydt)
		if err != nil {
			return nil, fmt.Errorf("differential equation %s: %w", eq, err)
		}
		diffeq.Add(row)
	}

	// Integrate: solve for each dy/dt, discretize, and return the results
	// to the algebraic system. Rows without any derivative left are
	// algebraic constraints.
	diffeq.RowReduce(dydt)
	diffeq.BackSubstitute(dydt)
	derivatives := diffeq.SolveAndRemove(dydt)
	integrated, err := IntegrateTrapezoid(derivatives, symbolic.T, symbolic.T0, h)
	if err != nil {
		return nil, err
	}
	for _, a := range integrated {
		algebraic = append(algebraic, symbolic.Eq(a.LHS, a.RHS))
		log.Debug("integrated", "update", a.String())
	}
	for _, row := range diffeq.Rows() {
		algebraic = append(algebraic, symbolic.Eq(row.ToExpression(), symbolic.N(0)))
	}

	var solutions []SolutionSet

	// Peel off the unknowns that have closed-form linear solutions.
	var retained []symbolic.Arrow
	for _, a := range linear.Solve(algebraic, y) {
		if !symbolic.DependsOn(a.RHS, y) {
			retained = append(retained, a)
		}
	}
	if len(retained) > 0 {
		var remaining []symbolic.Equation
		for _, eq := range algebraic {
			se := symbolic.SubstituteEq(eq, retained)
			if symbolic.IsZero(se.Residual()) {
				continue
			}
			remaining = append(remaining, se)
		}
		algebraic = remaining
		y = removeAll(y, retained)
		for i := range retained {
			retained[i].RHS = symbolic.Factor(retained[i].RHS)
		}
		solutions = append(solutions, &LinearSolutions{Assignments: retained})
		log.Debug("peeled linear solutions", "count", len(retained))
	}

	// Whatever is left is solved per-sample by Newton-Raphson.
	if len(y) > 0 {
		newton, err := newtonIteration(algebraic, y, log)
		if err != nil {
			return nil, err
		}
		solutions = append(solutions, newton)
	}

	return &TransientSolution{
		TimeStep:          timeStep,
		Solutions:         solutions,
		InitialConditions: initials,
	}, nil
}

// newtonIteration builds the Newton update block for the remaining
// unknowns: Jacobian rows over the update variables delta(y) with the
// residual plumbed into the constant column, the linearly occurring deltas
// reduced out into closed-form updates, and previous-step values as the
// initial guess.
func newtonIteration(eqs []symbolic.Equation, y []symbolic.Expr, log *slog.Logger) (*NewtonIteration, error) {
	deltas := make([]symbolic.Expr, len(y))
	for i, u := range y {
		deltas[i] = symbolic.NewtonDelta(u)
	}

	rows := make([]*linear.Combination, 0, len(eqs))
	for _, eq := range eqs {
		f := eq.Residual()
		coeffs := make([]symbolic.Expr, len(y))
		for j, u := range y {
			coeffs[j] = symbolic.Diff(f, u)
		}
		rows = append(rows, linear.NewCombination(deltas, coeffs, f))
	}

	// Partition the update variables: a column is linear when none of its
	// coefficients depend on a remaining unknown.
	var ly, nly []symbolic.Expr
	for j, d := range deltas {
		isLinear := true
		for _, row := range rows {
			if symbolic.DependsOn(row.Coefficient(deltas[j]), y) {
				isLinear = false
				break
			}
		}
		if isLinear {
			ly = append(ly, d)
		} else {
			nly = append(nly, d)
		}
	}
	// A single remaining delta is still linear in delta after reduction.
	if len(deltas) == 1 {
		ly, nly = deltas, nil
	}

	order := append(append([]symbolic.Expr(nil), ly...), nly...)
	for _, row := range rows {
		row.SwapColumns(order)
	}

	sys := linear.NewSystem(rows...)
	sys.RowReduce(ly)

	updates := sys.Clone().SolveAndRemove(ly)
	solved := make(map[string]bool, len(updates))
	for _, a := range updates {
		solved[a.LHS.String()] = true
	}
	for _, d := range ly {
		if !solved[d.String()] {
			return nil, &SingularError{Unknown: symbolic.DeltaArg(d)}
		}
	}

	for i := range updates {
		updates[i].RHS = symbolic.Factor(updates[i].RHS)
	}
	jacobian := make([]*linear.Combination, len(sys.Rows()))
	for i, row := range sys.Rows() {
		coeffs := make([]symbolic.Expr, len(order))
		for j, d := range order {
			coeffs[j] = symbolic.Factor(row.Coefficient(d))
		}
		jacobian[i] = linear.NewCombination(order, coeffs, symbolic.Factor(row.Constant()))
	}

	toPrevious := []symbolic.Arrow{{LHS: symbolic.T, RHS: symbolic.T0}}
	guess := make([]symbolic.Arrow, len(y))
	for i, u := range y {
		guess[i] = symbolic.Arrow{LHS: u, RHS: symbolic.Substitute(u, toPrevious)}
	}

	log.Debug("newton block",
		"rows", len(jacobian), "linear", len(updates), "nonlinear", len(nly))

	return &NewtonIteration{
		LinearUpdates:   updates,
		Jacobian:        jacobian,
		NonlinearDeltas: nly,
		InitialGuess:    guess,
	}, nil
}

// removeAll drops the solved unknowns from y, preserving order.
func removeAll(y []symbolic.Expr, solved []symbolic.Arrow) []symbolic.Expr {
	out := y[:0]
	for _, u := range y {
		keep := true
		for _, a := range solved {
			if u.Equal(a.LHS) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, u)
		}
	}
	return out
}
