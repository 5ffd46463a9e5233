package symbolic

import (
	"errors"
	"fmt"
	"math"

	"github.com/kurtamohler/LiveSPICE/pkg/matrix"
)

// ErrNoConvergence is returned by NSolve when Newton iteration fails to
// settle within the iteration budget, or the numeric Jacobian is singular.
var ErrNoConvergence = errors.New("numerical solve did not converge")

const (
	nsolveMaxIter = 100
	nsolveAbsTol  = 1e-12
	nsolveRelTol  = 1e-6
)

// NSolve numerically solves the system of equations for the unknowns named
// by the guess arrows, starting from the guessed values. Every expression
// must be numeric once the unknowns are bound; a leftover free symbol is an
// error. On success the returned arrows bind each unknown to a constant, in
// guess order.
func NSolve(eqs []Equation, guess []Arrow) ([]Arrow, error) {
	n := len(guess)
	if len(eqs) != n {
		return nil, fmt.Errorf("%w: %d equations for %d unknowns", ErrNoConvergence, len(eqs), n)
	}
	if n == 0 {
		return nil, nil
	}

	unknowns := make([]Expr, n)
	x := make([]float64, n)
	for i, g := range guess {
		unknowns[i] = g.LHS
		v, ok := g.RHS.Eval()
		if !ok {
			return nil, fmt.Errorf("initial guess for %s is not numeric", g.LHS)
		}
		x[i] = v.Float64()
	}

	residuals := make([]Expr, n)
	jacobian := make([][]Expr, n)
	for i, eq := range eqs {
		residuals[i] = eq.Residual()
		jacobian[i] = make([]Expr, n)
		for j, u := range unknowns {
			jacobian[i][j] = Diff(residuals[i], u)
		}
	}

	mat, err := matrix.New(n)
	if err != nil {
		return nil, err
	}
	defer mat.Destroy()

	binding := make([]Arrow, n)
	for iter := 0; iter < nsolveMaxIter; iter++ {
		for i := range unknowns {
			binding[i] = Arrow{LHS: unknowns[i], RHS: NFloat(x[i])}
		}

		mat.Clear()
		for i := 0; i < n; i++ {
			f, ok := Substitute(residuals[i], binding).Eval()
			if !ok {
				return nil, fmt.Errorf("residual %s is not numeric", residuals[i])
			}
			mat.AddRHS(i+1, -f.Float64())
			for j := 0; j < n; j++ {
				a, ok := Substitute(jacobian[i][j], binding).Eval()
				if !ok {
					return nil, fmt.Errorf("jacobian entry %s is not numeric", jacobian[i][j])
				}
				mat.AddElement(i+1, j+1, a.Float64())
			}
		}

		if err := mat.Solve(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoConvergence, err)
		}
		dx := mat.Solution()

		converged := true
		for i := 0; i < n; i++ {
			if math.IsNaN(dx[i+1]) || math.IsInf(dx[i+1], 0) {
				return nil, fmt.Errorf("%w: update is not finite", ErrNoConvergence)
			}
			x[i] += dx[i+1]
			if math.Abs(dx[i+1]) > nsolveRelTol*math.Abs(x[i])+nsolveAbsTol {
				converged = false
			}
		}
		if converged {
			result := make([]Arrow, n)
			for i := range unknowns {
				result[i] = Arrow{LHS: unknowns[i], RHS: NFloat(x[i])}
			}
			return result, nil
		}
	}

	return nil, fmt.Errorf("%w: %d iterations exhausted", ErrNoConvergence, nsolveMaxIter)
}
