package symbolic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNSolveLinearSystem(t *testing.T) {
	x, y := S("x"), S("y")

	// x + y = 3, x - y = 1
	sol, err := NSolve(
		[]Equation{
			Eq(AddOf(x, y), N(3)),
			Eq(SubOf(x, y), N(1)),
		},
		[]Arrow{{LHS: x, RHS: N(0)}, {LHS: y, RHS: N(0)}},
	)
	require.NoError(t, err)
	require.Len(t, sol, 2)

	vx, ok := sol[0].RHS.Eval()
	require.True(t, ok)
	vy, ok := sol[1].RHS.Eval()
	require.True(t, ok)
	assert.InDelta(t, 2.0, vx.Float64(), 1e-9)
	assert.InDelta(t, 1.0, vy.Float64(), 1e-9)
}

func TestNSolveNonlinear(t *testing.T) {
	x := S("x")

	// exp(x) = 2 -> x = ln 2
	sol, err := NSolve(
		[]Equation{Eq(ExpOf(x), N(2))},
		[]Arrow{{LHS: x, RHS: N(0)}},
	)
	require.NoError(t, err)
	v, ok := sol[0].RHS.Eval()
	require.True(t, ok)
	assert.InDelta(t, 0.6931471805599453, v.Float64(), 1e-9)
}

func TestNSolveSingular(t *testing.T) {
	x := S("x")

	// 0*x = 1 has no solution; the Jacobian is singular.
	_, err := NSolve(
		[]Equation{Eq(N(0), N(1))},
		[]Arrow{{LHS: x, RHS: N(0)}},
	)
	require.Error(t, err)
}

func TestNSolveCountMismatch(t *testing.T) {
	x, y := S("x"), S("y")

	_, err := NSolve(
		[]Equation{Eq(x, N(1))},
		[]Arrow{{LHS: x, RHS: N(0)}, {LHS: y, RHS: N(0)}},
	)
	assert.ErrorIs(t, err, ErrNoConvergence)
}

func TestNSolveRejectsFreeSymbols(t *testing.T) {
	x := S("x")

	_, err := NSolve(
		[]Equation{Eq(AddOf(x, S("unbound")), N(1))},
		[]Arrow{{LHS: x, RHS: N(0)}},
	)
	require.Error(t, err)
}
