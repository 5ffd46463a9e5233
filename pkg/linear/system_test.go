package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

func numRow(t *testing.T, basis []symbolic.Expr, coeffs []int64, rest int64) *Combination {
	t.Helper()
	cs := make([]symbolic.Expr, len(coeffs))
	for i, c := range coeffs {
		cs[i] = symbolic.N(c)
	}
	return NewCombination(basis, cs, symbolic.N(rest))
}

func TestRowReduceAndSolve(t *testing.T) {
	b := basis3()

	// A solvable square system:
	//   x + y + z = 6
	//   2y + 5z = -4
	//   2x + 5y - z = 27
	sys := NewSystem(
		numRow(t, b, []int64{1, 1, 1}, -6),
		numRow(t, b, []int64{0, 2, 5}, 4),
		numRow(t, b, []int64{2, 5, -1}, -27),
	)
	sys.RowReduce(b)
	sys.BackSubstitute(b)
	arrows := sys.SolveAndRemove(b)
	require.Len(t, arrows, 3)
	assert.Empty(t, sys.Rows())

	// Reverse pivot order: z first.
	byName := map[string]float64{}
	for _, a := range arrows {
		v, ok := a.RHS.Eval()
		require.True(t, ok, "solution %s is not numeric", a)
		byName[a.LHS.String()] = v.Float64()
	}
	assert.InDelta(t, 5.0, byName["x"], 1e-12)
	assert.InDelta(t, 3.0, byName["y"], 1e-12)
	assert.InDelta(t, -2.0, byName["z"], 1e-12)
}

func TestFindPivot(t *testing.T) {
	b := basis3()

	r1 := numRow(t, b, []int64{0, 1, 2}, 0)
	r2 := numRow(t, b, []int64{1, 0, 0}, 0)
	sys := NewSystem(r1, r2)

	assert.Same(t, r2, sys.FindPivot(b[0]))
	assert.Same(t, r1, sys.FindPivot(b[1]))
	// z is nobody's leading column.
	assert.Nil(t, sys.FindPivot(b[2]))
}

func TestSolveAndRemoveFallback(t *testing.T) {
	b := basis3()[:2]

	// Only one row; y has no pivot row but a nonzero coefficient, so it is
	// solved from the x-leading row, which is then consumed, leaving x
	// unsolved.
	sys := NewSystem(numRow(t, b, []int64{1, 1}, -1))
	arrows := sys.SolveAndRemove(b)
	require.Len(t, arrows, 1)
	assert.Equal(t, "y", arrows[0].LHS.String())
	assert.Equal(t, "-1*x + 1", arrows[0].RHS.String())
	assert.Empty(t, sys.Rows())
}

func TestSolveSkipsNonlinearEquations(t *testing.T) {
	x := symbolic.S("x")
	y := symbolic.S("y")

	arrows := Solve([]symbolic.Equation{
		symbolic.Eq(symbolic.MulOf(symbolic.N(2), x), symbolic.N(8)),
		symbolic.Eq(symbolic.ExpOf(y), y), // not linear, ignored
	}, []symbolic.Expr{x, y})

	require.Len(t, arrows, 1)
	assert.Equal(t, "x", arrows[0].LHS.String())
	assert.Equal(t, "4", arrows[0].RHS.String())
}

func TestRowReduceWithSymbolicCoefficients(t *testing.T) {
	b := []symbolic.Expr{symbolic.S("x"), symbolic.S("y")}
	r := symbolic.S("R")

	// R*x + R*y - R = 0 ; x - y = 0  =>  x = y = 1/2
	sys := NewSystem(
		NewCombination(b, []symbolic.Expr{r, r}, symbolic.Neg(r)),
		numRow(t, b, []int64{1, -1}, 0),
	)
	sys.RowReduce(b)
	sys.BackSubstitute(b)
	arrows := sys.SolveAndRemove(b)
	require.Len(t, arrows, 2)

	for _, a := range arrows {
		v, ok := a.RHS.Eval()
		require.True(t, ok, "solution %s is not numeric", a)
		assert.InDelta(t, 0.5, v.Float64(), 1e-12)
	}
}
