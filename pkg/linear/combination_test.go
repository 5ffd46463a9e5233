package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

func basis3() []symbolic.Expr {
	return []symbolic.Expr{symbolic.S("x"), symbolic.S("y"), symbolic.S("z")}
}

func TestFromExpression(t *testing.T) {
	b := basis3()

	// 2x - 3z + 5
	e := symbolic.AddOf(
		symbolic.MulOf(symbolic.N(2), b[0]),
		symbolic.MulOf(symbolic.N(-3), b[2]),
		symbolic.N(5))
	row, err := FromExpression(e, b)
	require.NoError(t, err)

	assert.Equal(t, "2", row.Coefficient(b[0]).String())
	assert.True(t, symbolic.IsZero(row.Coefficient(b[1])))
	assert.Equal(t, "-3", row.Coefficient(b[2]).String())
	assert.Equal(t, "5", row.Constant().String())
	assert.True(t, symbolic.IsZero(symbolic.SubOf(row.ToExpression(), e)))
}

func TestFromExpressionRejectsNonlinear(t *testing.T) {
	b := basis3()

	_, err := FromExpression(symbolic.MulOf(b[0], b[1]), b)
	assert.ErrorIs(t, err, ErrNotLinear)

	_, err = FromExpression(symbolic.ExpOf(b[0]), b)
	assert.ErrorIs(t, err, ErrNotLinear)
}

func TestPivotPosition(t *testing.T) {
	b := basis3()

	row := NewCombination(b,
		[]symbolic.Expr{symbolic.N(0), symbolic.N(4), symbolic.N(1)},
		symbolic.N(0))
	p, ok := row.PivotPosition()
	require.True(t, ok)
	assert.True(t, p.Equal(b[1]))

	empty := NewCombination(b,
		[]symbolic.Expr{symbolic.N(0), symbolic.N(0), symbolic.N(0)},
		symbolic.N(7))
	_, ok = empty.PivotPosition()
	assert.False(t, ok)
}

func TestSwapColumns(t *testing.T) {
	b := basis3()

	row := NewCombination(b,
		[]symbolic.Expr{symbolic.N(1), symbolic.N(2), symbolic.N(3)},
		symbolic.N(0))
	row.SwapColumns([]symbolic.Expr{b[2], b[0], b[1]})

	assert.True(t, row.Basis()[0].Equal(b[2]))
	assert.Equal(t, "3", row.Coefficient(b[2]).String())
	assert.Equal(t, "1", row.Coefficient(b[0]).String())

	p, ok := row.PivotPosition()
	require.True(t, ok)
	assert.True(t, p.Equal(b[2]))
}

func TestSolveFor(t *testing.T) {
	b := basis3()

	// 2x + 4y - 6 = 0 -> x = -(4y - 6)/2 = 3 - 2y
	row := NewCombination(b,
		[]symbolic.Expr{symbolic.N(2), symbolic.N(4), symbolic.N(0)},
		symbolic.N(-6))
	rhs, err := row.SolveFor(b[0])
	require.NoError(t, err)
	assert.Equal(t, "-2*y + 3", rhs.String())

	_, err = row.SolveFor(b[2])
	assert.ErrorIs(t, err, ErrZeroPivot)
}
