// Package linear provides symbolic linear algebra over rows keyed by a
// basis of expressions: the building blocks for splitting the MNA system,
// integrating the differential part, and reducing the Newton Jacobian.
package linear

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

var (
	// ErrNotLinear is returned when an expression cannot be written as a
	// linear combination over the requested basis.
	ErrNotLinear = errors.New("expression is not linear in the basis")

	// ErrZeroPivot is returned when a row is solved for a basis element
	// whose coefficient is symbolically zero.
	ErrZeroPivot = errors.New("coefficient is symbolically zero")
)

// Combination is one row of a symbolic linear system: sum(c_i * b_i) + rest,
// where the b_i are the ordered basis expressions. The basis order defines
// pivot scanning order. For Jacobian rows the residual is plumbed in as the
// constant column, keeping the row equivalent to J*delta + F = 0.
type Combination struct {
	basis  []symbolic.Expr
	coeffs []symbolic.Expr
	rest   symbolic.Expr
}

// NewCombination builds a row from an explicit coefficient vector aligned
// with the basis, plus the constant column.
func NewCombination(basis, coeffs []symbolic.Expr, rest symbolic.Expr) *Combination {
	if len(basis) != len(coeffs) {
		panic(fmt.Sprintf("linear: %d coefficients for %d basis elements", len(coeffs), len(basis)))
	}
	return &Combination{
		basis:  append([]symbolic.Expr(nil), basis...),
		coeffs: append([]symbolic.Expr(nil), coeffs...),
		rest:   rest,
	}
}

// FromExpression decomposes e over the basis by differentiation. It fails
// when a coefficient itself depends on the basis (the expression is not
// linear) or the decomposition does not reproduce e.
func FromExpression(e symbolic.Expr, basis []symbolic.Expr) (*Combination, error) {
	coeffs := make([]symbolic.Expr, len(basis))
	zeros := make([]symbolic.Arrow, len(basis))
	for i, b := range basis {
		c := symbolic.Diff(e, b)
		if symbolic.DependsOn(c, basis) {
			return nil, fmt.Errorf("%w: coefficient of %s is %s", ErrNotLinear, b, c)
		}
		coeffs[i] = c
		zeros[i] = symbolic.Arrow{LHS: b, RHS: symbolic.N(0)}
	}
	rest := symbolic.Substitute(e, zeros)
	if symbolic.DependsOn(rest, basis) {
		return nil, fmt.Errorf("%w: %s", ErrNotLinear, e)
	}

	check := rest
	for i, b := range basis {
		check = symbolic.AddOf(check, symbolic.MulOf(coeffs[i], b))
	}
	if !symbolic.IsZero(symbolic.SubOf(check, e)) {
		return nil, fmt.Errorf("%w: %s", ErrNotLinear, e)
	}
	return &Combination{basis: append([]symbolic.Expr(nil), basis...), coeffs: coeffs, rest: rest}, nil
}

func (c *Combination) index(b symbolic.Expr) int {
	for i, e := range c.basis {
		if e.Equal(b) {
			return i
		}
	}
	return -1
}

// Basis returns the row's basis in pivot scanning order.
func (c *Combination) Basis() []symbolic.Expr { return c.basis }

// Coefficient returns the coefficient of basis element b, zero if absent.
func (c *Combination) Coefficient(b symbolic.Expr) symbolic.Expr {
	if i := c.index(b); i >= 0 {
		return c.coeffs[i]
	}
	return symbolic.N(0)
}

// SetCoefficient replaces the coefficient of basis element b.
func (c *Combination) SetCoefficient(b, e symbolic.Expr) {
	i := c.index(b)
	if i < 0 {
		panic(fmt.Sprintf("linear: %s is not in the basis", b))
	}
	c.coeffs[i] = e
}

// Constant returns the constant column.
func (c *Combination) Constant() symbolic.Expr { return c.rest }

// PivotPosition returns the first basis element with a symbolically nonzero
// coefficient.
func (c *Combination) PivotPosition() (symbolic.Expr, bool) {
	for i, b := range c.basis {
		if !symbolic.IsZero(c.coeffs[i]) {
			return b, true
		}
	}
	return nil, false
}

// SwapColumns permutes the basis to the given order; coefficients follow.
// The new order must be a permutation of the current basis.
func (c *Combination) SwapColumns(order []symbolic.Expr) {
	if len(order) != len(c.basis) {
		panic(fmt.Sprintf("linear: permutation of size %d for basis of size %d", len(order), len(c.basis)))
	}
	coeffs := make([]symbolic.Expr, len(order))
	for i, b := range order {
		j := c.index(b)
		if j < 0 {
			panic(fmt.Sprintf("linear: %s is not in the basis", b))
		}
		coeffs[i] = c.coeffs[j]
	}
	c.basis = append([]symbolic.Expr(nil), order...)
	c.coeffs = coeffs
}

// SolveFor solves the row for basis element b:
//
//	b = -(sum of other terms + constant) / coefficient(b)
func (c *Combination) SolveFor(b symbolic.Expr) (symbolic.Expr, error) {
	i := c.index(b)
	if i < 0 || symbolic.IsZero(c.coeffs[i]) {
		return nil, fmt.Errorf("solving for %s: %w", b, ErrZeroPivot)
	}
	num := c.rest
	for j, e := range c.basis {
		if j != i {
			num = symbolic.AddOf(num, symbolic.MulOf(c.coeffs[j], e))
		}
	}
	return symbolic.DivOf(symbolic.Neg(num), c.coeffs[i]), nil
}

// ToExpression rebuilds sum(c_i * b_i) + rest.
func (c *Combination) ToExpression() symbolic.Expr {
	e := c.rest
	for i, b := range c.basis {
		e = symbolic.AddOf(e, symbolic.MulOf(c.coeffs[i], b))
	}
	return e
}

// scale multiplies every coefficient and the constant by k.
func (c *Combination) scale(k symbolic.Expr) {
	for i := range c.coeffs {
		c.coeffs[i] = symbolic.MulOf(c.coeffs[i], k)
	}
	c.rest = symbolic.MulOf(c.rest, k)
}

// addScaled adds k times another row, which must share the basis order.
func (c *Combination) addScaled(other *Combination, k symbolic.Expr) {
	for i := range c.coeffs {
		c.coeffs[i] = symbolic.AddOf(c.coeffs[i], symbolic.MulOf(k, other.coeffs[i]))
	}
	c.rest = symbolic.AddOf(c.rest, symbolic.MulOf(k, other.rest))
}

func (c *Combination) clone() *Combination {
	return &Combination{
		basis:  append([]symbolic.Expr(nil), c.basis...),
		coeffs: append([]symbolic.Expr(nil), c.coeffs...),
		rest:   c.rest,
	}
}

func (c *Combination) String() string {
	var sb strings.Builder
	for i, b := range c.basis {
		if symbolic.IsZero(c.coeffs[i]) {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" + ")
		}
		sb.WriteString("(" + c.coeffs[i].String() + ")*" + b.String())
	}
	if sb.Len() == 0 {
		return c.rest.String()
	}
	sb.WriteString(" + " + c.rest.String())
	return sb.String()
}
