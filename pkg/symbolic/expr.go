// Package symbolic is the expression kernel the circuit compiler is built
// on. Expressions are immutable trees of tagged kinds (Num, Sym, Add, Mul,
// Pow, Call) with exact rational arithmetic, deterministic simplification
// and stable string rendering. Constructors simplify, so any expression
// obtained through the package API is already in canonical form, except
// the output of Factor, which is built from raw nodes.
package symbolic

import (
	"math"
	"math/big"
	"sort"
	"strings"
)

type Expr interface {
	Simplify() Expr
	String() string
	Equal(other Expr) bool
	// Eval reduces the expression to a number if every leaf is numeric.
	Eval() (*Num, bool)
	kind() string
}

// Num - exact rational constant

type Num struct{ val *big.Rat }

func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }

func F(p, q int64) *Num {
	if q == 0 {
		panic("symbolic: denominator is zero")
	}
	return &Num{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}

func NFloat(f float64) *Num { return &Num{val: new(big.Rat).SetFloat64(f)} }

func (n *Num) Simplify() Expr     { return n }
func (n *Num) Eval() (*Num, bool) { return n, true }
func (n *Num) Equal(other Expr) bool {
	o, ok := other.(*Num)
	return ok && n.val.Cmp(o.val) == 0
}
func (n *Num) kind() string     { return "num" }
func (n *Num) Float64() float64 { f, _ := n.val.Float64(); return f }
func (n *Num) IsZero() bool     { return n.val.Sign() == 0 }
func (n *Num) IsOne() bool      { return n.val.Cmp(ratOne) == 0 }
func (n *Num) IsInteger() bool  { return n.val.IsInt() }
func (n *Num) IsPositive() bool { return n.val.Sign() > 0 }
func (n *Num) IsNegative() bool { return n.val.Sign() < 0 }

var ratOne = new(big.Rat).SetInt64(1)

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	return n.val.RatString()
}

func numAdd(a, b *Num) *Num { return &Num{val: new(big.Rat).Add(a.val, b.val)} }
func numMul(a, b *Num) *Num { return &Num{val: new(big.Rat).Mul(a.val, b.val)} }
func numRecip(a *Num) *Num {
	if a.IsZero() {
		panic("symbolic: division by zero")
	}
	return &Num{val: new(big.Rat).Inv(a.val)}
}

// Sym - free variable (t, t0, component parameters)

type Sym struct{ name string }

func S(name string) *Sym { return &Sym{name: name} }

func (s *Sym) Simplify() Expr     { return s }
func (s *Sym) String() string     { return s.name }
func (s *Sym) Eval() (*Num, bool) { return nil, false }
func (s *Sym) Equal(other Expr) bool {
	o, ok := other.(*Sym)
	return ok && s.name == o.name
}
func (s *Sym) kind() string { return "sym" }
func (s *Sym) Name() string { return s.name }

// Add - sum of terms, collected by their non-numeric part

type Add struct{ terms []Expr }

func AddOf(terms ...Expr) Expr { return (&Add{terms: terms}).Simplify() }

// coefficientOf splits a term into its numeric coefficient and the rest.
func coefficientOf(e Expr) (*Num, Expr) {
	switch v := e.(type) {
	case *Num:
		return v, nil
	case *Mul:
		if c, ok := v.factors[0].(*Num); ok {
			rest := v.factors[1:]
			if len(rest) == 1 {
				return c, rest[0]
			}
			return c, &Mul{factors: rest}
		}
	}
	return N(1), e
}

func (a *Add) Simplify() Expr {
	flat := make([]Expr, 0, len(a.terms))
	for _, t := range a.terms {
		s := t.Simplify()
		if inner, ok := s.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, s)
		}
	}

	type group struct {
		rest  Expr
		coeff *Num
	}
	constant := N(0)
	groups := map[string]*group{}
	keys := []string{}
	for _, t := range flat {
		c, rest := coefficientOf(t)
		if rest == nil {
			constant = numAdd(constant, c)
			continue
		}
		key := rest.String()
		g, seen := groups[key]
		if !seen {
			g = &group{rest: rest, coeff: N(0)}
			groups[key] = g
			keys = append(keys, key)
		}
		g.coeff = numAdd(g.coeff, c)
	}

	sort.Strings(keys)
	result := make([]Expr, 0, len(keys)+1)
	for _, key := range keys {
		g := groups[key]
		switch {
		case g.coeff.IsZero():
		case g.coeff.IsOne():
			result = append(result, g.rest)
		default:
			result = append(result, mulRebuild(g.coeff, g.rest))
		}
	}
	if !constant.IsZero() {
		result = append(result, constant)
	}

	switch len(result) {
	case 0:
		return N(0)
	case 1:
		return result[0]
	}
	return &Add{terms: result}
}

func mulRebuild(c *Num, rest Expr) Expr {
	if m, ok := rest.(*Mul); ok {
		return &Mul{factors: append([]Expr{c}, m.factors...)}
	}
	return &Mul{factors: []Expr{c, rest}}
}

func (a *Add) String() string {
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

func (a *Add) Eval() (*Num, bool) {
	acc := N(0)
	for _, t := range a.terms {
		v, ok := t.Eval()
		if !ok {
			return nil, false
		}
		acc = numAdd(acc, v)
	}
	return acc, true
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	if !ok || len(a.terms) != len(o.terms) {
		return false
	}
	for i := range a.terms {
		if !a.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (a *Add) kind() string  { return "add" }
func (a *Add) Terms() []Expr { return a.terms }

// Mul - product of factors, like bases merged through their exponents

type Mul struct{ factors []Expr }

func MulOf(factors ...Expr) Expr { return (&Mul{factors: factors}).Simplify() }

func (m *Mul) Simplify() Expr {
	flat := make([]Expr, 0, len(m.factors))
	for _, f := range m.factors {
		s := f.Simplify()
		if inner, ok := s.(*Mul); ok {
			flat = append(flat, inner.factors...)
		} else {
			flat = append(flat, s)
		}
	}

	type group struct {
		base Expr
		exp  *Num
	}
	coeff := N(1)
	groups := map[string]*group{}
	keys := []string{}
	addFactor := func(base Expr, exp *Num) {
		key := base.String()
		g, seen := groups[key]
		if !seen {
			g = &group{base: base, exp: N(0)}
			groups[key] = g
			keys = append(keys, key)
		}
		g.exp = numAdd(g.exp, exp)
	}
	for _, f := range flat {
		switch v := f.(type) {
		case *Num:
			coeff = numMul(coeff, v)
		case *Pow:
			if e, ok := v.exp.(*Num); ok {
				addFactor(v.base, e)
			} else {
				addFactor(v, N(1))
			}
		default:
			addFactor(f, N(1))
		}
	}
	if coeff.IsZero() {
		return N(0)
	}

	sort.Strings(keys)
	result := make([]Expr, 0, len(keys)+1)
	var sums []*Add
	for _, key := range keys {
		g := groups[key]
		switch {
		case g.exp.IsZero():
		case g.exp.IsOne():
			if sum, ok := g.base.(*Add); ok {
				sums = append(sums, sum)
				continue
			}
			result = append(result, g.base)
		default:
			result = append(result, PowOf(g.base, g.exp))
		}
	}
	if len(sums) > 0 {
		// Distribute over sum factors so linear structure stays exposed to
		// term collection; Factor builds its output outside this path.
		return distribute(coeff, result, sums)
	}
	if len(result) == 0 {
		return coeff
	}
	if coeff.IsOne() {
		if len(result) == 1 {
			return result[0]
		}
		return &Mul{factors: result}
	}
	return &Mul{factors: append([]Expr{coeff}, result...)}
}

func distribute(coeff *Num, atoms []Expr, sums []*Add) Expr {
	terms := []Expr{&Mul{factors: append([]Expr{coeff}, atoms...)}}
	for _, sum := range sums {
		next := make([]Expr, 0, len(terms)*len(sum.terms))
		for _, t := range terms {
			for _, st := range sum.terms {
				next = append(next, MulOf(t, st))
			}
		}
		terms = next
	}
	return AddOf(terms...)
}

func (m *Mul) String() string {
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		if _, isAdd := f.(*Add); isAdd {
			parts[i] = "(" + f.String() + ")"
		} else {
			parts[i] = f.String()
		}
	}
	return strings.Join(parts, "*")
}

func (m *Mul) Eval() (*Num, bool) {
	acc := N(1)
	for _, f := range m.factors {
		v, ok := f.Eval()
		if !ok {
			return nil, false
		}
		acc = numMul(acc, v)
	}
	return acc, true
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	if !ok || len(m.factors) != len(o.factors) {
		return false
	}
	for i := range m.factors {
		if !m.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (m *Mul) kind() string    { return "mul" }
func (m *Mul) Factors() []Expr { return m.factors }

// Pow - base^exponent

type Pow struct{ base, exp Expr }

func PowOf(base, exp Expr) Expr { return (&Pow{base: base, exp: exp}).Simplify() }

func (p *Pow) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	if en, ok := exp.(*Num); ok {
		if en.IsZero() {
			return N(1)
		}
		if en.IsOne() {
			return base
		}
	}
	if bn, ok := base.(*Num); ok {
		if bn.IsZero() {
			if en, ok2 := exp.(*Num); ok2 && (en.IsZero() || en.IsNegative()) {
				// 0^negative stays unevaluated; a zero exponent has already
				// returned 1 above.
				return &Pow{base: base, exp: exp}
			}
			return N(0)
		}
		if bn.IsOne() {
			return N(1)
		}
		if en, ok2 := exp.(*Num); ok2 && en.IsInteger() {
			e := en.val.Num().Int64()
			if e >= -24 && e <= 24 {
				result := N(1)
				steps := e
				if steps < 0 {
					steps = -steps
				}
				for i := int64(0); i < steps; i++ {
					result = numMul(result, bn)
				}
				if e < 0 {
					result = numRecip(result)
				}
				return result
			}
		}
	}
	if inner, ok := base.(*Pow); ok {
		return PowOf(inner.base, MulOf(inner.exp, exp))
	}
	if inner, ok := base.(*Mul); ok {
		if en, ok2 := exp.(*Num); ok2 {
			// (a*b)^n = a^n * b^n keeps reciprocals in a form the product
			// grouping can cancel.
			fs := make([]Expr, len(inner.factors))
			for i, f := range inner.factors {
				fs[i] = PowOf(f, en)
			}
			return MulOf(fs...)
		}
	}
	return &Pow{base: base, exp: exp}
}

func (p *Pow) String() string {
	baseStr := p.base.String()
	switch p.base.(type) {
	case *Add, *Mul:
		baseStr = "(" + baseStr + ")"
	}
	expStr := p.exp.String()
	switch p.exp.(type) {
	case *Add, *Mul:
		expStr = "(" + expStr + ")"
	}
	return baseStr + "^" + expStr
}

func (p *Pow) Eval() (*Num, bool) {
	b, ok1 := p.base.Eval()
	e, ok2 := p.exp.Eval()
	if !ok1 || !ok2 {
		return nil, false
	}
	bf := b.Float64()
	ef := e.Float64()
	v := math.Pow(bf, ef)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return NFloat(v), true
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) kind() string   { return "pow" }
func (p *Pow) Base() Expr     { return p.base }
func (p *Pow) Exponent() Expr { return p.exp }

// Call - named application. Circuit unknowns are calls over time (V_n(t)),
// derivative terms are D(f, t), Newton update variables are delta(y), and
// exp/ln/sin/cos carry the transcendental element models.

type Call struct {
	name string
	args []Expr
}

func CallOf(name string, args ...Expr) Expr {
	return (&Call{name: name, args: args}).Simplify()
}

func ExpOf(arg Expr) Expr { return CallOf("exp", arg) }
func LnOf(arg Expr) Expr  { return CallOf("ln", arg) }
func SinOf(arg Expr) Expr { return CallOf("sin", arg) }
func CosOf(arg Expr) Expr { return CallOf("cos", arg) }

func (c *Call) Simplify() Expr {
	args := make([]Expr, len(c.args))
	for i, a := range c.args {
		args[i] = a.Simplify()
	}
	if len(args) == 1 {
		arg := args[0]
		switch c.name {
		case "exp":
			if n, ok := arg.(*Num); ok && n.IsZero() {
				return N(1)
			}
			if inner, ok := arg.(*Call); ok && inner.name == "ln" && len(inner.args) == 1 {
				return inner.args[0]
			}
		case "ln":
			if n, ok := arg.(*Num); ok && n.IsOne() {
				return N(0)
			}
			if inner, ok := arg.(*Call); ok && inner.name == "exp" && len(inner.args) == 1 {
				return inner.args[0]
			}
		case "sin":
			if n, ok := arg.(*Num); ok && n.IsZero() {
				return N(0)
			}
		case "cos":
			if n, ok := arg.(*Num); ok && n.IsZero() {
				return N(1)
			}
		}
	}
	return &Call{name: c.name, args: args}
}

func (c *Call) String() string {
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = a.String()
	}
	return c.name + "(" + strings.Join(parts, ", ") + ")"
}

func (c *Call) Eval() (*Num, bool) {
	if len(c.args) != 1 {
		return nil, false
	}
	n, ok := c.args[0].Eval()
	if !ok {
		return nil, false
	}
	v := n.Float64()
	switch c.name {
	case "exp":
		return NFloat(math.Exp(v)), true
	case "ln":
		if v <= 0 {
			return nil, false
		}
		return NFloat(math.Log(v)), true
	case "sin":
		return NFloat(math.Sin(v)), true
	case "cos":
		return NFloat(math.Cos(v)), true
	}
	return nil, false
}

func (c *Call) Equal(other Expr) bool {
	o, ok := other.(*Call)
	if !ok || c.name != o.name || len(c.args) != len(o.args) {
		return false
	}
	for i := range c.args {
		if !c.args[i].Equal(o.args[i]) {
			return false
		}
	}
	return true
}

func (c *Call) kind() string { return "call" }
func (c *Call) Name() string { return c.name }
func (c *Call) Args() []Expr { return c.args }

// Arithmetic helpers

func Neg(e Expr) Expr      { return MulOf(N(-1), e) }
func SubOf(a, b Expr) Expr { return AddOf(a, Neg(b)) }
func DivOf(a, b Expr) Expr { return MulOf(a, PowOf(b, N(-1))) }

// IsZero reports whether e is symbolically zero after simplification. It is
// a best-effort structural test, not a numerical one.
func IsZero(e Expr) bool {
	n, ok := e.Simplify().(*Num)
	return ok && n.IsZero()
}
