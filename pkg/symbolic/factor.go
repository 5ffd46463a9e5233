package symbolic

import (
	"math/big"
	"sort"
)

// Factor rewrites sums by pulling out factors common to every term. The
// goal is arithmetic minimization of the compiled update expressions, not
// polynomial factorization: a/(q) + b/(q) becomes (a + b)/q and g*a + g*b
// becomes g*(a + b). Children are factored first.
func Factor(e Expr) Expr {
	switch v := e.(type) {
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = Factor(t)
		}
		return factorSum(terms)
	case *Mul:
		// Rebuilt raw: the constructor would redistribute factored children.
		factors := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			factors[i] = Factor(f)
		}
		return &Mul{factors: factors}
	case *Pow:
		return &Pow{base: Factor(v.base), exp: v.exp}
	case *Call:
		args := make([]Expr, len(v.args))
		for i, a := range v.args {
			args[i] = Factor(a)
		}
		return &Call{name: v.name, args: args}
	}
	return e
}

type termFactor struct {
	base Expr
	exp  *Num
}

// termFactors decomposes a term into numeric coefficient and base^exp parts.
func termFactors(e Expr) (*Num, []termFactor) {
	coeff, rest := coefficientOf(e)
	if rest == nil {
		return coeff, nil
	}
	var parts []Expr
	if m, ok := rest.(*Mul); ok {
		parts = m.factors
	} else {
		parts = []Expr{rest}
	}
	fs := make([]termFactor, 0, len(parts))
	for _, p := range parts {
		if pw, ok := p.(*Pow); ok {
			if en, ok2 := pw.exp.(*Num); ok2 {
				fs = append(fs, termFactor{base: pw.base, exp: en})
				continue
			}
		}
		fs = append(fs, termFactor{base: p, exp: N(1)})
	}
	return coeff, fs
}

func factorSum(terms []Expr) Expr {
	sum := AddOf(terms...)
	add, ok := sum.(*Add)
	if !ok || len(add.terms) < 2 {
		return sum
	}

	coeffs := make([]*Num, len(add.terms))
	factors := make([][]termFactor, len(add.terms))
	for i, t := range add.terms {
		coeffs[i], factors[i] = termFactors(t)
	}

	common := commonFactors(factors)
	g := commonRational(coeffs)
	if len(common) == 0 && g.IsOne() {
		return sum
	}

	inv := make([]Expr, 0, len(common)+1)
	pulled := make([]Expr, 0, len(common)+1)
	if !g.IsOne() {
		inv = append(inv, numRecip(g))
	}
	for _, c := range common {
		pulled = append(pulled, PowOf(c.base, c.exp))
		inv = append(inv, PowOf(c.base, numMul(N(-1), c.exp)))
	}

	reduced := make([]Expr, len(add.terms))
	for i, t := range add.terms {
		reduced[i] = MulOf(append([]Expr{t}, inv...)...)
	}
	pulled = append(pulled, AddOf(reduced...))

	// Built as a raw product: running it through the constructor would
	// redistribute the common factors over the sum again.
	sortExprs(pulled)
	if g.IsOne() && len(pulled) == 1 {
		return pulled[0]
	}
	if !g.IsOne() {
		pulled = append([]Expr{g}, pulled...)
	}
	return &Mul{factors: pulled}
}

func sortExprs(es []Expr) {
	sort.Slice(es, func(i, j int) bool { return es[i].String() < es[j].String() })
}

// commonFactors intersects the factor lists of every term: a base is common
// when it appears in all terms with same-signed exponents; the shared
// exponent is the one closest to zero.
func commonFactors(factors [][]termFactor) []termFactor {
	if len(factors) == 0 {
		return nil
	}
	common := append([]termFactor(nil), factors[0]...)
	for _, fs := range factors[1:] {
		next := common[:0]
		for _, c := range common {
			for _, f := range fs {
				if !c.base.Equal(f.base) {
					continue
				}
				if c.exp.IsPositive() != f.exp.IsPositive() {
					continue
				}
				e := c.exp
				if numAbsCmp(f.exp, c.exp) < 0 {
					e = f.exp
				}
				next = append(next, termFactor{base: c.base, exp: e})
				break
			}
		}
		common = next
		if len(common) == 0 {
			return nil
		}
	}
	return common
}

func numAbsCmp(a, b *Num) int {
	aa := new(big.Rat).Abs(a.val)
	bb := new(big.Rat).Abs(b.val)
	return aa.Cmp(bb)
}

// commonRational returns the gcd of the integer coefficients, or one when
// any coefficient is non-integer or the gcd carries no information.
func commonRational(coeffs []*Num) *Num {
	g := big.NewInt(0)
	for _, c := range coeffs {
		if !c.IsInteger() {
			return N(1)
		}
		g.GCD(nil, nil, g, new(big.Int).Abs(c.val.Num()))
	}
	if g.Sign() == 0 || g.Cmp(big.NewInt(1)) <= 0 {
		return N(1)
	}
	return &Num{val: new(big.Rat).SetInt(g)}
}
