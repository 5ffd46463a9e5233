package symbolic

import "sort"

// Arrow is a solved assignment lhs := rhs. The left-hand side is a single
// unknown; ordered sequences of arrows are consumed front to back, so a
// right-hand side may only reference unknowns solved by earlier arrows.
type Arrow struct {
	LHS Expr
	RHS Expr
}

func ArrowOf(lhs, rhs Expr) Arrow { return Arrow{LHS: lhs, RHS: rhs} }

func (a Arrow) String() string { return a.LHS.String() + " := " + a.RHS.String() }

// Equation is the equality lhs = rhs.
type Equation struct {
	LHS Expr
	RHS Expr
}

func Eq(lhs, rhs Expr) Equation { return Equation{LHS: lhs, RHS: rhs} }

func (e Equation) String() string { return e.LHS.String() + " = " + e.RHS.String() }

// Residual returns lhs - rhs simplified.
func (e Equation) Residual() Expr { return SubOf(e.LHS, e.RHS) }

// Substitute applies all arrows in parallel: each maximal subtree equal to
// an arrow's left-hand side is replaced by that arrow's right-hand side,
// and replacements are never re-substituted. Matching whole subtrees first
// means t -> t0 rewrites V(t) to V(t0) through the argument list, while a
// V(t) -> x arrow shadows the t inside it.
func Substitute(e Expr, subs []Arrow) Expr {
	if len(subs) == 0 {
		return e
	}
	return substitute(e, subs).Simplify()
}

func substitute(e Expr, subs []Arrow) Expr {
	for _, s := range subs {
		if e.Equal(s.LHS) {
			return s.RHS
		}
	}
	switch v := e.(type) {
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = substitute(t, subs)
		}
		return AddOf(terms...)
	case *Mul:
		factors := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			factors[i] = substitute(f, subs)
		}
		return MulOf(factors...)
	case *Pow:
		return PowOf(substitute(v.base, subs), substitute(v.exp, subs))
	case *Call:
		args := make([]Expr, len(v.args))
		for i, a := range v.args {
			args[i] = substitute(a, subs)
		}
		return CallOf(v.name, args...)
	}
	return e
}

// SubstituteEq applies arrows to both sides of an equation.
func SubstituteEq(e Equation, subs []Arrow) Equation {
	return Eq(Substitute(e.LHS, subs), Substitute(e.RHS, subs))
}

// Diff returns the partial derivative of e with respect to wrt, where wrt
// may be any expression atom (a symbol, or a call such as V_n(t)). Calls
// other than wrt whose name has no differentiation rule are treated as
// opaque constants; the Jacobian construction relies on that to
// differentiate residuals with respect to unknowns-as-atoms.
func Diff(e, wrt Expr) Expr {
	if e.Equal(wrt) {
		return N(1)
	}
	switch v := e.(type) {
	case *Num, *Sym:
		return N(0)
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = Diff(t, wrt)
		}
		return AddOf(terms...)
	case *Mul:
		terms := make([]Expr, len(v.factors))
		for i, fi := range v.factors {
			rest := make([]Expr, 0, len(v.factors))
			rest = append(rest, Diff(fi, wrt))
			for j, fj := range v.factors {
				if j != i {
					rest = append(rest, fj)
				}
			}
			terms[i] = MulOf(rest...)
		}
		return AddOf(terms...)
	case *Pow:
		du := Diff(v.base, wrt)
		dv := Diff(v.exp, wrt)
		if IsZero(dv) {
			// d(u^c) = c*u^(c-1)*du
			return MulOf(v.exp, PowOf(v.base, SubOf(v.exp, N(1))), du)
		}
		if IsZero(du) {
			// d(c^v) = c^v*ln(c)*dv
			return MulOf(PowOf(v.base, v.exp), LnOf(v.base), dv)
		}
		return MulOf(PowOf(v.base, v.exp),
			AddOf(MulOf(dv, LnOf(v.base)), MulOf(v.exp, du, PowOf(v.base, N(-1)))))
	case *Call:
		if len(v.args) == 1 {
			du := Diff(v.args[0], wrt)
			switch v.name {
			case "exp":
				return MulOf(ExpOf(v.args[0]), du)
			case "ln":
				return MulOf(PowOf(v.args[0], N(-1)), du)
			case "sin":
				return MulOf(CosOf(v.args[0]), du)
			case "cos":
				return MulOf(N(-1), SinOf(v.args[0]), du)
			}
		}
		return N(0)
	}
	return N(0)
}

// DependsOn reports whether e contains a subtree equal to any member of set.
func DependsOn(e Expr, set []Expr) bool {
	for _, s := range set {
		if e.Equal(s) {
			return true
		}
	}
	switch v := e.(type) {
	case *Add:
		for _, t := range v.terms {
			if DependsOn(t, set) {
				return true
			}
		}
	case *Mul:
		for _, f := range v.factors {
			if DependsOn(f, set) {
				return true
			}
		}
	case *Pow:
		return DependsOn(v.base, set) || DependsOn(v.exp, set)
	case *Call:
		for _, a := range v.args {
			if DependsOn(a, set) {
				return true
			}
		}
	}
	return false
}

// Vars collects the free symbols of e, sorted by name.
func Vars(e Expr) []*Sym {
	seen := map[string]bool{}
	var out []*Sym
	collectVars(e, seen, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func collectVars(e Expr, seen map[string]bool, out *[]*Sym) {
	switch v := e.(type) {
	case *Sym:
		if !seen[v.name] {
			seen[v.name] = true
			*out = append(*out, v)
		}
	case *Add:
		for _, t := range v.terms {
			collectVars(t, seen, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectVars(f, seen, out)
		}
	case *Pow:
		collectVars(v.base, seen, out)
		collectVars(v.exp, seen, out)
	case *Call:
		for _, a := range v.args {
			collectVars(a, seen, out)
		}
	}
}

// Distinguished time symbols shared by the compiler and the runtime.
var (
	T  = S("t")
	T0 = S("t0")
)

// D builds the derivative term D(f, x), distributing over sums and pulling
// out numeric coefficients so a capacitor's C*D(Va - Vb, t) lands on the
// per-unknown D(y, t) basis atoms. Symbolic factors stay inside the D term.
func D(f, x Expr) Expr {
	f = f.Simplify()
	if _, ok := f.Eval(); ok {
		return N(0)
	}
	switch v := f.(type) {
	case *Sym:
		if v.Equal(x) {
			return N(1)
		}
		return N(0)
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = D(t, x)
		}
		return AddOf(terms...)
	case *Mul:
		if c, rest := coefficientOf(f); rest != nil && !c.IsOne() {
			return MulOf(c, D(rest, x))
		}
	}
	return CallOf("D", f, x)
}

// IsD reports whether e is a derivative term D(f, x).
func IsD(e Expr) bool {
	c, ok := e.(*Call)
	return ok && c.name == "D" && len(c.args) == 2
}

// DArg returns the differentiated operand of a derivative term.
func DArg(e Expr) Expr {
	return e.(*Call).args[0]
}

// NewtonDelta returns the update variable paired with unknown y in
// Newton-Raphson. The mapping is purely symbolic and bijective.
func NewtonDelta(y Expr) Expr { return CallOf("delta", y) }

// IsNewtonDelta reports whether e is a Newton update variable.
func IsNewtonDelta(e Expr) bool {
	c, ok := e.(*Call)
	return ok && c.name == "delta" && len(c.args) == 1
}

// DeltaArg returns the unknown a Newton update variable belongs to.
func DeltaArg(e Expr) Expr {
	return e.(*Call).args[0]
}
