package linear

import (
	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

// System is an owned, single-writer list of rows reduced in place. Ties are
// broken by current list order, so callers fix the input ordering to get
// deterministic output.
type System struct {
	rows []*Combination
}

func NewSystem(rows ...*Combination) *System {
	return &System{rows: rows}
}

func (s *System) Rows() []*Combination { return s.rows }

func (s *System) Add(rows ...*Combination) { s.rows = append(s.rows, rows...) }

// Clone copies the system; rows are deep-copied, expressions shared.
func (s *System) Clone() *System {
	rows := make([]*Combination, len(s.rows))
	for i, r := range s.rows {
		rows[i] = r.clone()
	}
	return &System{rows: rows}
}

// FindPivot returns the first row whose leading nonzero column is v.
func (s *System) FindPivot(v symbolic.Expr) *Combination {
	for _, r := range s.rows {
		if p, ok := r.PivotPosition(); ok && p.Equal(v) {
			return r
		}
	}
	return nil
}

// RowReduce eliminates each pivot variable in order: the pivot row is
// scaled to a unit coefficient and the variable is cleared from every
// other row. Variables without a pivot row are skipped; they are free
// with respect to the linear part.
func (s *System) RowReduce(pivots []symbolic.Expr) {
	for _, v := range pivots {
		pivot := s.FindPivot(v)
		if pivot == nil {
			continue
		}
		c := pivot.Coefficient(v)
		if !symbolic.IsZero(symbolic.SubOf(c, symbolic.N(1))) {
			pivot.scale(symbolic.PowOf(c, symbolic.N(-1)))
		}
		for _, r := range s.rows {
			if r == pivot {
				continue
			}
			k := r.Coefficient(v)
			if symbolic.IsZero(k) {
				continue
			}
			r.addScaled(pivot, symbolic.Neg(k))
		}
	}
}

// BackSubstitute clears the above-pivot entries from the last pivot row
// backward so every pivot column is a clean basis vector.
func (s *System) BackSubstitute(pivots []symbolic.Expr) {
	for i := len(pivots) - 1; i >= 0; i-- {
		v := pivots[i]
		pivot := s.FindPivot(v)
		if pivot == nil {
			continue
		}
		for _, r := range s.rows {
			if r == pivot {
				continue
			}
			k := r.Coefficient(v)
			if symbolic.IsZero(k) {
				continue
			}
			c := pivot.Coefficient(v)
			r.addScaled(pivot, symbolic.Neg(symbolic.DivOf(k, c)))
		}
	}
}

// SolveAndRemove walks the pivot variables in reverse, solving each from
// its pivot row (or, failing that, from any row with a nonzero coefficient
// in its column) and removing the consumed row. Later variables are solved
// first so their rows are gone before earlier ones are solved, matching
// upper-triangular consumption. Variables with no usable row are skipped.
func (s *System) SolveAndRemove(pivots []symbolic.Expr) []symbolic.Arrow {
	var arrows []symbolic.Arrow
	for i := len(pivots) - 1; i >= 0; i-- {
		v := pivots[i]
		row := s.FindPivot(v)
		if row == nil {
			for _, r := range s.rows {
				if !symbolic.IsZero(r.Coefficient(v)) {
					row = r
					break
				}
			}
		}
		if row == nil {
			continue
		}
		rhs, err := row.SolveFor(v)
		if err != nil {
			continue
		}
		arrows = append(arrows, symbolic.Arrow{LHS: v, RHS: rhs})
		s.remove(row)
	}
	return arrows
}

func (s *System) remove(row *Combination) {
	for i, r := range s.rows {
		if r == row {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return
		}
	}
}

// Solve is the best-effort linear symbolic solver: equations that are
// linear in the unknowns are reduced and solved; nonlinear equations are
// ignored. Returned arrows may still reference unknowns the linear part
// could not determine.
func Solve(eqs []symbolic.Equation, unknowns []symbolic.Expr) []symbolic.Arrow {
	sys := NewSystem()
	for _, eq := range eqs {
		row, err := FromExpression(eq.Residual(), unknowns)
		if err != nil {
			continue
		}
		sys.Add(row)
	}
	sys.RowReduce(unknowns)
	sys.BackSubstitute(unknowns)
	arrows := sys.SolveAndRemove(unknowns)

	// Reverse into basis order so dependent solutions follow what they use.
	for i, j := 0, len(arrows)-1; i < j; i, j = i+1, j-1 {
		arrows[i], arrows[j] = arrows[j], arrows[i]
	}
	return arrows
}
