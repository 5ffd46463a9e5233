package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

// fakeStamper records device contributions for inspection.
type fakeStamper struct {
	currents  map[int]symbolic.Expr
	branches  []symbolic.Expr
	equations []symbolic.Equation
	hints     []symbolic.Arrow
}

func newFakeStamper() *fakeStamper {
	return &fakeStamper{currents: map[int]symbolic.Expr{}}
}

func (s *fakeStamper) NodeVoltage(n int) symbolic.Expr {
	if n == 0 {
		return symbolic.N(0)
	}
	return symbolic.CallOf("V_n"+string(rune('0'+n)), symbolic.T)
}

func (s *fakeStamper) AddCurrent(n int, i symbolic.Expr) {
	if n == 0 {
		return
	}
	if cur, ok := s.currents[n]; ok {
		s.currents[n] = symbolic.AddOf(cur, i)
		return
	}
	s.currents[n] = i
}

func (s *fakeStamper) AddBranch(name string) symbolic.Expr {
	b := symbolic.CallOf("I_"+name, symbolic.T)
	s.branches = append(s.branches, b)
	return b
}

func (s *fakeStamper) AddEquation(eq symbolic.Equation)     { s.equations = append(s.equations, eq) }
func (s *fakeStamper) AddInitialCondition(a symbolic.Arrow) { s.hints = append(s.hints, a) }
func (s *fakeStamper) Time() symbolic.Expr                  { return symbolic.T }

func TestResistorStamp(t *testing.T) {
	st := newFakeStamper()
	r := NewResistor("R1", 100)
	r.SetNodes([]int{1, 2})
	require.NoError(t, r.Stamp(st))

	v1, v2 := st.NodeVoltage(1), st.NodeVoltage(2)
	// i = (v1 - v2)/R leaves node 1, enters node 2.
	want := symbolic.DivOf(symbolic.SubOf(v1, v2), symbolic.N(100))
	assert.True(t, symbolic.IsZero(symbolic.SubOf(st.currents[1], want)))
	assert.True(t, symbolic.IsZero(symbolic.AddOf(st.currents[1], st.currents[2])))
}

func TestCapacitorStampsDerivative(t *testing.T) {
	st := newFakeStamper()
	c := NewCapacitor("C1", 1e-6)
	c.SetNodes([]int{1, 0})
	require.NoError(t, c.Stamp(st))

	d := symbolic.D(st.NodeVoltage(1), symbolic.T)
	assert.True(t, symbolic.DependsOn(st.currents[1], []symbolic.Expr{d}))
}

func TestInductorAddsBranchAndConstraint(t *testing.T) {
	st := newFakeStamper()
	l := NewInductor("L1", 1e-3)
	l.SetNodes([]int{1, 2})
	require.NoError(t, l.Stamp(st))

	require.Len(t, st.branches, 1)
	il := st.branches[0]
	assert.True(t, st.currents[1].Equal(il))

	require.Len(t, st.equations, 1)
	d := symbolic.D(il, symbolic.T)
	assert.True(t, symbolic.DependsOn(st.equations[0].Residual(), []symbolic.Expr{d}))
}

func TestDiodeStampIsNonlinear(t *testing.T) {
	st := newFakeStamper()
	d := NewDiode("D1")
	d.SetNodes([]int{1, 0})
	require.NoError(t, d.Stamp(st))

	v1 := st.NodeVoltage(1)
	i := st.currents[1]
	// The conductance di/dv depends on the voltage itself.
	g := symbolic.Diff(i, v1)
	assert.True(t, symbolic.DependsOn(g, []symbolic.Expr{v1}))

	// Zero bias, zero current.
	atZero := symbolic.Substitute(i, []symbolic.Arrow{{LHS: v1, RHS: symbolic.N(0)}})
	assert.True(t, symbolic.IsZero(atZero))
}

func TestDiodeNodeCount(t *testing.T) {
	st := newFakeStamper()
	d := NewDiode("D1")
	d.SetNodes([]int{1})
	assert.Error(t, d.Stamp(st))
}

func TestVoltageSourceSignals(t *testing.T) {
	dc := NewDCVoltageSource("V1", 5)
	v, ok := dc.Signal(symbolic.T).Eval()
	require.True(t, ok)
	assert.InDelta(t, 5.0, v.Float64(), 1e-12)

	sin := NewSinVoltageSource("V2", 0, 2, 1000, 0)
	sig := sin.Signal(symbolic.T)
	assert.True(t, symbolic.DependsOn(sig, []symbolic.Expr{symbolic.T}))
	// At t = 0 a zero-phase sine starts at the offset.
	v0, ok := symbolic.Substitute(sig, []symbolic.Arrow{{LHS: symbolic.T, RHS: symbolic.N(0)}}).Eval()
	require.True(t, ok)
	assert.InDelta(t, 0.0, v0.Float64(), 1e-12)
}

func TestInputSourceHint(t *testing.T) {
	st := newFakeStamper()
	in := NewInputVoltageSource("V1", "Vin")
	in.SetNodes([]int{1, 0})
	require.NoError(t, in.Stamp(st))

	require.Len(t, st.hints, 1)
	assert.Equal(t, "Vin(0)", st.hints[0].LHS.String())
	require.Len(t, st.equations, 1)
	assert.True(t, symbolic.DependsOn(st.equations[0].Residual(),
		[]symbolic.Expr{symbolic.CallOf("Vin", symbolic.T)}))
}
