package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurtamohler/LiveSPICE/pkg/device"
	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

func rcCircuit() *Circuit {
	ckt := New("rc lowpass")
	ckt.Add(device.NewInputVoltageSource("V1", "Vin"), "in", "0")
	ckt.Add(device.NewResistor("R1", 1e3), "in", "out")
	ckt.Add(device.NewCapacitor("C1", 100e-9), "out", "0")
	return ckt
}

func TestAnalyzeRC(t *testing.T) {
	ckt := rcCircuit()
	an, err := ckt.Analyze()
	require.NoError(t, err)

	// One KCL equation per node plus the source branch constraint.
	assert.Len(t, an.Equations, 3)

	// Node voltages first in first-mention order, then branch currents.
	require.Len(t, an.Unknowns, 3)
	assert.Equal(t, "V_in(t)", an.Unknowns[0].String())
	assert.Equal(t, "V_out(t)", an.Unknowns[1].String())
	assert.Equal(t, "I_V1(t)", an.Unknowns[2].String())

	// The input signal is pinned to zero for DC analysis.
	require.Len(t, an.InitialConditions, 1)
	assert.Equal(t, "Vin(0)", an.InitialConditions[0].LHS.String())
	assert.True(t, symbolic.IsZero(an.InitialConditions[0].RHS))

	// The capacitor node equation carries the derivative term.
	vout, err := ckt.NodeVoltage("out")
	require.NoError(t, err)
	d := symbolic.D(vout, symbolic.T)
	found := false
	for _, eq := range an.Equations {
		if symbolic.DependsOn(eq.Residual(), []symbolic.Expr{d}) {
			found = true
		}
	}
	assert.True(t, found, "no equation references %s", d)
}

func TestAnalyzeDeterminism(t *testing.T) {
	a1, err := rcCircuit().Analyze()
	require.NoError(t, err)
	a2, err := rcCircuit().Analyze()
	require.NoError(t, err)

	require.Len(t, a2.Equations, len(a1.Equations))
	for i := range a1.Equations {
		assert.Equal(t, a1.Equations[i].String(), a2.Equations[i].String())
	}
}

func TestNodeVoltage(t *testing.T) {
	ckt := rcCircuit()

	gnd, err := ckt.NodeVoltage("0")
	require.NoError(t, err)
	assert.True(t, symbolic.IsZero(gnd))

	_, err = ckt.NodeVoltage("nope")
	assert.Error(t, err)
}

func TestAnalyzeRejectsDanglingNode(t *testing.T) {
	ckt := New("dangling")
	r := device.NewResistor("R1", 1e3)
	ckt.Add(r, "a", "b")
	// Rewire past the stamper: node c exists but nothing connects to it.
	ckt.nodeMap["c"] = 3
	ckt.nodeNames = append(ckt.nodeNames, "c")

	_, err := ckt.Analyze()
	assert.Error(t, err)
}

func TestKCLBalance(t *testing.T) {
	// A source and a resistor between node a and ground: one KCL equation
	// for node a and one branch constraint for the source.
	ckt := New("loop")
	ckt.Add(device.NewDCVoltageSource("V1", 5), "a", "0")
	ckt.Add(device.NewResistor("R1", 100), "a", "0")
	an, err := ckt.Analyze()
	require.NoError(t, err)

	require.Len(t, an.Equations, 2)
	// KCL at node a: V_a/100 + I_V1 = 0; branch: V_a = 5.
	va, err := ckt.NodeVoltage("a")
	require.NoError(t, err)
	kcl := an.Equations[0].Residual()
	assert.True(t, symbolic.DependsOn(kcl, []symbolic.Expr{va}))
	assert.True(t, symbolic.DependsOn(kcl, []symbolic.Expr{ckt.BranchCurrent("V1")}))
}
