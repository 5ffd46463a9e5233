package runtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurtamohler/LiveSPICE/pkg/circuit"
	"github.com/kurtamohler/LiveSPICE/pkg/device"
	"github.com/kurtamohler/LiveSPICE/pkg/solver"
	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

const sampleRate = 48000.0

func compile(t *testing.T, ckt *circuit.Circuit) *solver.TransientSolution {
	t.Helper()
	an, err := ckt.Analyze()
	require.NoError(t, err)
	ts, err := solver.Solve(an, 1.0/sampleRate, true, nil)
	require.NoError(t, err)
	return ts
}

func TestRCStepResponse(t *testing.T) {
	const (
		r = 1e3
		c = 100e-9
	)
	ckt := circuit.New("rc")
	ckt.Add(device.NewInputVoltageSource("V1", "Vin"), "in", "0")
	ckt.Add(device.NewResistor("R1", r), "in", "out")
	ckt.Add(device.NewCapacitor("C1", c), "out", "0")
	ts := compile(t, ckt)

	vout, err := ckt.NodeVoltage("out")
	require.NoError(t, err)
	vin := symbolic.CallOf("Vin", symbolic.T)

	sim, err := New(ts, []symbolic.Expr{vin}, []symbolic.Expr{vout}, Options{})
	require.NoError(t, err)
	defer sim.Close()

	// Unit step: the trapezoidal response tracks the analytic charge curve
	// with the input step seen half a sample late.
	h := ts.TimeStep
	const steps = 200
	for n := 1; n <= steps; n++ {
		out, err := sim.Step([]float64{1.0})
		require.NoError(t, err)

		want := 1.0 - math.Exp(-(float64(n)-0.5)*h/(r*c))
		assert.InDelta(t, want, out[0], 0.02, "sample %d", n)
	}

	// Fully settled after about 40 time constants.
	out, err := sim.Step([]float64{1.0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 1e-6)
}

func TestDiodeClipperClamps(t *testing.T) {
	ckt := circuit.New("clipper")
	ckt.Add(device.NewInputVoltageSource("V1", "Vin"), "in", "0")
	ckt.Add(device.NewResistor("R1", 1e3), "in", "clip")
	ckt.Add(device.NewDiode("D1"), "clip", "0")
	ts := compile(t, ckt)

	vclip, err := ckt.NodeVoltage("clip")
	require.NoError(t, err)
	vin := symbolic.CallOf("Vin", symbolic.T)

	sim, err := New(ts, []symbolic.Expr{vin}, []symbolic.Expr{vclip}, Options{MaxIter: 300})
	require.NoError(t, err)
	defer sim.Close()

	// One cycle of a 1 kHz sine at 1.5 V.
	const freq = 1000.0
	maxOut, minOut := math.Inf(-1), math.Inf(1)
	for n := 1; n <= int(sampleRate/freq); n++ {
		in := 1.5 * math.Sin(2*math.Pi*freq*float64(n)/sampleRate)
		out, err := sim.Step([]float64{in})
		require.NoError(t, err)
		maxOut = math.Max(maxOut, out[0])
		minOut = math.Min(minOut, out[0])
	}

	// Positive half clamps to a diode drop, negative half passes through.
	assert.Greater(t, maxOut, 0.4)
	assert.Less(t, maxOut, 0.8)
	assert.Less(t, minOut, -1.2)
}

func TestRunShapes(t *testing.T) {
	ckt := circuit.New("divider")
	ckt.Add(device.NewInputVoltageSource("V1", "Vin"), "in", "0")
	ckt.Add(device.NewResistor("R1", 1e3), "in", "out")
	ckt.Add(device.NewResistor("R2", 1e3), "out", "0")
	ts := compile(t, ckt)

	vout, err := ckt.NodeVoltage("out")
	require.NoError(t, err)
	vin := symbolic.CallOf("Vin", symbolic.T)

	sim, err := New(ts, []symbolic.Expr{vin}, []symbolic.Expr{vout}, Options{})
	require.NoError(t, err)
	defer sim.Close()

	out, err := sim.Run([][]float64{{1}, {2}, {-2}})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.InDelta(t, 0.5, out[0][0], 1e-9)
	assert.InDelta(t, 1.0, out[1][0], 1e-9)
	assert.InDelta(t, -1.0, out[2][0], 1e-9)
}

func TestStepInputMismatch(t *testing.T) {
	ckt := circuit.New("divider")
	ckt.Add(device.NewInputVoltageSource("V1", "Vin"), "in", "0")
	ckt.Add(device.NewResistor("R1", 1e3), "in", "0")
	ts := compile(t, ckt)

	sim, err := New(ts, []symbolic.Expr{symbolic.CallOf("Vin", symbolic.T)}, nil, Options{})
	require.NoError(t, err)
	defer sim.Close()

	_, err = sim.Step(nil)
	assert.Error(t, err)
}
