package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/kurtamohler/LiveSPICE/pkg/circuit"
	"github.com/kurtamohler/LiveSPICE/pkg/device"
	"github.com/kurtamohler/LiveSPICE/pkg/runtime"
	"github.com/kurtamohler/LiveSPICE/pkg/solver"
	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
	"github.com/kurtamohler/LiveSPICE/pkg/util"
)

func buildCircuit(name string) (*circuit.Circuit, string, error) {
	switch name {
	case "rc":
		// RC low-pass: Vin -R- out, C to ground.
		ckt := circuit.New("rc lowpass")
		ckt.Add(device.NewInputVoltageSource("V1", "Vin"), "in", "0")
		ckt.Add(device.NewResistor("R1", 1e3), "in", "out")
		ckt.Add(device.NewCapacitor("C1", 100e-9), "out", "0")
		return ckt, "out", nil
	case "clipper":
		// Diode clipper with RC smoothing on the output.
		ckt := circuit.New("diode clipper")
		ckt.Add(device.NewInputVoltageSource("V1", "Vin"), "in", "0")
		ckt.Add(device.NewResistor("R1", 1e3), "in", "clip")
		ckt.Add(device.NewDiode("D1"), "clip", "0")
		ckt.Add(device.NewResistor("R2", 10e3), "clip", "out")
		ckt.Add(device.NewCapacitor("C1", 10e-9), "out", "0")
		return ckt, "out", nil
	case "divider":
		ckt := circuit.New("resistor divider")
		ckt.Add(device.NewInputVoltageSource("V1", "Vin"), "in", "0")
		ckt.Add(device.NewResistor("R1", 10e3), "in", "out")
		ckt.Add(device.NewResistor("R2", 10e3), "out", "0")
		return ckt, "out", nil
	}
	return nil, "", fmt.Errorf("unknown circuit %q (want rc, clipper or divider)", name)
}

func writeXLSX(path string, h float64, in, out []float64) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]string{"t [s]", "Vin [V]", "Vout [V]"})
	for i := range in {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetSheetRow(sheet, cell, &[]float64{float64(i+1) * h, in[i], out[i]})
	}
	return f.SaveAs(path)
}

func writePlot(path string, h float64, in, out []float64) error {
	p := plot.New()
	p.Title.Text = "transient response"
	p.X.Label.Text = "t [s]"
	p.Y.Label.Text = "V"

	mkXY := func(vals []float64) plotter.XYs {
		xy := make(plotter.XYs, len(vals))
		for i, v := range vals {
			xy[i].X = float64(i+1) * h
			xy[i].Y = v
		}
		return xy
	}
	if err := plotutil.AddLines(p, "Vin", mkXY(in), "Vout", mkXY(out)); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

func main() {
	var (
		cktName  = flag.String("circuit", "rc", "circuit to simulate: rc, clipper, divider")
		rateFlag = flag.String("rate", "48k", "sample rate in Hz (engineering suffixes allowed)")
		freqFlag = flag.String("freq", "1k", "input sine frequency in Hz")
		amp      = flag.Float64("amp", 1.0, "input sine amplitude in V")
		samples  = flag.Int("samples", 480, "number of samples to simulate")
		xlsxOut  = flag.String("xlsx", "", "write results to this .xlsx file")
		plotOut  = flag.String("plot", "", "write a waveform plot to this .png file")
		verbose  = flag.Bool("v", false, "verbose compiler logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rate, err := util.ParseValue(*rateFlag)
	if err != nil {
		log.Fatalf("parsing -rate: %v", err)
	}
	freq, err := util.ParseValue(*freqFlag)
	if err != nil {
		log.Fatalf("parsing -freq: %v", err)
	}

	ckt, outNode, err := buildCircuit(*cktName)
	if err != nil {
		log.Fatal(err)
	}
	an, err := ckt.Analyze()
	if err != nil {
		log.Fatalf("analyzing circuit: %v", err)
	}

	h := 1.0 / rate
	ts, err := solver.Solve(an, h, true, logger)
	if err != nil {
		log.Fatalf("compiling %s: %v", ckt.Name(), err)
	}

	vout, err := ckt.NodeVoltage(outNode)
	if err != nil {
		log.Fatal(err)
	}
	vin := symbolic.CallOf("Vin", symbolic.T)
	sim, err := runtime.New(ts, []symbolic.Expr{vin}, []symbolic.Expr{vout}, runtime.Options{})
	if err != nil {
		log.Fatalf("preparing simulator: %v", err)
	}
	defer sim.Close()

	in := make([]float64, *samples)
	out := make([]float64, *samples)
	for i := range in {
		in[i] = *amp * math.Sin(2.0*math.Pi*freq*float64(i+1)*h)
		o, err := sim.Step([]float64{in[i]})
		if err != nil {
			log.Fatalf("simulating: %v", err)
		}
		out[i] = o[0]
	}

	fmt.Printf("%s: %d samples at %s, input %s sine\n",
		ckt.Name(), *samples, util.FormatFrequency(rate), util.FormatFrequency(freq))
	stride := *samples / 10
	if stride == 0 {
		stride = 1
	}
	for i := 0; i < *samples; i += stride {
		fmt.Printf("  t=%-12s Vin=%-12s Vout=%s\n",
			util.FormatValueFactor(float64(i+1)*h, "s"),
			util.FormatValueFactor(in[i], "V"),
			util.FormatValueFactor(out[i], "V"))
	}

	if *xlsxOut != "" {
		if err := writeXLSX(*xlsxOut, h, in, out); err != nil {
			log.Fatalf("writing %s: %v", *xlsxOut, err)
		}
		fmt.Printf("wrote %s\n", *xlsxOut)
	}
	if *plotOut != "" {
		if err := writePlot(*plotOut, h, in, out); err != nil {
			log.Fatalf("writing %s: %v", *plotOut, err)
		}
		fmt.Printf("wrote %s\n", *plotOut)
	}
}
