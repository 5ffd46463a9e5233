// Package runtime evaluates a compiled TransientSolution sample by sample.
// Closed-form solution sets are applied directly; Newton blocks are
// iterated to a host tolerance, solving the numeric Jacobian system with
// the sparse LU solver each pass. The compiled solution itself is never
// mutated, so one solution may back several simulators concurrently.
package runtime

import (
	"fmt"
	"math"

	"github.com/kurtamohler/LiveSPICE/pkg/linear"
	"github.com/kurtamohler/LiveSPICE/pkg/matrix"
	"github.com/kurtamohler/LiveSPICE/pkg/solver"
	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

type Options struct {
	MaxIter int
	RelTol  float64
	AbsTol  float64
}

func (o *Options) setDefaults() {
	if o.MaxIter == 0 {
		o.MaxIter = 100
	}
	if o.RelTol == 0 {
		o.RelTol = 1e-6
	}
	if o.AbsTol == 0 {
		o.AbsTol = 1e-12
	}
}

// newtonBlock is the per-simulator numeric state of one Newton set.
type newtonBlock struct {
	set *solver.NewtonIteration
	// residual rows: the Jacobian rows with no coefficient left on the
	// linearly solved deltas, one per nonlinear delta.
	rows []*linear.Combination
	mat  *matrix.Matrix
}

type Simulator struct {
	solution *solver.TransientSolution
	inputs   []symbolic.Expr
	outputs  []symbolic.Expr
	opts     Options

	unknowns []symbolic.Expr
	prevKeys []string // y(t0) rendering per unknown
	curKeys  []string // y(t) rendering per unknown
	inKeys   []string
	inPrev   []string

	blocks []*newtonBlock
	env    map[string]float64
	prev   map[string]float64
	step   int
}

// New prepares a simulator for the compiled solution. inputs are the
// opaque signal expressions bound per sample, outputs any expressions of
// the unknowns to report. Previous-step state is seeded from the
// solution's initial conditions; unknowns without one start at zero.
func New(ts *solver.TransientSolution, inputs, outputs []symbolic.Expr, opts Options) (*Simulator, error) {
	opts.setDefaults()

	s := &Simulator{
		solution: ts,
		inputs:   inputs,
		outputs:  outputs,
		opts:     opts,
		env:      map[string]float64{},
		prev:     map[string]float64{},
	}

	toPrevious := []symbolic.Arrow{{LHS: symbolic.T, RHS: symbolic.T0}}
	atZero := []symbolic.Arrow{{LHS: symbolic.T, RHS: symbolic.N(0)}}
	for _, set := range ts.Solutions {
		for _, u := range set.Unknowns() {
			s.unknowns = append(s.unknowns, u)
			s.curKeys = append(s.curKeys, u.String())
			s.prevKeys = append(s.prevKeys, symbolic.Substitute(u, toPrevious).String())
		}
	}
	for _, in := range inputs {
		s.inKeys = append(s.inKeys, in.String())
		s.inPrev = append(s.inPrev, symbolic.Substitute(in, toPrevious).String())
	}

	// Seed the t0 state from the DC initial conditions.
	for i, u := range s.unknowns {
		key := symbolic.Substitute(u, atZero)
		s.prev[s.prevKeys[i]] = 0
		for _, ic := range ts.InitialConditions {
			if ic.LHS.Equal(key) {
				if v, ok := ic.RHS.Eval(); ok {
					s.prev[s.prevKeys[i]] = v.Float64()
				}
				break
			}
		}
	}
	for _, k := range s.inPrev {
		s.prev[k] = 0
	}

	for _, set := range ts.Solutions {
		ni, ok := set.(*solver.NewtonIteration)
		if !ok {
			continue
		}
		block, err := newBlock(ni)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.blocks = append(s.blocks, block)
	}
	return s, nil
}

func newBlock(ni *solver.NewtonIteration) (*newtonBlock, error) {
	ly := make([]symbolic.Expr, len(ni.LinearUpdates))
	for i, a := range ni.LinearUpdates {
		ly[i] = a.LHS
	}
	b := &newtonBlock{set: ni}
	for _, row := range ni.Jacobian {
		pure := true
		for _, d := range ly {
			if !symbolic.IsZero(row.Coefficient(d)) {
				pure = false
				break
			}
		}
		if pure {
			b.rows = append(b.rows, row)
		}
	}
	if len(b.rows) != len(ni.NonlinearDeltas) {
		return nil, fmt.Errorf("newton block: %d residual rows for %d nonlinear deltas",
			len(b.rows), len(ni.NonlinearDeltas))
	}
	if n := len(ni.NonlinearDeltas); n > 0 {
		mat, err := matrix.New(n)
		if err != nil {
			return nil, err
		}
		b.mat = mat
	}
	return b, nil
}

// Close releases the sparse matrices.
func (s *Simulator) Close() {
	for _, b := range s.blocks {
		if b.mat != nil {
			b.mat.Destroy()
		}
	}
	s.blocks = nil
}

// Step advances the simulation by one timestep and returns the outputs.
// in carries one value per input signal.
func (s *Simulator) Step(in []float64) ([]float64, error) {
	if len(in) != len(s.inputs) {
		return nil, fmt.Errorf("%d input values for %d signals", len(in), len(s.inputs))
	}

	h := s.solution.TimeStep
	t := float64(s.step+1) * h

	env := s.env
	clear(env)
	env["t"] = t
	env["t0"] = t - h
	for k, v := range s.prev {
		env[k] = v
	}
	for i, k := range s.inKeys {
		env[k] = in[i]
	}

	blockIdx := 0
	for _, set := range s.solution.Solutions {
		switch v := set.(type) {
		case *solver.LinearSolutions:
			for _, a := range v.Assignments {
				val, err := s.eval(a.RHS)
				if err != nil {
					return nil, err
				}
				env[a.LHS.String()] = val
			}
		case *solver.NewtonIteration:
			if err := s.iterate(s.blocks[blockIdx], t); err != nil {
				return nil, err
			}
			blockIdx++
		}
	}

	out := make([]float64, len(s.outputs))
	for i, e := range s.outputs {
		val, err := s.eval(e)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}

	// Shift current values into the previous-step state.
	for i := range s.unknowns {
		s.prev[s.prevKeys[i]] = env[s.curKeys[i]]
	}
	for i := range s.inputs {
		s.prev[s.inPrev[i]] = in[i]
	}
	s.step++
	return out, nil
}

// Run steps through all samples; in and the result are indexed
// [sample][signal].
func (s *Simulator) Run(in [][]float64) ([][]float64, error) {
	out := make([][]float64, len(in))
	for i, sample := range in {
		o, err := s.Step(sample)
		if err != nil {
			return nil, err
		}
		out[i] = o
	}
	return out, nil
}

// iterate runs the Newton loop of one block at the current sample.
func (s *Simulator) iterate(b *newtonBlock, t float64) error {
	ni := b.set
	env := s.env

	for _, g := range ni.InitialGuess {
		val, err := s.eval(g.RHS)
		if err != nil {
			return err
		}
		env[g.LHS.String()] = val
	}

	n := len(ni.NonlinearDeltas)
	for iter := 0; iter < s.opts.MaxIter; iter++ {
		if n > 0 {
			b.mat.Clear()
			for i, row := range b.rows {
				f, err := s.eval(row.Constant())
				if err != nil {
					return err
				}
				b.mat.AddRHS(i+1, -f)
				for j, d := range ni.NonlinearDeltas {
					a, err := s.eval(row.Coefficient(d))
					if err != nil {
						return err
					}
					b.mat.AddElement(i+1, j+1, a)
				}
			}
			if err := b.mat.Solve(); err != nil {
				return fmt.Errorf("newton solve at t=%g: %v", t, err)
			}
			dx := b.mat.Solution()
			for j, d := range ni.NonlinearDeltas {
				env[d.String()] = dx[j+1]
			}
		}

		for _, a := range ni.LinearUpdates {
			val, err := s.eval(a.RHS)
			if err != nil {
				return err
			}
			env[a.LHS.String()] = val
		}

		converged := true
		apply := func(d symbolic.Expr) {
			delta := env[d.String()]
			yKey := symbolic.DeltaArg(d).String()
			y := env[yKey] + delta
			env[yKey] = y
			if math.Abs(delta) > s.opts.RelTol*math.Abs(y)+s.opts.AbsTol {
				converged = false
			}
		}
		for _, a := range ni.LinearUpdates {
			apply(a.LHS)
		}
		for _, d := range ni.NonlinearDeltas {
			apply(d)
		}
		if converged {
			return nil
		}
	}

	return fmt.Errorf("failed to converge at t=%g in %d iterations", t, s.opts.MaxIter)
}

// eval computes the numeric value of an expression under the current
// sample environment.
func (s *Simulator) eval(e symbolic.Expr) (float64, error) {
	switch v := e.(type) {
	case *symbolic.Num:
		return v.Float64(), nil
	case *symbolic.Sym:
		if val, ok := s.env[v.Name()]; ok {
			return val, nil
		}
		return 0, fmt.Errorf("unbound symbol %s", v)
	case *symbolic.Add:
		sum := 0.0
		for _, t := range v.Terms() {
			val, err := s.eval(t)
			if err != nil {
				return 0, err
			}
			sum += val
		}
		return sum, nil
	case *symbolic.Mul:
		prod := 1.0
		for _, f := range v.Factors() {
			val, err := s.eval(f)
			if err != nil {
				return 0, err
			}
			prod *= val
		}
		return prod, nil
	case *symbolic.Pow:
		base, err := s.eval(v.Base())
		if err != nil {
			return 0, err
		}
		exp, err := s.eval(v.Exponent())
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	case *symbolic.Call:
		if args := v.Args(); len(args) == 1 {
			switch v.Name() {
			case "exp", "ln", "sin", "cos":
				arg, err := s.eval(args[0])
				if err != nil {
					return 0, err
				}
				switch v.Name() {
				case "exp":
					return math.Exp(arg), nil
				case "ln":
					return math.Log(arg), nil
				case "sin":
					return math.Sin(arg), nil
				case "cos":
					return math.Cos(arg), nil
				}
			}
		}
		if val, ok := s.env[v.String()]; ok {
			return val, nil
		}
		return 0, fmt.Errorf("unbound value %s", v)
	}
	return 0, fmt.Errorf("cannot evaluate %s", e)
}
