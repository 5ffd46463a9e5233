// Package solver compiles a circuit's Modified Nodal Analysis equations
// into a TransientSolution: an ordered pipeline of closed-form updates and
// Newton iteration blocks that a per-sample runtime evaluates to advance
// the circuit state by one timestep.
package solver

import (
	"strconv"
	"strings"

	"github.com/kurtamohler/LiveSPICE/pkg/linear"
	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

// SolutionSet is one stage of the compiled solution. It is either a
// LinearSolutions list of closed-form assignments or a NewtonIteration
// update block.
type SolutionSet interface {
	// Unknowns returns the unknowns this set determines.
	Unknowns() []symbolic.Expr
	String() string

	isSolutionSet()
}

// LinearSolutions holds assignments an evaluator applies in order, once per
// sample. Each right-hand side references only constants, time symbols,
// previous-step values, input signals and previously solved unknowns.
type LinearSolutions struct {
	Assignments []symbolic.Arrow
}

func (s *LinearSolutions) isSolutionSet() {}

func (s *LinearSolutions) Unknowns() []symbolic.Expr {
	ys := make([]symbolic.Expr, len(s.Assignments))
	for i, a := range s.Assignments {
		ys[i] = a.LHS
	}
	return ys
}

func (s *LinearSolutions) String() string {
	var sb strings.Builder
	sb.WriteString("linear {\n")
	for _, a := range s.Assignments {
		sb.WriteString("  " + a.String() + "\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// NewtonIteration describes one Newton-Raphson step over the update
// variables delta(y). The Jacobian rows are together equivalent to
// J*delta + F(y) = 0 and include the pivot rows of the linearly occurring
// deltas, whose closed-form solutions are LinearUpdates; NonlinearDeltas
// is the vector the evaluator solves numerically each iteration.
type NewtonIteration struct {
	LinearUpdates   []symbolic.Arrow
	Jacobian        []*linear.Combination
	NonlinearDeltas []symbolic.Expr
	InitialGuess    []symbolic.Arrow
}

func (s *NewtonIteration) isSolutionSet() {}

func (s *NewtonIteration) Unknowns() []symbolic.Expr {
	ys := make([]symbolic.Expr, len(s.InitialGuess))
	for i, a := range s.InitialGuess {
		ys[i] = a.LHS
	}
	return ys
}

func (s *NewtonIteration) String() string {
	var sb strings.Builder
	sb.WriteString("newton {\n")
	for _, a := range s.LinearUpdates {
		sb.WriteString("  update " + a.String() + "\n")
	}
	for _, r := range s.Jacobian {
		sb.WriteString("  jacobian " + r.String() + "\n")
	}
	for _, d := range s.NonlinearDeltas {
		sb.WriteString("  solve " + d.String() + "\n")
	}
	for _, a := range s.InitialGuess {
		sb.WriteString("  guess " + a.String() + "\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// TransientSolution is the compiled output: the timestep, the ordered
// solution sets that together update every unknown, and the DC steady
// state of each unknown at t = 0 (empty if DC analysis was skipped or
// failed). It is immutable after construction and safe for concurrent
// reads.
type TransientSolution struct {
	TimeStep          float64
	Solutions         []SolutionSet
	InitialConditions []symbolic.Arrow
}

// String is the canonical rendering; it is byte-stable for identical
// inputs, which downstream codegen caches rely on.
func (ts *TransientSolution) String() string {
	var sb strings.Builder
	sb.WriteString("h = " + strconv.FormatFloat(ts.TimeStep, 'g', -1, 64) + "\n")
	for _, s := range ts.Solutions {
		sb.WriteString(s.String() + "\n")
	}
	for _, a := range ts.InitialConditions {
		sb.WriteString("initial " + a.String() + "\n")
	}
	return sb.String()
}
