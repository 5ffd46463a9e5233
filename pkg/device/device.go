// Package device provides the circuit elements. Each device stamps its
// symbolic contribution into the MNA system under construction: Kirchhoff
// current terms at its nodes, branch current unknowns, branch constraint
// equations, and DC side conditions.
package device

import (
	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

// Stamper is the equation system under construction, implemented by the
// circuit package.
type Stamper interface {
	// NodeVoltage returns the voltage unknown of a node; ground is zero.
	NodeVoltage(n int) symbolic.Expr
	// AddCurrent adds a term to the sum of currents leaving node n.
	AddCurrent(n int, i symbolic.Expr)
	// AddBranch allocates a branch current unknown.
	AddBranch(name string) symbolic.Expr
	// AddEquation appends a branch constraint equation.
	AddEquation(eq symbolic.Equation)
	// AddInitialCondition appends a DC side-condition hint.
	AddInitialCondition(a symbolic.Arrow)
	// Time returns the current-time symbol.
	Time() symbolic.Expr
}

type Device interface {
	GetName() string
	GetType() string
	GetNodes() []int
	SetNodes(nodes []int)
	Stamp(s Stamper) error
}

type BaseDevice struct {
	Name  string
	Nodes []int
	Value float64
}

func (d *BaseDevice) GetName() string     { return d.Name }
func (d *BaseDevice) GetNodes() []int     { return d.Nodes }
func (d *BaseDevice) SetNodes(nodes []int) { d.Nodes = nodes }
func (d *BaseDevice) GetValue() float64   { return d.Value }
