// Package circuit assembles devices into a symbolic Modified Nodal
// Analysis system. Nodes are named; node "0" and "gnd" are ground. The
// Analyze step produces the Analysis artifact the solver compiles.
package circuit

import (
	"fmt"

	"github.com/kurtamohler/LiveSPICE/pkg/device"
	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

type Circuit struct {
	name      string
	devices   []device.Device
	nodeMap   map[string]int
	nodeNames []string // index 1..n, ground excluded
}

func New(name string) *Circuit {
	return &Circuit{
		name:    name,
		nodeMap: map[string]int{"0": 0, "gnd": 0},
	}
}

func (c *Circuit) Name() string { return c.name }

func (c *Circuit) GetDevices() []device.Device { return c.devices }

// Add connects a device to the named nodes. Node indices are assigned in
// first-mention order, which fixes the ordering of the unknowns.
func (c *Circuit) Add(dev device.Device, nodes ...string) {
	idx := make([]int, len(nodes))
	for i, name := range nodes {
		n, exists := c.nodeMap[name]
		if !exists {
			c.nodeNames = append(c.nodeNames, name)
			n = len(c.nodeNames)
			c.nodeMap[name] = n
		}
		idx[i] = n
	}
	dev.SetNodes(idx)
	c.devices = append(c.devices, dev)
}

// NodeVoltage returns the voltage unknown of a named node.
func (c *Circuit) NodeVoltage(name string) (symbolic.Expr, error) {
	n, exists := c.nodeMap[name]
	if !exists {
		return nil, fmt.Errorf("circuit %s: no node named %s", c.name, name)
	}
	if n == 0 {
		return symbolic.N(0), nil
	}
	return nodeUnknown(c.nodeNames[n-1]), nil
}

// BranchCurrent returns the branch current unknown of a named device.
func (c *Circuit) BranchCurrent(name string) symbolic.Expr {
	return branchUnknown(name)
}

func nodeUnknown(name string) symbolic.Expr {
	return symbolic.CallOf("V_"+name, symbolic.T)
}

func branchUnknown(name string) symbolic.Expr {
	return symbolic.CallOf("I_"+name, symbolic.T)
}

// Analyze stamps every device and returns the MNA system: one Kirchhoff
// current equation per non-ground node, the branch constraint equations in
// stamp order, and the unknowns ordered node voltages first, branch
// currents second.
func (c *Circuit) Analyze() (*Analysis, error) {
	st := &stamper{
		circuit:  c,
		currents: make([]symbolic.Expr, len(c.nodeNames)+1),
	}
	for _, dev := range c.devices {
		if err := dev.Stamp(st); err != nil {
			return nil, fmt.Errorf("stamping %s: %w", dev.GetName(), err)
		}
	}

	var equations []symbolic.Equation
	for n := 1; n <= len(c.nodeNames); n++ {
		if st.currents[n] == nil {
			return nil, fmt.Errorf("circuit %s: node %s is not connected", c.name, c.nodeNames[n-1])
		}
		equations = append(equations, symbolic.Eq(st.currents[n], symbolic.N(0)))
	}
	equations = append(equations, st.equations...)

	unknowns := make([]symbolic.Expr, 0, len(c.nodeNames)+len(st.branches))
	for _, name := range c.nodeNames {
		unknowns = append(unknowns, nodeUnknown(name))
	}
	unknowns = append(unknowns, st.branches...)

	return &Analysis{
		Equations:         equations,
		Unknowns:          unknowns,
		InitialConditions: st.hints,
	}, nil
}

// stamper accumulates device contributions during Analyze.
type stamper struct {
	circuit   *Circuit
	currents  []symbolic.Expr // per node index, 1-based
	branches  []symbolic.Expr
	equations []symbolic.Equation
	hints     []symbolic.Arrow
}

func (s *stamper) NodeVoltage(n int) symbolic.Expr {
	if n == 0 {
		return symbolic.N(0)
	}
	return nodeUnknown(s.circuit.nodeNames[n-1])
}

func (s *stamper) AddCurrent(n int, i symbolic.Expr) {
	if n == 0 {
		return
	}
	if s.currents[n] == nil {
		s.currents[n] = i
		return
	}
	s.currents[n] = symbolic.AddOf(s.currents[n], i)
}

func (s *stamper) AddBranch(name string) symbolic.Expr {
	b := branchUnknown(name)
	s.branches = append(s.branches, b)
	return b
}

func (s *stamper) AddEquation(eq symbolic.Equation) {
	s.equations = append(s.equations, eq)
}

func (s *stamper) AddInitialCondition(a symbolic.Arrow) {
	s.hints = append(s.hints, a)
}

func (s *stamper) Time() symbolic.Expr { return symbolic.T }
