package stdlib

import "github.com/sarchlab/synthflow/ir"

// wait gates a data token behind N control tokens: the output fires once
// every control has arrived and a data token is present, consuming all
// of them.
type wait struct {
	numControls int
}

func (w wait) TypeName() string                                 { return "Wait" }
func (w wait) HasState() bool                                   { return false }
func (w wait) OutputsSeparate() bool                            { return false }
func (w wait) OutputsTied() bool                                { return true }
func (w wait) HasCycle() bool                                   { return false }
func (w wait) Refinable() bool                                  { return false }
func (w wait) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (w wait) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()...)
}
func (w wait) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (w wait) Print() string                                       { return "" }

// Wait builds a block with one data port of type t and numControls
// control ports (each 1-bit), emitting the data token once every control
// has arrived.
func Wait(name string, t ir.Type, numControls int) *ir.Block {
	inputTypes := make([]ir.Type, numControls+1)
	inputNames := make([]string, numControls+1)
	inputTypes[0] = t
	inputNames[0] = "data"
	for i := 0; i < numControls; i++ {
		inputTypes[i+1] = ir.Int(1)
		inputNames[i+1] = "ctrl"
	}
	return ir.NewBlock(name, wait{numControls: numControls}, inputTypes, []ir.Type{t}, inputNames, []string{"out"})
}
