package stdlib

import "github.com/sarchlab/synthflow/ir"

// selectBlock emits whichever of its N same-typed inputs arrives first
// (OR, Always): an arbitration point, not a merge.
type selectBlock struct{}

func (selectBlock) TypeName() string                                 { return "Select" }
func (selectBlock) HasState() bool                                   { return false }
func (selectBlock) OutputsSeparate() bool                            { return false }
func (selectBlock) OutputsTied() bool                                { return true }
func (selectBlock) HasCycle() bool                                   { return false }
func (selectBlock) Refinable() bool                                  { return false }
func (selectBlock) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (selectBlock) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.DependenceRule{InputType: ir.OR, OutputType: ir.Always, Inputs: b.Inputs()}
}
func (selectBlock) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (selectBlock) Print() string                                       { return "" }

// Select builds an n-way arbitrating block of type t.
func Select(name string, t ir.Type, n int) *ir.Block {
	inputTypes := make([]ir.Type, n)
	for i := range inputTypes {
		inputTypes[i] = t
	}
	return ir.NewBlock(name, selectBlock{}, inputTypes, []ir.Type{t}, nil, []string{"out"})
}
