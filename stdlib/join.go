package stdlib

import "github.com/sarchlab/synthflow/ir"

// join concatenates all its inputs into a single struct output once every
// input has arrived (AND, Always).
type join struct{}

func (join) TypeName() string                                 { return "Join" }
func (join) HasState() bool                                   { return false }
func (join) OutputsSeparate() bool                            { return false }
func (join) OutputsTied() bool                                { return true }
func (join) HasCycle() bool                                   { return false }
func (join) Refinable() bool                                  { return false }
func (join) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (join) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()...)
}
func (join) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (join) Print() string                                       { return "" }

// Join builds a block concatenating inputTypes into a single struct
// output.
func Join(name string, inputTypes []ir.Type, inputNames []string) *ir.Block {
	out := ir.Struct(inputTypes...)
	return ir.NewBlock(name, join{}, inputTypes, []ir.Type{out}, inputNames, []string{"out"})
}
