package stdlib

import "github.com/sarchlab/synthflow/ir"

// constant emits a fixed value once per firing, with no inputs
// (AND_FireOne over an empty dependency set — it always fires).
type constant struct {
	value ir.Value
}

func (c constant) TypeName() string                                 { return "Constant" }
func (c constant) HasState() bool                                   { return false }
func (c constant) OutputsSeparate() bool                            { return false }
func (c constant) OutputsTied() bool                                { return true }
func (c constant) HasCycle() bool                                   { return false }
func (c constant) Refinable() bool                                  { return false }
func (c constant) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (c constant) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne()
}
func (c constant) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return nil }
func (c constant) Print() string                                       { return c.value.String() }

// Value returns the constant's stored value.
func (c constant) Value() ir.Value { return c.value }

// Constant builds a block that emits v once per firing.
func Constant(name string, v ir.Value) *ir.Block {
	return ir.NewBlock(name, constant{value: v}, nil, []ir.Type{v.Type()}, nil, []string{"out"})
}

// ConstantValue extracts the stored value from a block built by Constant,
// if b is in fact one.
func ConstantValue(b *ir.Block) (ir.Value, bool) {
	c, ok := b.Impl().(constant)
	if !ok {
		return ir.Value{}, false
	}
	return c.value, true
}
