// Package stdlib provides the backend-recognized block library §4.5
// describes: the fixed atoms every refinement pass eventually lowers a
// design down to, plus the refiners that rewrite the coarser composite
// blocks (Split, Register, InterfaceMultiplexer, SparseMultiplexer) into
// them.
package stdlib

import "github.com/sarchlab/synthflow/ir"

// identity is a pass-through block: always removable, never stateful.
// It is kept distinct from ir's unexported internal identity (used to
// back ContainerModule's external ports) so this package stays free of
// an import cycle back into ir's constructors.
type identity struct{}

func (identity) TypeName() string                                 { return "Identity" }
func (identity) HasState() bool                                   { return false }
func (identity) OutputsSeparate() bool                            { return false }
func (identity) OutputsTied() bool                                { return true }
func (identity) HasCycle() bool                                   { return false }
func (identity) Refinable() bool                                  { return false }
func (identity) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (identity) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()[0])
}
func (identity) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (identity) Print() string                                       { return "" }

// Identity builds a pass-through block of type t.
func Identity(name string, t ir.Type) *ir.Block {
	return ir.NewBlock(name, identity{}, []ir.Type{t}, []ir.Type{t}, []string{"in"}, []string{"out"})
}

// NullSink discards every token it receives.
type nullSink struct{}

func (nullSink) TypeName() string                                 { return "NullSink" }
func (nullSink) HasState() bool                                   { return false }
func (nullSink) OutputsSeparate() bool                            { return false }
func (nullSink) OutputsTied() bool                                { return true }
func (nullSink) HasCycle() bool                                   { return false }
func (nullSink) Refinable() bool                                  { return false }
func (nullSink) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (nullSink) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.DependenceRule{}
}
func (nullSink) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return nil }
func (nullSink) Print() string                                       { return "" }

// NullSink builds a block that accepts and destroys tokens of type t.
func NullSink(name string, t ir.Type) *ir.Block {
	return ir.NewBlock(name, nullSink{}, []ir.Type{t}, nil, []string{"in"}, nil)
}

// Never produces no tokens, ever — a source with no firing condition.
type never struct{}

func (never) TypeName() string                                 { return "Never" }
func (never) HasState() bool                                   { return false }
func (never) OutputsSeparate() bool                            { return false }
func (never) OutputsTied() bool                                { return true }
func (never) HasCycle() bool                                   { return false }
func (never) Refinable() bool                                  { return false }
func (never) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (never) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.DependenceRule{InputType: ir.AND, OutputType: ir.Maybe}
}
func (never) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return nil }
func (never) Print() string                                       { return "" }

// Never builds a source of type t that never fires.
func Never(name string, t ir.Type) *ir.Block {
	return ir.NewBlock(name, never{}, nil, []ir.Type{t}, nil, []string{"out"})
}

// once emits a single token after reset, then nothing.
type once struct{}

func (once) TypeName() string                                 { return "Once" }
func (once) HasState() bool                                   { return true }
func (once) OutputsSeparate() bool                            { return false }
func (once) OutputsTied() bool                                { return true }
func (once) HasCycle() bool                                   { return false }
func (once) Refinable() bool                                  { return false }
func (once) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (once) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.DependenceRule{InputType: ir.AND, OutputType: ir.Maybe}
}
func (once) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return nil }
func (once) Print() string                                       { return "" }

// Once builds a stateful source of type t that fires exactly once.
func Once(name string, t ir.Type) *ir.Block {
	return ir.NewBlock(name, once{}, nil, []ir.Type{t}, nil, []string{"out"})
}
