package ir

import "strconv"

// BlockImpl is the polymorphic behavior of a concrete block: whether it
// carries state, how its outputs relate to each other, whether it can be
// refined into a subgraph of simpler blocks, and its dependence
// contract. The stdlib package provides the concrete implementations
// (Identity, Wait, Join, Register, …); refine.Engine and query.* consume
// this interface without knowing which concrete block they're looking at.
type BlockImpl interface {
	// TypeName is the block's class name, e.g. "Join" or "RTLReg" — the
	// key a refine.StopCondition or printer.Table groups blocks by.
	TypeName() string

	// HasState reports whether execution depends on prior history.
	HasState() bool
	// OutputsSeparate reports whether outputs may fire independently.
	OutputsSeparate() bool
	// OutputsTied reports whether all outputs fire together. §3's
	// invariant requires OutputsTied() to imply every output shares an
	// identical DepRule/Deps set.
	OutputsTied() bool
	// HasCycle reports whether the block's own internal graph (if any)
	// contains a cycle.
	HasCycle() bool

	// Refinable reports whether Refine can be meaningfully called.
	Refinable() bool
	// Refine rewrites conns, replacing b with an equivalent subgraph. It
	// reports whether a rewrite was applied.
	Refine(b *Block, conns *ConnectionDB) (bool, error)

	// DepRule returns the dependence rule for the given output port,
	// which must belong to b.
	DepRule(b *Block, op *OutputPort) DependenceRule
	// Deps returns the input ports op depends on — a convenience
	// projection of DepRule(b, op).Inputs.
	Deps(b *Block, op *OutputPort) []*InputPort

	// Print renders a short, human-readable description of the block's
	// own parameters (e.g. a Constant's value, an Extract's path) for the
	// printer package.
	Print() string
}

// Block is a node with input and output ports, owned by exactly one
// Module once it participates in a connection. Behavior is delegated to
// Impl; Block itself only carries the structural bookkeeping
// (ports, history, use-count, owning module) common to every block.
type Block struct {
	id      uint64
	name    string
	inputs  []*InputPort
	outputs []*OutputPort
	impl    BlockImpl
	history History
	module  *Module

	// useCount counts the connection endpoints currently on this block's
	// ports (a port driving two sinks counts twice). It is maintained
	// exclusively by ConnectionDB; the block becomes eligible for
	// destruction when it reaches 0 after having been nonzero.
	useCount int
}

// ID returns the block's arena-local identifier.
func (b *Block) ID() uint64 { return b.id }

// Name returns the block's diagnostic name.
func (b *Block) Name() string { return b.name }

// SetName overrides the diagnostic name, e.g. when the printer assigns
// inferred external-port-derived names.
func (b *Block) SetName(name string) { b.name = name }

// Inputs returns the block's input ports in declaration order.
func (b *Block) Inputs() []*InputPort { return b.inputs }

// Outputs returns the block's output ports in declaration order.
func (b *Block) Outputs() []*OutputPort { return b.outputs }

// Impl returns the block's concrete behavior.
func (b *Block) Impl() BlockImpl { return b.impl }

// Module returns the block's owning module, or nil if it has not yet been
// registered by any ConnectionDB.Connect call.
func (b *Block) Module() *Module { return b.module }

// History returns the block's provenance record.
func (b *Block) History() History { return b.history }

// SetHistory overwrites the block's provenance record. Passes use this to
// stamp newly created blocks, per §4.7.
func (b *Block) SetHistory(h History) { b.history = h }

// UseCount reports how many connection endpoints currently sit on the
// block's ports, counted across every ConnectionDB.
func (b *Block) UseCount() int { return b.useCount }

func (b *Block) HasState() bool        { return b.impl.HasState() }
func (b *Block) OutputsSeparate() bool { return b.impl.OutputsSeparate() }
func (b *Block) OutputsTied() bool     { return b.impl.OutputsTied() }
func (b *Block) HasCycle() bool        { return b.impl.HasCycle() }
func (b *Block) Refinable() bool       { return b.impl.Refinable() }

// Refine asks the block's implementation to rewrite conns, replacing b
// with an equivalent subgraph.
func (b *Block) Refine(conns *ConnectionDB) (bool, error) {
	return b.impl.Refine(b, conns)
}

// DepRule returns the dependence rule for op, which must be one of b's
// output ports.
func (b *Block) DepRule(op *OutputPort) DependenceRule {
	return b.impl.DepRule(b, op)
}

// Deps returns the input ports op depends on.
func (b *Block) Deps(op *OutputPort) []*InputPort {
	return b.impl.Deps(b, op)
}

// TypeName returns the block's class name.
func (b *Block) TypeName() string { return b.impl.TypeName() }

// Print renders the block for diagnostics, combining its class name and
// implementation-specific detail.
func (b *Block) Print() string {
	return b.impl.TypeName() + "(" + b.impl.Print() + ")"
}

var nextBlockID uint64

// NewBlock allocates a block around the given implementation, with the
// given input and output port types and names (each must have the same
// length; empty names get the inferred "input0"/"output0" form).
func NewBlock(name string, impl BlockImpl, inputTypes, outputTypes []Type, inputNames, outputNames []string) *Block {
	nextBlockID++
	b := &Block{
		id:      nextBlockID,
		name:    name,
		impl:    impl,
		history: NewHistory(),
	}

	for i, t := range inputTypes {
		n := inferredName("input", inputNames, i)
		b.inputs = append(b.inputs, &InputPort{id: nextPortID(), name: n, typ: t, owner: b})
	}
	for i, t := range outputTypes {
		n := inferredName("output", outputNames, i)
		b.outputs = append(b.outputs, &OutputPort{id: nextPortID(), name: n, typ: t, owner: b})
	}

	return b
}

func inferredName(prefix string, given []string, idx int) string {
	if idx < len(given) && given[idx] != "" {
		return given[idx]
	}
	return prefix + strconv.Itoa(idx)
}

var nextPort uint64

func nextPortID() uint64 {
	nextPort++
	return nextPort
}
