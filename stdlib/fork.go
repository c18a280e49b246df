package stdlib

import "github.com/sarchlab/synthflow/ir"

// fork fans one input out to N identical outputs. A virt fork models a
// constant or region-internal replication rather than a real wire split;
// SynthesizeForksPass sets the flag, and region absorption removes only
// non-virtual Forks. PipelineFrequencyPass's DefaultDelay charges a
// virtual Fork the same unit delay as any other combinational block.
type fork struct {
	virt bool
}

func (f fork) TypeName() string                                 { return "Fork" }
func (f fork) HasState() bool                                   { return false }
func (f fork) OutputsSeparate() bool                            { return true }
func (f fork) OutputsTied() bool                                { return false }
func (f fork) HasCycle() bool                                   { return false }
func (f fork) Refinable() bool                                  { return false }
func (f fork) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (f fork) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()[0])
}
func (f fork) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (f fork) Print() string {
	if f.virt {
		return "virt"
	}
	return ""
}

// Virt reports whether a Fork block is virtual (no-cost).
func (f fork) Virt() bool { return f.virt }

// Fork builds a fan-out block of type t with n outputs.
func Fork(name string, t ir.Type, n int, virt bool) *ir.Block {
	outTypes := make([]ir.Type, n)
	for i := range outTypes {
		outTypes[i] = t
	}
	return ir.NewBlock(name, fork{virt: virt}, []ir.Type{t}, outTypes, []string{"in"}, nil)
}

// IsFork reports whether b was built by Fork, and whether it is virtual.
func IsFork(b *ir.Block) (virt bool, ok bool) {
	f, ok := b.Impl().(fork)
	if !ok {
		return false, false
	}
	return f.virt, true
}
