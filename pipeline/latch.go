package pipeline

import (
	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/stdlib"
)

// LatchUntiedOutputs inserts a PipelineRegister on every output of a
// block whose outputs are neither tied (they don't all fire together)
// nor declared independently separate — a block shape the base library
// never itself produces but an opaque frontend module can present. A
// register on each such output gives downstream stages the uniform
// one-token-per-edge contract the rest of the pipelining passes assume.
// Only PipelineRegister is used here, the same register
// PipelineCyclesPass and PipelineFrequencyPass insert (see
// DESIGN.md for why no separate Latch block was introduced).
type LatchUntiedOutputs struct {
	SkipModule RegionSkip
}

var _ pass.ModulePass = (*LatchUntiedOutputs)(nil)

func (p *LatchUntiedOutputs) Name() string { return "LatchUntiedOutputs" }

func (p *LatchUntiedOutputs) Run(d pass.Design) (bool, error) {
	return pass.RunModulePass(p, d)
}

func (p *LatchUntiedOutputs) RunModule(m *ir.Module) (bool, error) {
	conns := m.Conns()
	if conns == nil {
		return false, nil
	}
	if p.SkipModule != nil && p.SkipModule(m) {
		return false, nil
	}

	changed := false
	for _, b := range m.Blocks() {
		if len(b.Outputs()) <= 1 || b.OutputsTied() || b.OutputsSeparate() {
			continue
		}
		for _, op := range b.Outputs() {
			sinks := conns.FindSinks(op)
			if len(sinks) == 0 {
				continue
			}
			if len(sinks) == 1 && stdlib.IsPipelineRegister(sinks[0].Owner()) {
				continue // already latched
			}
			if _, err := insertRegisterAfter(conns, op); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}
