package pipeline

import (
	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/stdlib"
)

// PipelineDependentsPass normalizes every non-region block whose outputs
// are tied-but-not-separate into a single Join'd bundle, re-split back
// out through a Fork and one Extract per original output. Downstream
// passes then see one pipelineable edge (the bundle) instead of N wires
// that would otherwise need to be kept in lockstep by hand. A Split block
// reached here (one that escaped refinement) is lowered directly to its
// Fork+Extract form instead, per §4.8's stated special case.
type PipelineDependentsPass struct {
	SkipModule RegionSkip
}

var _ pass.ModulePass = (*PipelineDependentsPass)(nil)

func (p *PipelineDependentsPass) Name() string { return "PipelineDependents" }

func (p *PipelineDependentsPass) Run(d pass.Design) (bool, error) {
	return pass.RunModulePass(p, d)
}

func (p *PipelineDependentsPass) RunModule(m *ir.Module) (bool, error) {
	conns := m.Conns()
	if conns == nil {
		return false, nil
	}
	if p.SkipModule != nil && p.SkipModule(m) {
		return false, nil
	}

	changed := false
	for _, b := range m.Blocks() {
		// A Split is always lowered to Extracts+Fork by this pass — the
		// source this is grounded on has two overloads of Split's own
		// refinable() disagreeing on whether Split should self-refine, so
		// the pass takes the explicit override here rather than relying on
		// b.Refinable().
		if b.TypeName() == "Split" {
			ok, err := stdlib.SplitRefiner{}.Refine(b, conns)
			if err != nil {
				return changed, err
			}
			changed = changed || ok
			continue
		}
		if len(b.Outputs()) > 1 && b.OutputsTied() && !b.OutputsSeparate() {
			if err := bundleTiedOutputs(conns, b); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}

// bundleTiedOutputs rewrites every sink of b's outputs to instead read
// from a Fork+Extract chain fed by a Join of those same outputs, leaving
// b itself untouched.
func bundleTiedOutputs(conns *ir.ConnectionDB, b *ir.Block) error {
	outputs := b.Outputs()
	sinksByOutput := make([][]*ir.InputPort, len(outputs))
	types := make([]ir.Type, len(outputs))
	for i, op := range outputs {
		sinksByOutput[i] = conns.FindSinks(op)
		types[i] = op.Type()
	}

	jn := stdlib.Join(b.Name()+".bundle", types, nil)
	pass.StampHistory(jn, ir.HistorySourceOptimization, b)
	for i, op := range outputs {
		for _, ip := range sinksByOutput[i] {
			conns.Disconnect(op, ip)
		}
		if err := conns.Connect(op, jn.Inputs()[i]); err != nil {
			return err
		}
	}

	fk := stdlib.Fork(b.Name()+".bundle.fork", jn.Outputs()[0].Type(), len(outputs), false)
	pass.StampHistory(fk, ir.HistorySourceOptimization, b)
	if err := conns.Connect(jn.Outputs()[0], fk.Inputs()[0]); err != nil {
		return err
	}

	for i := range outputs {
		ex, err := stdlib.Extract(b.Name()+".bundle.extract", jn.Outputs()[0].Type(), i)
		if err != nil {
			return err
		}
		pass.StampHistory(ex, ir.HistorySourceOptimization, b)
		if err := conns.Connect(fk.Outputs()[i], ex.Inputs()[0]); err != nil {
			return err
		}
		for _, ip := range sinksByOutput[i] {
			if err := conns.Connect(ex.Outputs()[0], ip); err != nil {
				return err
			}
		}
	}

	return nil
}
