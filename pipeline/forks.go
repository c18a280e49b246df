package pipeline

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/stdlib"
)

// SynthesizeForksPass replaces every multi-fanout OutputPort with an
// explicit Fork block, so the rest of the backend never has to reason
// about one output driving several sinks directly. A Fork is marked
// virtual when the output it replaces is driven by a Constant block, or
// when InRegion reports the fork's driving output belongs
// to a scheduled region; otherwise it models a real wire split. Once all
// forks exist, any fork whose branches reconverge on a shared descendant
// without a PipelineRegister on at least one branch gets one inserted,
// which is what prevents the rendezvous deadlock two unregistered copies
// of the same token would otherwise hit at the join.
type SynthesizeForksPass struct {
	InRegion   func(op *ir.OutputPort) bool
	SkipModule RegionSkip
}

var _ pass.ModulePass = (*SynthesizeForksPass)(nil)

func (p *SynthesizeForksPass) Name() string { return "SynthesizeForks" }

func (p *SynthesizeForksPass) Run(d pass.Design) (bool, error) {
	return pass.RunModulePass(p, d)
}

func (p *SynthesizeForksPass) RunModule(m *ir.Module) (bool, error) {
	conns := m.Conns()
	if conns == nil {
		return false, nil
	}
	if p.SkipModule != nil && p.SkipModule(m) {
		return false, nil
	}

	changed := false
	var forks []*ir.Block

	for _, b := range m.Blocks() {
		for _, op := range b.Outputs() {
			sinks := conns.FindSinks(op)
			if len(sinks) <= 1 {
				continue
			}

			virt := constantDriven(b) || (p.InRegion != nil && p.InRegion(op))
			fk := stdlib.Fork(freshName(b.Name()+".fork"), op.Type(), len(sinks), virt)
			pass.StampHistory(fk, ir.HistorySourceOptimization, b)

			for _, ip := range sinks {
				conns.Disconnect(op, ip)
			}
			if err := conns.Connect(op, fk.Inputs()[0]); err != nil {
				return changed, err
			}
			for i, ip := range sinks {
				if err := conns.Connect(fk.Outputs()[i], ip); err != nil {
					return changed, err
				}
			}

			forks = append(forks, fk)
			changed = true
		}
	}

	if len(forks) > 0 {
		fmt.Printf("pipeline: synthesized %d fork(s) in module %q\n", len(forks), m.Name())
	}

	recombined := 0
	for _, fk := range forks {
		c, n, err := pipelineReconvergence(conns, fk)
		if err != nil {
			return changed, err
		}
		changed = changed || c
		recombined += n
	}
	if recombined > 0 {
		fmt.Printf("pipeline: inserted %d pipeline register(s) in module %q to break fork recombination\n",
			recombined, m.Name())
	}

	return changed, nil
}

// constantDriven is a (deliberately shallow) heuristic: a fan-out is
// treated as constant-only when the block driving it is itself a
// Constant. It does not trace back through intervening blocks.
func constantDriven(b *ir.Block) bool {
	return b.TypeName() == "Constant"
}

// pipelineReconvergence inserts a PipelineRegister on fk's first branch
// whenever two of its branches can reach a common descendant block
// without either branch having crossed a PipelineRegister first,
// repeating until fk's branches no longer reconverge unregistered. It
// reports how many registers it inserted, for the caller's narration.
func pipelineReconvergence(conns *ir.ConnectionDB, fk *ir.Block) (bool, int, error) {
	changed := false
	inserted := 0
	for {
		outputs := fk.Outputs()
		reach := make([]map[*ir.Block]bool, len(outputs))
		for i, op := range outputs {
			reach[i] = reachableWithoutRegister(conns, op)
		}

		offender := -1
		for i := 0; i < len(outputs) && offender == -1; i++ {
			for j := i + 1; j < len(outputs); j++ {
				if intersects(reach[i], reach[j]) {
					offender = i
					break
				}
			}
		}
		if offender == -1 {
			return changed, inserted, nil
		}

		if _, err := insertRegisterAfter(conns, outputs[offender]); err != nil {
			return changed, inserted, err
		}
		changed = true
		inserted++
	}
}

func reachableWithoutRegister(conns *ir.ConnectionDB, start *ir.OutputPort) map[*ir.Block]bool {
	visited := map[*ir.Block]bool{}
	queue := []*ir.OutputPort{start}
	for len(queue) > 0 {
		op := queue[0]
		queue = queue[1:]
		for _, ip := range conns.FindSinks(op) {
			owner := ip.Owner()
			if visited[owner] {
				continue
			}
			visited[owner] = true
			if stdlib.IsPipelineRegister(owner) {
				continue
			}
			queue = append(queue, owner.Outputs()...)
		}
	}
	return visited
}

func intersects(a, b map[*ir.Block]bool) bool {
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	for k := range small {
		if big[k] {
			return true
		}
	}
	return false
}
