package region

import (
	"github.com/sarchlab/synthflow/lperr"

	"github.com/sarchlab/synthflow/ir"
)

// PruneToNED repeatedly removes the offending full member whose external
// output most disagrees with the region's designated root, until every
// external output's external-dependence set equals the full set of
// external inputs (NED holds) or the region becomes empty — §4.6.2.
func (r *ScheduledRegion) PruneToNED() error {
	for {
		extIn := r.ExternalInputs()
		if len(extIn) == 0 && len(r.blocks) > 1 {
			// A region with no external input but more than the seed is
			// degenerate (everything it needs it already produces); treat
			// as satisfying NED vacuously.
			return nil
		}
		fullInputSet := map[*ir.InputPort]bool{}
		for _, ip := range extIn {
			fullInputSet[ip] = true
		}

		outputs := r.ExternalOutputs()
		if len(outputs) == 0 {
			return lperr.InvalidCallf("scheduled region: empty after pruning")
		}

		depSets := make(map[*ir.OutputPort]map[*ir.InputPort]bool, len(outputs))
		for _, op := range outputs {
			depSets[op] = r.externalDeps(op)
		}

		root := r.designatedRoot(outputs)
		rootSet := depSets[root]

		if nedHolds(depSets, fullInputSet) {
			return nil
		}

		worst := worstOffender(outputs, depSets, rootSet)
		r.removeBlock(worst.Owner())
		r.cleanIneligible()
	}
}

// designatedRoot picks the first external output in growth order, so
// pruning is deterministic across runs over the same graph.
func (r *ScheduledRegion) designatedRoot(outputs []*ir.OutputPort) *ir.OutputPort {
	set := map[*ir.OutputPort]bool{}
	for _, op := range outputs {
		set[op] = true
	}
	for _, p := range r.order {
		if op, ok := p.(*ir.OutputPort); ok && set[op] {
			return op
		}
	}
	return outputs[0]
}

func nedHolds(depSets map[*ir.OutputPort]map[*ir.InputPort]bool, fullInputSet map[*ir.InputPort]bool) bool {
	for _, set := range depSets {
		if !setEqual(set, fullInputSet) {
			return false
		}
	}
	return true
}

func setEqual(a, b map[*ir.InputPort]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func symmetricDiffSize(a, b map[*ir.InputPort]bool) int {
	n := 0
	for k := range a {
		if !b[k] {
			n++
		}
	}
	for k := range b {
		if !a[k] {
			n++
		}
	}
	return n
}

func worstOffender(outputs []*ir.OutputPort, depSets map[*ir.OutputPort]map[*ir.InputPort]bool, rootSet map[*ir.InputPort]bool) *ir.OutputPort {
	var worst *ir.OutputPort
	worstScore := -1
	for _, op := range outputs {
		score := symmetricDiffSize(depSets[op], rootSet)
		if score > worstScore {
			worstScore = score
			worst = op
		}
	}
	return worst
}

// externalDeps computes, for a full-member output, the set of region
// external-input ports it transitively depends on through other full
// members, stopping at each boundary it crosses.
func (r *ScheduledRegion) externalDeps(op *ir.OutputPort) map[*ir.InputPort]bool {
	visited := map[ir.Port]bool{}
	result := map[*ir.InputPort]bool{}

	var walk func(p ir.Port)
	walk = func(p ir.Port) {
		if visited[p] {
			return
		}
		visited[p] = true

		switch pp := p.(type) {
		case *ir.OutputPort:
			owner := pp.Owner()
			for _, ip := range owner.DepRule(pp).Inputs {
				walk(ip)
			}
		case *ir.InputPort:
			src, hasSrc := r.conns.FindSource(pp)
			if !r.full[pp] || !hasSrc || !r.full[src] {
				result[pp] = true
				return
			}
			walk(src)
		}
	}
	walk(op)
	return result
}

// removeBlock evicts b's ports from full/virtual membership entirely.
func (r *ScheduledRegion) removeBlock(b *ir.Block) {
	delete(r.blocks, b)
	for _, ip := range b.Inputs() {
		delete(r.full, ip)
		delete(r.virtual, ip)
	}
	for _, op := range b.Outputs() {
		delete(r.full, op)
		delete(r.virtual, op)
	}
	kept := r.order[:0]
	for _, p := range r.order {
		if p.Owner() != b {
			kept = append(kept, p)
		}
	}
	r.order = kept
}

// cleanIneligible repeatedly removes any remaining full-member port whose
// own dependence inputs are no longer all full members, to a fixed
// point — the second half of §4.6.2's pruning loop.
func (r *ScheduledRegion) cleanIneligible() {
	for {
		changed := false
		for p := range r.full {
			op, ok := p.(*ir.OutputPort)
			if !ok {
				continue
			}
			owner := op.Owner()
			for _, ip := range owner.DepRule(op).Inputs {
				if !r.full[ip] {
					r.removeBlock(owner)
					changed = true
					break
				}
			}
			if changed {
				break
			}
		}
		if !changed {
			return
		}
	}
}
