package pipeline

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/stdlib"
)

// PipelineFrequencyPass walks a module's blocks in (approximate)
// topological order, accumulating combinational delay from each root
// driver forward. Whenever an output's accumulated delay would reach the
// target Period, a PipelineRegister is inserted right after it and
// downstream accumulation resets to zero, the same way a real clock edge
// would. Submodules are recursed into directly (not via
// pass.RunModulePass) so Delay can be cached per output port across the
// whole recursive walk.
type PipelineFrequencyPass struct {
	Period     float64
	Delay      DelayModel
	SkipModule RegionSkip

	cache map[*ir.OutputPort]float64
}

var _ pass.ModulePass = (*PipelineFrequencyPass)(nil)

func (p *PipelineFrequencyPass) Name() string { return "PipelineFrequency" }

func (p *PipelineFrequencyPass) Run(d pass.Design) (bool, error) {
	changed := false
	for _, m := range d.Modules() {
		c, err := p.RunModule(m)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

func (p *PipelineFrequencyPass) RunModule(m *ir.Module) (bool, error) {
	conns := m.Conns()
	if conns == nil {
		return false, nil
	}
	if p.SkipModule != nil && p.SkipModule(m) {
		return false, nil
	}
	if p.cache == nil {
		p.cache = map[*ir.OutputPort]float64{}
	}

	changed := false
	for _, sub := range m.SubModules() {
		c, err := p.RunModule(sub)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}

	delayOf := p.Delay
	if delayOf == nil {
		delayOf = DefaultDelay
	}

	order := topoOrder(conns, m.Blocks())

	finalDelay := map[*ir.OutputPort]float64{}
	var toRegister []*ir.OutputPort

	for _, b := range order {
		var bestIn float64
		for _, ip := range b.Inputs() {
			src, ok := conns.FindSource(ip)
			if !ok {
				continue
			}
			if d, known := finalDelay[src]; known && d > bestIn {
				bestIn = d
			}
		}

		reset := stdlib.IsPipelineRegister(b)
		var outDelay float64
		if reset {
			outDelay = 0
		} else {
			outDelay = bestIn + delayOf(b)
		}

		for _, op := range b.Outputs() {
			final := outDelay
			if !reset && final >= p.Period && conns.CountSinks(op) > 0 {
				toRegister = append(toRegister, op)
				final = 0
			}
			finalDelay[op] = final
			p.cache[op] = final
		}
	}

	for _, op := range toRegister {
		pr, err := insertRegisterAfter(conns, op)
		if err != nil {
			return changed, err
		}
		p.cache[pr.Outputs()[0]] = 0
		changed = true
	}
	if len(toRegister) > 0 {
		fmt.Printf("pipeline: inserted %d pipeline register(s) in module %q to meet a %.0fps clock period\n",
			len(toRegister), m.Name(), p.Period)
	}

	return changed, nil
}

// topoOrder produces a processing order for blocks such that every input
// driven from within blocks is visited before its dependent, falling back
// to treating any remaining (register-fed-back) input as already at a
// fresh clock boundary once no further progress can be made — a
// combinational cycle should already have been eliminated by
// PipelineCyclesPass by the time this pass runs, so any residual loop
// here is assumed to pass through a stateful element.
func topoOrder(conns *ir.ConnectionDB, blocks []*ir.Block) []*ir.Block {
	remaining := map[*ir.Block]int{}
	for _, b := range blocks {
		n := 0
		for _, ip := range b.Inputs() {
			if _, ok := conns.FindSource(ip); ok {
				n++
			}
		}
		remaining[b] = n
	}

	resolved := map[*ir.Block]bool{}
	var order []*ir.Block

	for len(order) < len(blocks) {
		progressed := false
		for _, b := range blocks {
			if resolved[b] {
				continue
			}
			ready := true
			for _, ip := range b.Inputs() {
				src, ok := conns.FindSource(ip)
				if !ok {
					continue
				}
				if !resolved[src.Owner()] {
					ready = false
					break
				}
			}
			if ready {
				resolved[b] = true
				order = append(order, b)
				progressed = true
			}
		}
		if progressed {
			continue
		}

		// Stuck: a loop remains. Release the block with the fewest
		// unresolved inputs, treating those inputs as register-fed.
		var pick *ir.Block
		best := -1
		for _, b := range blocks {
			if resolved[b] {
				continue
			}
			n := 0
			for _, ip := range b.Inputs() {
				if src, ok := conns.FindSource(ip); ok && !resolved[src.Owner()] {
					n++
				}
			}
			if best == -1 || n < best {
				best, pick = n, b
			}
		}
		if pick == nil {
			break
		}
		resolved[pick] = true
		order = append(order, pick)
	}

	return order
}
