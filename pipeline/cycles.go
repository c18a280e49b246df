package pipeline

import (
	"fmt"

	"github.com/sarchlab/synthflow/graph"
	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/query"
	"github.com/sarchlab/synthflow/stdlib"
)

// PipelineCyclesPass repeatedly finds a combinational cycle (a
// PipelineRegister already on the cycle breaks it, so those are ignored)
// and inserts a PipelineRegister on the cycle's busiest edge, estimated
// by a two-hop flow diffusion from the module's root drivers, until no
// cycle remains.
type PipelineCyclesPass struct {
	SkipModule RegionSkip
}

var _ pass.ModulePass = (*PipelineCyclesPass)(nil)

func (p *PipelineCyclesPass) Name() string { return "PipelineCycles" }

func (p *PipelineCyclesPass) Run(d pass.Design) (bool, error) {
	return pass.RunModulePass(p, d)
}

func ignorePipelineRegister(b *ir.Block) bool { return stdlib.IsPipelineRegister(b) }

func (p *PipelineCyclesPass) RunModule(m *ir.Module) (bool, error) {
	conns := m.Conns()
	if conns == nil {
		return false, nil
	}
	if p.SkipModule != nil && p.SkipModule(m) {
		return false, nil
	}

	changed := false
	inserted := 0
	for {
		cycle := query.FindCycle(m, ignorePipelineRegister)
		if cycle == nil {
			if inserted > 0 {
				fmt.Printf("pipeline: broke %d combinational cycle(s) in module %q with inserted registers\n",
					inserted, m.Name())
			}
			return changed, nil
		}

		flow := estimateFlow(m)
		worst := cycle[0]
		worstFlow := flow[worst]
		for _, e := range cycle[1:] {
			if flow[e] > worstFlow {
				worst, worstFlow = e, flow[e]
			}
		}

		if _, err := insertRegisterAfter(conns, worst.Source); err != nil {
			return changed, err
		}
		inserted++
		changed = true
	}
}

// estimateFlow gives each edge of m a rough relative "busyness" score: one
// unit of flow is seeded at every root driver (a source block with no
// driven inputs) and at every PipelineRegister output, then divided
// evenly across outgoing edges for two propagation hops.
func estimateFlow(m *ir.Module) map[graph.Edge]float64 {
	conns := m.Conns()
	blocks := m.Blocks()

	cur := map[*ir.OutputPort]float64{}
	for _, b := range blocks {
		isRoot := stdlib.IsPipelineRegister(b)
		if !isRoot {
			isRoot = true
			for _, ip := range b.Inputs() {
				if _, ok := conns.FindSource(ip); ok {
					isRoot = false
					break
				}
			}
		}
		if isRoot {
			for _, op := range b.Outputs() {
				cur[op] = 1
			}
		}
	}

	edgeFlow := map[graph.Edge]float64{}
	for hop := 0; hop < 2; hop++ {
		next := map[*ir.OutputPort]float64{}
		for op, f := range cur {
			sinks := conns.FindSinks(op)
			if len(sinks) == 0 {
				continue
			}
			share := f / float64(len(sinks))
			for _, ip := range sinks {
				edgeFlow[graph.Edge{Source: op, Sink: ip}] += share
				for _, oop := range ip.Owner().Outputs() {
					next[oop] += share
				}
			}
		}
		cur = next
	}
	return edgeFlow
}
