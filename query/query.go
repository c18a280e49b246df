// Package query implements the fixed graph analyses §4.4 names, each one
// a thin Visitor built on top of graph.Run.
package query

import (
	"sort"

	"github.com/sarchlab/synthflow/graph"
	"github.com/sarchlab/synthflow/ir"
)

// cycleSeeker is shared by BlockCycleExists and FindCycle: it walks
// QueryPaths forward, and flags a cycle the moment a path revisits an
// edge it has already walked. A path is cut the moment it lands on an
// ignored block, before any cycle check, so a loop broken by an ignored
// block (a PipelineRegister, a scheduled region) is never reported no
// matter which seed the search happened to start from. The shared seen
// set cuts any path landing on an edge another path already covered,
// bounding the search by the edge count rather than the path count.
type cycleSeeker struct {
	ignore func(*ir.Block) bool
	found  []graph.Edge
	seen   map[graph.Edge]bool
}

func (v *cycleSeeker) Visit(conns *ir.ConnectionDB, path graph.Path) graph.Action {
	qp := path.(graph.QueryPath)
	last := qp.LastEdge()
	if v.ignore != nil && v.ignore(last.Sink.Owner()) {
		return graph.TerminatePath
	}
	if qp.HasCycle() {
		v.found = qp.ExtractCycle()
		return graph.TerminateSearch
	}
	if v.seen[last] {
		return graph.TerminatePath
	}
	v.seen[last] = true
	return graph.Continue
}

func (v *cycleSeeker) Next(conns *ir.ConnectionDB, path graph.Path) []graph.Edge {
	qp := path.(graph.QueryPath)
	if qp.HasCycle() {
		return nil
	}
	return graph.DefaultNext(conns, qp.LastEdge(), graph.Forward)
}

func (v *cycleSeeker) PathEnd(conns *ir.ConnectionDB, path graph.Path) {}

// BlockCycleExists starts a forward search from each of initOutputs and
// reports whether any path revisits an edge, either within a single
// block's own feedback or along a longer cycle.
func BlockCycleExists(conns *ir.ConnectionDB, initOutputs []*ir.OutputPort) bool {
	v := &cycleSeeker{seen: map[graph.Edge]bool{}}
	seeds := graph.SeedsFromOutputs(conns, initOutputs, func(e graph.Edge) graph.Path {
		return graph.QueryPath{Edges: []graph.Edge{e}}
	})
	graph.Run(conns, v, graph.DFS, seeds)
	return len(v.found) > 0
}

// FindCycle runs a forward search from every internal driver (the
// outputs of blocks module owns) and returns the first cycle found whose
// repeating block is not matched by ignore. Returns nil if no such cycle
// exists.
func FindCycle(module *ir.Module, ignore func(*ir.Block) bool) []graph.Edge {
	conns := module.Conns()
	if conns == nil {
		return nil
	}
	var outputs []*ir.OutputPort
	for _, b := range module.Blocks() {
		outputs = append(outputs, b.Outputs()...)
	}
	v := &cycleSeeker{ignore: ignore, seen: map[graph.Edge]bool{}}
	seeds := graph.SeedsFromOutputs(conns, outputs, func(e graph.Edge) graph.Path {
		return graph.QueryPath{Edges: []graph.Edge{e}}
	})
	graph.Run(conns, v, graph.DFS, seeds)
	return v.found
}

// dominatorVisitor records every block reached walking backward from a
// block's inputs.
type dominatorVisitor struct {
	seen map[*ir.Block]bool
}

func (v *dominatorVisitor) Visit(conns *ir.ConnectionDB, path graph.Path) graph.Action {
	e := path.LastEdge()
	v.seen[e.Source.Owner()] = true
	return graph.Continue
}

func (v *dominatorVisitor) Next(conns *ir.ConnectionDB, path graph.Path) []graph.Edge {
	return graph.DefaultNext(conns, path.LastEdge(), graph.Backward)
}

func (v *dominatorVisitor) PathEnd(conns *ir.ConnectionDB, path graph.Path) {}

// FindDominators walks backward from block's inputs and returns every
// block the search reaches — the set of blocks block transitively
// depends on.
func FindDominators(conns *ir.ConnectionDB, block *ir.Block) []*ir.Block {
	v := &dominatorVisitor{seen: map[*ir.Block]bool{}}
	seeds := graph.SeedsFromInputsBlock(conns, block)
	graph.Run(conns, v, graph.BFS, seeds)
	out := make([]*ir.Block, 0, len(v.seen))
	for b := range v.seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// FindConsumers walks forward from output, skipping any block ignore
// matches, and returns every input port it reaches.
func FindConsumers(module *ir.Module, output *ir.OutputPort, ignore func(*ir.Block) bool) []*ir.InputPort {
	conns := module.Conns()
	if conns == nil {
		return nil
	}
	v := &consumerVisitor{ignore: ignore, found: map[*ir.InputPort]bool{}}
	seeds := graph.SeedsFromOutputs(conns, []*ir.OutputPort{output}, func(e graph.Edge) graph.Path {
		return graph.EdgePath{Edge: e}
	})
	graph.Run(conns, v, graph.BFS, seeds)
	out := make([]*ir.InputPort, 0, len(v.found))
	for ip := range v.found {
		out = append(out, ip)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

type consumerVisitor struct {
	ignore func(*ir.Block) bool
	found  map[*ir.InputPort]bool
}

func (v *consumerVisitor) Visit(conns *ir.ConnectionDB, path graph.Path) graph.Action {
	e := path.LastEdge()
	if v.ignore != nil && v.ignore(e.Sink.Owner()) {
		return graph.TerminatePath
	}
	v.found[e.Sink] = true
	return graph.Continue
}

func (v *consumerVisitor) Next(conns *ir.ConnectionDB, path graph.Path) []graph.Edge {
	return graph.DefaultNext(conns, path.LastEdge(), graph.Forward)
}

func (v *consumerVisitor) PathEnd(conns *ir.ConnectionDB, path graph.Path) {}

// FindConstants returns every block all of whose inputs are reachable
// from the outputs of Constant blocks, and every port so reached.
// Monotone: growing the set of Constant blocks can only grow the result.
func FindConstants(module *ir.Module) (constBlocks map[*ir.Block]bool, constPorts map[ir.Port]bool) {
	conns := module.Conns()
	constBlocks = map[*ir.Block]bool{}
	constPorts = map[ir.Port]bool{}
	if conns == nil {
		return
	}

	var roots []*ir.OutputPort
	reachedInputs := map[*ir.Block]map[*ir.InputPort]bool{}
	for _, b := range module.Blocks() {
		if b.TypeName() == "Constant" {
			constBlocks[b] = true
			for _, op := range b.Outputs() {
				constPorts[op] = true
				roots = append(roots, op)
			}
		}
		reachedInputs[b] = map[*ir.InputPort]bool{}
	}

	v := &constantVisitor{constPorts: constPorts, reachedInputs: reachedInputs, constBlocks: constBlocks}
	seeds := graph.SeedsFromOutputs(conns, roots, func(e graph.Edge) graph.Path {
		return graph.EdgePath{Edge: e}
	})
	graph.Run(conns, v, graph.BFS, seeds)
	return
}

type constantVisitor struct {
	constPorts    map[ir.Port]bool
	constBlocks   map[*ir.Block]bool
	reachedInputs map[*ir.Block]map[*ir.InputPort]bool
}

func (v *constantVisitor) Visit(conns *ir.ConnectionDB, path graph.Path) graph.Action {
	e := path.LastEdge()
	ip := e.Sink
	owner := ip.Owner()
	v.constPorts[ip] = true
	if _, ok := v.reachedInputs[owner]; !ok {
		v.reachedInputs[owner] = map[*ir.InputPort]bool{}
	}
	v.reachedInputs[owner][ip] = true
	if len(v.reachedInputs[owner]) < len(owner.Inputs()) {
		return graph.TerminatePath
	}
	if v.constBlocks[owner] {
		return graph.TerminatePath
	}
	v.constBlocks[owner] = true
	for _, op := range owner.Outputs() {
		v.constPorts[op] = true
	}
	return graph.Continue
}

func (v *constantVisitor) Next(conns *ir.ConnectionDB, path graph.Path) []graph.Edge {
	e := path.LastEdge()
	owner := e.Sink.Owner()
	var out []graph.Edge
	for _, op := range owner.Outputs() {
		for _, ip := range conns.FindSinks(op) {
			out = append(out, graph.Edge{Source: op, Sink: ip})
		}
	}
	return out
}

func (v *constantVisitor) PathEnd(conns *ir.ConnectionDB, path graph.Path) {}
