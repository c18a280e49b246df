package query

import (
	"github.com/sarchlab/synthflow/graph"
	"github.com/sarchlab/synthflow/ir"
)

// FindDependencies walks backward from input and reports every output
// port the search bottoms out at — the frontier outputs input may
// transitively depend on — together with a DependenceRule summarizing
// the walk: Inputs and Latencies come from input's immediate driver,
// while InputType/OutputType are summed across every output visited via
// the AND/OR/Custom monoid (equal InputType survives, disagreements
// collapse to Custom; Always combines to Always only if every
// contributor is Always).
func FindDependencies(module *ir.Module, input *ir.InputPort) ([]*ir.OutputPort, ir.DependenceRule) {
	v := &depVisitor{init: true}

	conns := module.Conns()
	if conns == nil {
		// Opaque module: fall back to the declared external contract, if
		// any output in ExternalDeps actually names this input.
		for op, rule := range module.ExternalDeps {
			if rule.HasInput(input) {
				if v.init {
					v.acc = rule
					v.init = false
				} else {
					v.acc.InputType = v.acc.InputType.Combine(rule.InputType)
					v.acc.OutputType = v.acc.OutputType.Combine(rule.OutputType)
				}
				v.deps = append(v.deps, op)
			}
		}
		return v.deps, v.acc
	}
	seeds := graph.SeedsFromInput(conns, input, func(e graph.Edge) graph.Path {
		return graph.EdgePath{Edge: e}
	})
	graph.Run(conns, v, graph.BFS, seeds)
	return v.deps, v.acc
}

type depVisitor struct {
	acc  ir.DependenceRule
	deps []*ir.OutputPort
	init bool
}

func (v *depVisitor) Visit(conns *ir.ConnectionDB, path graph.Path) graph.Action {
	e := path.LastEdge()
	block := e.Source.Owner()
	rule := block.DepRule(e.Source)
	if v.init {
		v.acc = rule
		v.init = false
	} else {
		v.acc.InputType = v.acc.InputType.Combine(rule.InputType)
		v.acc.OutputType = v.acc.OutputType.Combine(rule.OutputType)
	}
	return graph.Continue
}

func (v *depVisitor) Next(conns *ir.ConnectionDB, path graph.Path) []graph.Edge {
	e := path.LastEdge()
	block := e.Source.Owner()
	rule := block.DepRule(e.Source)
	var out []graph.Edge
	for _, ip := range rule.Inputs {
		if op, ok := conns.FindSource(ip); ok {
			out = append(out, graph.Edge{Source: op, Sink: ip})
		}
	}
	return out
}

func (v *depVisitor) PathEnd(conns *ir.ConnectionDB, path graph.Path) {
	v.deps = append(v.deps, path.LastEdge().Source)
}

// TokenOrderResult is the outcome of TokenOrderAnalysis.
type TokenOrderResult struct {
	// SingleSource is true when every path from sink back to a root
	// passes through source, and source is the only root reached.
	SingleSource bool
	// ReorderPotential is true when some reached block's DependenceRule
	// is OR-combined or Maybe-fired, meaning tokens along different
	// branches are not guaranteed to arrive in a fixed relative order.
	ReorderPotential bool
	// Cyclic is true when the backward search revisited an edge.
	Cyclic bool
}

// TokenOrderAnalysis walks backward from sink's current driver, following
// only the input ports each reached block's DependenceRule names, and
// determines whether firing sink necessarily consumes exactly one token
// from source with a fixed relative order.
func TokenOrderAnalysis(conns *ir.ConnectionDB, source *ir.OutputPort, sink *ir.InputPort) TokenOrderResult {
	v := &tokenOrderVisitor{source: source}
	seeds := graph.SeedsFromInput(conns, sink, func(e graph.Edge) graph.Path {
		return graph.QueryPath{Edges: []graph.Edge{e}}
	})
	graph.Run(conns, v, graph.DFS, seeds)

	result := TokenOrderResult{
		SingleSource:     v.sourceHits == 1 && v.otherRoots == 0,
		ReorderPotential: v.reorderPotential,
		Cyclic:           v.cyclic,
	}
	return result
}

type tokenOrderVisitor struct {
	source           *ir.OutputPort
	sourceHits       int
	otherRoots       int
	reorderPotential bool
	cyclic           bool
}

func (v *tokenOrderVisitor) Visit(conns *ir.ConnectionDB, path graph.Path) graph.Action {
	qp := path.(graph.QueryPath)
	if qp.HasCycle() {
		v.cyclic = true
		return graph.TerminatePath
	}
	e := qp.LastEdge()
	block := e.Source.Owner()
	rule := block.DepRule(e.Source)
	if rule.InputType == ir.OR || rule.OutputType == ir.Maybe {
		v.reorderPotential = true
	}
	if e.Source == v.source {
		v.sourceHits++
		return graph.TerminatePath
	}
	return graph.Continue
}

func (v *tokenOrderVisitor) Next(conns *ir.ConnectionDB, path graph.Path) []graph.Edge {
	qp := path.(graph.QueryPath)
	e := qp.LastEdge()
	block := e.Source.Owner()
	rule := block.DepRule(e.Source)
	var out []graph.Edge
	for _, ip := range rule.Inputs {
		if op, ok := conns.FindSource(ip); ok {
			out = append(out, graph.Edge{Source: op, Sink: ip})
		}
	}
	if len(out) == 0 && e.Source != v.source {
		v.otherRoots++
	}
	return out
}

func (v *tokenOrderVisitor) PathEnd(conns *ir.ConnectionDB, path graph.Path) {}

// CouldReorderTokens reports whether responses on an Interface's
// response path could be reordered relative to its matching requests:
// true whenever the req→resp dependence is not single-sourced, or the
// path it does take admits reordering.
func CouldReorderTokens(conns *ir.ConnectionDB, req *ir.OutputPort, resp *ir.InputPort) bool {
	r := TokenOrderAnalysis(conns, req, resp)
	return !r.SingleSource || r.ReorderPotential
}
