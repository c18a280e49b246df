// Package graph is the port-centric DFS/BFS search framework §4.3
// describes: a generic traversal over (source, sink) edges with visitor
// hooks, parameterized by how much history a path remembers.
package graph

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
)

// Direction controls which way Next walks by default: Forward follows
// data from a sink to its owning block's outputs; Backward follows a
// dependence from a source back to its owning block's inputs.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Edge is one (source, sink) step of a traversal — the same pair a
// connection relates, but addressable independent of whether the
// ConnectionDB still holds it (a path remembers edges it has already
// walked even after later mutation).
type Edge struct {
	Source *ir.OutputPort
	Sink   *ir.InputPort
}

func (e Edge) key() string {
	return fmt.Sprintf("%p>%p", e.Source, e.Sink)
}

func (e Edge) equal(o Edge) bool {
	return e.Source == o.Source && e.Sink == o.Sink
}

// Path is the shared trait every path representation satisfies: a
// dedup key for the enqueue-once rule, whether it has looped back on
// itself, how to extend it by one more edge, and its most recent edge.
type Path interface {
	Key() string
	HasCycle() bool
	Extend(e Edge) Path
	LastEdge() Edge
}

// EdgePath remembers only the current edge — compact, for visitors that
// only ever need "where am I now".
type EdgePath struct {
	Edge Edge
}

func (p EdgePath) Key() string        { return p.Edge.key() }
func (p EdgePath) HasCycle() bool     { return false }
func (p EdgePath) Extend(e Edge) Path { return EdgePath{Edge: e} }
func (p EdgePath) LastEdge() Edge     { return p.Edge }

// VisitPortPath remembers only the endpoint port relevant to its
// Direction — good for "have we seen this port?" queries (dominators,
// constant propagation) where collapsing multiple incoming edges into one
// visited port is exactly the dedup behavior wanted.
type VisitPortPath struct {
	Edge Edge
	Dir  Direction
}

func (p VisitPortPath) endpoint() ir.Port {
	if p.Dir == Forward {
		return p.Edge.Sink
	}
	return p.Edge.Source
}

func (p VisitPortPath) Key() string {
	return fmt.Sprintf("%p", p.endpoint())
}
func (p VisitPortPath) HasCycle() bool { return false }
func (p VisitPortPath) Extend(e Edge) Path {
	return VisitPortPath{Edge: e, Dir: p.Dir}
}
func (p VisitPortPath) LastEdge() Edge { return p.Edge }

// QueryPath remembers the ordered list of edges from the origin to the
// current position, so it can detect and extract a cycle.
type QueryPath struct {
	Edges []Edge
}

func (p QueryPath) Key() string {
	s := ""
	for _, e := range p.Edges {
		s += e.key() + "|"
	}
	return s
}

// HasCycle reports whether the path's last edge also appears earlier in
// the path.
func (p QueryPath) HasCycle() bool {
	if len(p.Edges) == 0 {
		return false
	}
	last := p.Edges[len(p.Edges)-1]
	for _, e := range p.Edges[:len(p.Edges)-1] {
		if e.equal(last) {
			return true
		}
	}
	return false
}

func (p QueryPath) Extend(e Edge) Path {
	next := make([]Edge, len(p.Edges)+1)
	copy(next, p.Edges)
	next[len(p.Edges)] = e
	return QueryPath{Edges: next}
}

func (p QueryPath) LastEdge() Edge { return p.Edges[len(p.Edges)-1] }

// ExtractCycle returns the minimal repeating subsequence of edges: the
// slice starting at the first occurrence of the path's final (repeated)
// edge, up to but not including the repeat itself, so the result's first
// source and last sink meet at the same block.
func (p QueryPath) ExtractCycle() []Edge {
	if len(p.Edges) == 0 {
		return nil
	}
	last := p.Edges[len(p.Edges)-1]
	for i, e := range p.Edges[:len(p.Edges)-1] {
		if e.equal(last) {
			return p.Edges[i : len(p.Edges)-1]
		}
	}
	return nil
}
