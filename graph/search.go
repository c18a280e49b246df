package graph

import "github.com/sarchlab/synthflow/ir"

// Action is a visitor's verdict on arriving at a path.
type Action int

const (
	// Continue lets the search extend this path via Next.
	Continue Action = iota
	// TerminatePath stops extending this one path, without affecting
	// others still queued.
	TerminatePath
	// TerminateSearch stops the whole search immediately.
	TerminateSearch
)

// Visitor is the set of hooks GraphSearch.Run drives. Next declares the
// successor edges of a path; returning nil or empty tells Run the path
// has ended (PathEnd fires instead of enqueuing anything).
type Visitor interface {
	Visit(conns *ir.ConnectionDB, path Path) Action
	Next(conns *ir.ConnectionDB, path Path) []Edge
	PathEnd(conns *ir.ConnectionDB, path Path)
}

// Algo selects the queue discipline: DFS pushes fresh paths to the front,
// BFS appends them to the back.
type Algo int

const (
	DFS Algo = iota
	BFS
)

// DefaultNext implements §4.3's default successor rule: forward search
// proposes every output port of the block owning the path's current
// sink; backward search proposes every input port of the block owning
// the path's current source, paired with whatever currently drives it.
// This is the coarse "look at every port" rule queries lean on when they
// don't need DependenceRule-aware filtering (see query.FindDependencies
// and query.TokenOrderAnalysis for visitors that override Next instead).
func DefaultNext(conns *ir.ConnectionDB, end Edge, dir Direction) []Edge {
	var out []Edge
	switch dir {
	case Forward:
		block := end.Sink.Owner()
		for _, op := range block.Outputs() {
			for _, ip := range conns.FindSinks(op) {
				out = append(out, Edge{Source: op, Sink: ip})
			}
		}
	case Backward:
		block := end.Source.Owner()
		for _, ip := range block.Inputs() {
			if op, ok := conns.FindSource(ip); ok {
				out = append(out, Edge{Source: op, Sink: ip})
			}
		}
	}
	return out
}

// Run seeds a queue with one path per initial edge (via makeSeed) and
// drains it, calling v's hooks at each step. A path already enqueued (by
// Key equality) is never enqueued twice, which is what guarantees
// termination on finite graphs for path representations whose Key space
// is itself finite (EdgePath, VisitPortPath); QueryPath's Key space is
// unbounded on a cyclic graph, so visitors using it must terminate paths
// themselves once Path.HasCycle() holds.
func Run(conns *ir.ConnectionDB, v Visitor, algo Algo, seeds []Path) {
	queue := append([]Path(nil), seeds...)
	seen := map[string]bool{}
	for _, p := range seeds {
		seen[p.Key()] = true
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		switch v.Visit(conns, p) {
		case TerminateSearch:
			return
		case TerminatePath:
			continue
		}

		successors := v.Next(conns, p)
		if len(successors) == 0 {
			v.PathEnd(conns, p)
			continue
		}

		var fresh []Path
		for _, e := range successors {
			np := p.Extend(e)
			if seen[np.Key()] {
				continue
			}
			seen[np.Key()] = true
			fresh = append(fresh, np)
		}
		if len(fresh) == 0 {
			v.PathEnd(conns, p)
			continue
		}

		if algo == DFS {
			queue = append(fresh, queue...)
		} else {
			queue = append(queue, fresh...)
		}
	}
}

// SeedsFromOutputs builds one EdgePath (or VisitPortPath, or a
// zero-length QueryPath extended by one edge) per outgoing connection of
// each given output port — the common "start a forward search from these
// drivers" seeding pattern.
func SeedsFromOutputs(conns *ir.ConnectionDB, outputs []*ir.OutputPort, wrap func(Edge) Path) []Path {
	var seeds []Path
	for _, op := range outputs {
		for _, ip := range conns.FindSinks(op) {
			seeds = append(seeds, wrap(Edge{Source: op, Sink: ip}))
		}
	}
	return seeds
}

// SeedsFromInput builds the seed path(s) for a backward search rooted at
// a single input port's current driver, if any.
func SeedsFromInput(conns *ir.ConnectionDB, ip *ir.InputPort, wrap func(Edge) Path) []Path {
	op, ok := conns.FindSource(ip)
	if !ok {
		return nil
	}
	return []Path{wrap(Edge{Source: op, Sink: ip})}
}

// SeedsFromInputsBlock seeds a backward search from every currently
// driven input of block, each as an EdgePath.
func SeedsFromInputsBlock(conns *ir.ConnectionDB, block *ir.Block) []Path {
	var seeds []Path
	for _, ip := range block.Inputs() {
		if op, ok := conns.FindSource(ip); ok {
			seeds = append(seeds, EdgePath{Edge: Edge{Source: op, Sink: ip}})
		}
	}
	return seeds
}
