// Package refine implements the fixed-point rewrite system §4.2
// describes: a prioritized collection of refiners, a stop condition
// telling the engine which blocks are already backend-primitive, and a
// driver that iterates refiners over a module's blocks until no pass
// makes progress.
package refine

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/synthflow/ir"
)

// Refiner rewrites one kind of coarse block into an equivalent subgraph
// of simpler blocks.
type Refiner interface {
	// Handles reports whether this refiner knows how to rewrite b.
	Handles(b *ir.Block) bool
	// Refine rewrites conns, replacing b with an equivalent subgraph. It
	// reports whether a rewrite was applied.
	Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error)
}

// PriorityCollection holds refiners in registration order and caches, per
// block type-key, the subsequence that matches it.
type PriorityCollection struct {
	refiners []Refiner
	cache    map[string][]Refiner
}

// NewPriorityCollection builds a collection from refiners, tried in the
// given order.
func NewPriorityCollection(refiners ...Refiner) *PriorityCollection {
	return &PriorityCollection{
		refiners: append([]Refiner(nil), refiners...),
		cache:    map[string][]Refiner{},
	}
}

// Matching returns the refiners (in priority order) that Handles(b), using
// and populating the per-type-key cache.
func (c *PriorityCollection) Matching(b *ir.Block) []Refiner {
	key := b.TypeName()
	if cached, ok := c.cache[key]; ok {
		return cached
	}
	var matched []Refiner
	for _, r := range c.refiners {
		if r.Handles(b) {
			matched = append(matched, r)
		}
	}
	c.cache[key] = matched
	return matched
}

// StopCondition tells the engine a block is already a backend primitive
// and needs no further refinement.
type StopCondition interface {
	Stop(b *ir.Block) bool
}

// BaseLibraryStopCondition stops at any block whose TypeName is in a
// fixed class set — the usual case of "these are the backend's atoms".
type BaseLibraryStopCondition struct {
	classes map[string]bool
}

// NewBaseLibraryStopCondition builds a stop condition matching any of the
// given TypeName values.
func NewBaseLibraryStopCondition(classes ...string) *BaseLibraryStopCondition {
	set := make(map[string]bool, len(classes))
	for _, c := range classes {
		set[c] = true
	}
	return &BaseLibraryStopCondition{classes: set}
}

// Stop reports whether b's TypeName is in the stop condition's class set.
func (s *BaseLibraryStopCondition) Stop(b *ir.Block) bool {
	return s.classes[b.TypeName()]
}

// Unrefined returns the blocks among blocks for which stop is false.
func Unrefined(stop StopCondition, blocks []*ir.Block) []*ir.Block {
	var out []*ir.Block
	for _, b := range blocks {
		if !stop.Stop(b) {
			out = append(out, b)
		}
	}
	return out
}

var (
	// HookPosRefine fires once per successful refinement, with the
	// refined block as the hook item — a pass tracer's natural attach
	// point for provenance or stats collection.
	HookPosRefine = &sim.HookPos{Name: "Refine Engine Refine"}
)

// Engine drives a PriorityCollection against a StopCondition to a fixed
// point. It never raises a hard failure: a block no refiner can handle is
// left in place and surfaced through the Report returned by Run.
type Engine struct {
	sim.HookableBase

	Refiners *PriorityCollection
	Stop     StopCondition

	// MaxPasses bounds the fixed-point loop; 0 means unbounded. A design
	// that still has Unrefined blocks after MaxPasses is not a hard
	// error — it's surfaced through Report and left for design.Elaborate
	// to stamp Unknown and move on, rather than spin forever on a
	// refiner cycle.
	MaxPasses int
}

// NewEngine builds an engine from a refiner collection and stop
// condition.
func NewEngine(refiners *PriorityCollection, stop StopCondition) *Engine {
	return &Engine{Refiners: refiners, Stop: stop}
}

// Report summarizes one Run: how many passes it took, and which blocks
// remained unrefined when it stopped.
type Report struct {
	Passes    int
	Unrefined []*ir.Block
}

// Run iteratively scans module's blocks; for each not yet matching the
// stop condition, it tries matching refiners in priority order and
// applies the first one that succeeds, replacing the block in conns.
// It continues until a whole pass makes no progress.
func (e *Engine) Run(module *ir.Module) (Report, error) {
	conns := module.Conns()
	if conns == nil {
		return Report{}, nil
	}

	passes := 0
	for {
		progress := false
		for _, b := range Unrefined(e.Stop, module.Blocks()) {
			if conns.UseCount(b) == 0 {
				continue
			}
			for _, r := range e.Refiners.Matching(b) {
				ok, err := r.Refine(b, conns)
				if err != nil {
					return Report{Passes: passes}, err
				}
				if ok {
					progress = true
					e.InvokeHook(sim.HookCtx{Domain: e, Pos: HookPosRefine, Item: b})
					break
				}
			}
		}
		passes++
		if !progress {
			break
		}
		if e.MaxPasses > 0 && passes >= e.MaxPasses {
			break
		}
	}

	return Report{Passes: passes, Unrefined: Unrefined(e.Stop, module.Blocks())}, nil
}
