// Package region builds LI-BDN scheduled regions (§4.6): subgraphs grown
// from a seed block, pruned until they satisfy the No Extraneous
// Dependency property, absorbed into their own submodule, and scheduled
// cycle-by-cycle.
package region

import (
	"sort"

	"github.com/sarchlab/synthflow/ir"
)

func isANDFireOne(rule ir.DependenceRule) bool {
	return rule.InputType == ir.AND && rule.OutputType == ir.Always
}

// ScheduledRegion is a subgraph grown from a seed block, tracked as a set
// of full members (ports physically relocated into the region's own
// module) and virtual members (ports that contribute to scheduling
// without being relocated).
type ScheduledRegion struct {
	conns *ir.ConnectionDB

	blocks  map[*ir.Block]bool
	full    map[ir.Port]bool
	virtual map[ir.Port]bool

	// order records the sequence full ports were admitted in, so pruning
	// has a deterministic "worst offender" tie-break and growth/printing
	// is reproducible.
	order []ir.Port
}

// Blocks returns every block admitted to the region (the seed, plus each
// block with at least one full-member port), ordered by block ID.
func (r *ScheduledRegion) Blocks() []*ir.Block {
	out := make([]*ir.Block, 0, len(r.blocks))
	for b := range r.blocks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// IsFullMember reports whether p was admitted as a full (physically
// relocatable) member.
func (r *ScheduledRegion) IsFullMember(p ir.Port) bool { return r.full[p] }

// IsVirtualMember reports whether p contributes to scheduling without
// being relocated.
func (r *ScheduledRegion) IsVirtualMember(p ir.Port) bool { return r.virtual[p] }

// Grow starts from seed and iteratively admits frontier ports until a
// fixed point, per §4.6.1. A port is admissible if it is connected to the
// region (either sharing an owner with an existing member, or linked by a
// connection to one), its owner's sibling outputs all carry an
// AND_FireOne dependence rule, and its owner has no internal cycle. Full
// membership additionally requires every dependence input to have a
// fixed, finite latency; ports that fail only that test are recorded as
// virtual members instead.
func Grow(conns *ir.ConnectionDB, seed *ir.Block) *ScheduledRegion {
	r := &ScheduledRegion{
		conns:   conns,
		blocks:  map[*ir.Block]bool{seed: true},
		full:    map[ir.Port]bool{},
		virtual: map[ir.Port]bool{},
	}

	var queue []ir.Port
	for _, ip := range seed.Inputs() {
		queue = append(queue, ip)
	}
	for _, op := range seed.Outputs() {
		queue = append(queue, op)
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if r.full[p] || r.virtual[p] {
			continue
		}

		owner := p.Owner()
		if owner.HasCycle() || !ownerObeysANDFireOne(owner) {
			continue
		}
		if !r.connectedToRegion(p) {
			continue
		}

		if r.fullyLatencyKnown(owner) {
			r.full[p] = true
			r.blocks[owner] = true
			r.order = append(r.order, p)
			r.expand(p, &queue)
		} else {
			r.virtual[p] = true
		}
	}

	return r
}

func ownerObeysANDFireOne(owner *ir.Block) bool {
	for _, op := range owner.Outputs() {
		if !isANDFireOne(owner.DepRule(op)) {
			return false
		}
	}
	return true
}

func (r *ScheduledRegion) fullyLatencyKnown(owner *ir.Block) bool {
	for _, op := range owner.Outputs() {
		if !owner.DepRule(op).AllFixedLatency() {
			return false
		}
	}
	return true
}

func (r *ScheduledRegion) connectedToRegion(p ir.Port) bool {
	if r.blocks[p.Owner()] {
		return true
	}
	switch pp := p.(type) {
	case *ir.InputPort:
		if src, ok := r.conns.FindSource(pp); ok && r.full[src] {
			return true
		}
	case *ir.OutputPort:
		for _, sink := range r.conns.FindSinks(pp) {
			if r.full[sink] {
				return true
			}
		}
	}
	return false
}

// expand enqueues p's dependence-closure neighbors: for an output, its
// dependence inputs; for an input, any sibling output whose every
// dependence input is now a full member.
func (r *ScheduledRegion) expand(p ir.Port, queue *[]ir.Port) {
	owner := p.Owner()
	switch pp := p.(type) {
	case *ir.OutputPort:
		for _, ip := range owner.DepRule(pp).Inputs {
			*queue = append(*queue, ip)
		}
		for _, sink := range r.conns.FindSinks(pp) {
			*queue = append(*queue, sink)
		}
	case *ir.InputPort:
		for _, op := range owner.Outputs() {
			rule := owner.DepRule(op)
			allMember := true
			for _, dep := range rule.Inputs {
				if !r.full[dep] {
					allMember = false
					break
				}
			}
			if allMember {
				*queue = append(*queue, op)
			}
		}
		if src, ok := r.conns.FindSource(pp); ok {
			*queue = append(*queue, src)
		}
	}
}

// ExternalInputs returns every full-member InputPort whose driving
// OutputPort is not itself a full member — the region's boundary inputs.
// Walking r.order rather than ranging over the r.full map keeps the
// result (and anything downstream, like prune.go's worst-offender
// tie-break) in the same deterministic admission order every run.
func (r *ScheduledRegion) ExternalInputs() []*ir.InputPort {
	var out []*ir.InputPort
	for _, p := range r.order {
		ip, ok := p.(*ir.InputPort)
		if !ok {
			continue
		}
		src, ok := r.conns.FindSource(ip)
		if !ok || !r.full[src] {
			out = append(out, ip)
		}
	}
	return out
}

// ExternalOutputs returns every full-member OutputPort with at least one
// sink that is not itself a full member — the region's boundary outputs.
// See ExternalInputs for why this walks r.order instead of r.full.
func (r *ScheduledRegion) ExternalOutputs() []*ir.OutputPort {
	var out []*ir.OutputPort
	for _, p := range r.order {
		op, ok := p.(*ir.OutputPort)
		if !ok {
			continue
		}
		for _, sink := range r.conns.FindSinks(op) {
			if !r.full[sink] {
				out = append(out, op)
				break
			}
		}
	}
	return out
}
