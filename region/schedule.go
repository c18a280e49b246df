package region

import (
	"sort"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/lperr"
)

// maxScheduleCycles is the hard cap §4.6.5 asks for: scheduling that
// cannot drain its firing-input queue within this many cycles aborts and
// flags the region rather than looping forever.
const maxScheduleCycles = 100

// Cycle records one clock's worth of scheduling activity: which outputs
// became newly produced this cycle, which outputs were already available
// and consumed, and which inputs fired.
type Cycle struct {
	NewlyProduced []*ir.OutputPort
	Available     []*ir.OutputPort
	Firing        []*ir.InputPort
}

// Schedule is the scheduling output for one region: a per-cycle record
// (cycle 0 first) and the cycle index of every port scheduling touched.
type Schedule struct {
	Cycles   []Cycle
	CycleIdx map[ir.Port]int
}

// Schedule computes the backward cycle assignment described in §4.6.4:
// starting from the region's external outputs and any dangling input, it
// walks backward through each output's DependenceRule, assigning cycle
// distances by declared pipeline latency, until every dependency is
// satisfied or the hard cycle cap is hit.
//
// An OutputPort can drive more than one full-member sink within the same
// region (§4.6.1 admits a frontier output once all of its own deps are
// members, independent of how many sinks read it), and those sinks can
// sit at different distances from the region's external outputs. A
// single forward sweep that fixes an output's distance the first time it
// is reached — whichever sink's bucket happens to drain first — silently
// drops the requirement of any sink that needs the output ready earlier,
// breaking the §4.6.4 invariant `cycle_idx[op] ≥ max over consumers ip of
// cycle_idx[ip] − latency(op→ip)`. So this is solved as a longest-path
// relaxation instead of a one-shot assignment: every port's distance is
// the maximum required by any of its consumers, and discovering a larger
// requirement after a port has already been visited re-expands its own
// dependencies at the tightened distance rather than leaving them at the
// stale, too-late one.
func (r *ScheduledRegion) Schedule(container *ir.ContainerModule) (*Schedule, error) {
	inner := container.Conns()

	dist := map[ir.Port]int{}
	var queue []ir.Port

	// relax records d as p's required distance if it improves on
	// whatever is already known, and re-enqueues p for expansion. Ports
	// are enqueued at most once per strict improvement, and distances
	// only ever grow, so this always terminates on the region's finite,
	// acyclic port set (or hits the cap below and aborts).
	relax := func(p ir.Port, d int) error {
		if d > maxScheduleCycles {
			return lperr.InvalidCallf(
				"region %s: scheduling exceeded %d-cycle cap", container.Name(), maxScheduleCycles)
		}
		if cur, ok := dist[p]; ok && cur >= d {
			return nil
		}
		dist[p] = d
		queue = append(queue, p)
		return nil
	}

	for _, ext := range container.Outputs {
		if err := relax(ext.Internal, 0); err != nil {
			return nil, err
		}
	}
	for _, b := range container.Blocks() {
		for _, ip := range b.Inputs() {
			if _, ok := inner.FindSource(ip); !ok {
				if err := relax(ip, 0); err != nil {
					return nil, err
				}
			}
		}
	}

	maxDist := 0
	maxSteps := maxScheduleCycles * (len(container.Blocks()) + 1)
	steps := 0

	for len(queue) > 0 {
		steps++
		if steps > maxSteps {
			return nil, lperr.InvalidCallf(
				"region %s: scheduling did not converge within %d relaxation steps",
				container.Name(), maxSteps)
		}

		p := queue[0]
		queue = queue[1:]
		d := dist[p]
		if d > maxDist {
			maxDist = d
		}

		switch port := p.(type) {
		case *ir.InputPort:
			op, hasSrc := inner.FindSource(port)
			if !hasSrc {
				continue
			}
			if err := relax(op, d); err != nil {
				return nil, err
			}
		case *ir.OutputPort:
			rule := port.Owner().DepRule(port)
			for _, dep := range rule.Inputs {
				lat, _ := rule.FixedLatency(dep)
				if err := relax(dep, d+lat.Time); err != nil {
					return nil, err
				}
			}
		}
	}

	records := map[int]*Cycle{}
	for p, d := range dist {
		rec := recordFor(records, d)
		switch port := p.(type) {
		case *ir.InputPort:
			rec.Firing = append(rec.Firing, port)
			if src, ok := inner.FindSource(port); ok && dist[src] > d && !containsOutput(rec.Available, src) {
				rec.Available = append(rec.Available, src)
			}
		case *ir.OutputPort:
			rec.NewlyProduced = append(rec.NewlyProduced, port)
		}
	}

	cycles := make([]Cycle, maxDist+1)
	for d := 0; d <= maxDist; d++ {
		if rec, ok := records[d]; ok {
			sortInputs(rec.Firing)
			sortOutputs(rec.Available)
			sortOutputs(rec.NewlyProduced)
			cycles[d] = *rec
		}
	}
	reverse(cycles)

	finalIdx := map[ir.Port]int{}
	for p, d := range dist {
		finalIdx[p] = maxDist - d
	}

	return &Schedule{Cycles: cycles, CycleIdx: finalIdx}, nil
}

func recordFor(records map[int]*Cycle, dist int) *Cycle {
	rec, ok := records[dist]
	if !ok {
		rec = &Cycle{}
		records[dist] = rec
	}
	return rec
}

func containsOutput(ops []*ir.OutputPort, op *ir.OutputPort) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func sortInputs(ips []*ir.InputPort) {
	sort.Slice(ips, func(i, j int) bool { return ips[i].Name() < ips[j].Name() })
}

func sortOutputs(ops []*ir.OutputPort) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name() < ops[j].Name() })
}

func reverse(c []Cycle) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

// CyclesLen reports the latency in clocks of the schedule: one more than the
// highest cycle index assigned.
func (s *Schedule) CyclesLen() int { return len(s.Cycles) }
