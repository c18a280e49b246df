// Package pipeline implements the pipelining passes of §4.8: rewrites
// that turn a freshly refined, base-library module into one whose every
// edge carries a uniform one-token-per-cycle contract and whose
// combinational cycles and over-long paths have been broken by inserted
// PipelineRegisters.
package pipeline

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/stdlib"
)

// RegionSkip reports whether m is the inner module of a ScheduledRegion's
// ContainerModule — such modules already carry their own §4.6 schedule
// and are left alone by the pipelining passes, which only operate on
// ordinary (non-region) modules.
type RegionSkip func(m *ir.Module) bool

// DelayModel estimates a block's own combinational delay, in the same
// units as PipelineFrequencyPass's target period. DefaultDelay is used
// when a pass is not given one explicitly.
type DelayModel func(b *ir.Block) float64

// DefaultDelay charges one unit to every combinational block and zero to
// a PipelineRegister, whose output is a fresh clock boundary.
func DefaultDelay(b *ir.Block) float64 {
	if stdlib.IsPipelineRegister(b) {
		return 0
	}
	return 1
}

var seq int

func freshName(prefix string) string {
	seq++
	return fmt.Sprintf("%s.%d", prefix, seq)
}

// insertRegisterAfter splices a PipelineRegister between op and every one
// of its current sinks, returning the new register block.
func insertRegisterAfter(conns *ir.ConnectionDB, op *ir.OutputPort) (*ir.Block, error) {
	sinks := conns.FindSinks(op)
	pr := stdlib.PipelineRegister(freshName("pipereg"), op.Type(), nil)
	pass.StampHistory(pr, ir.HistorySourceOptimization, op.Owner())

	for _, ip := range sinks {
		conns.Disconnect(op, ip)
	}
	if err := conns.Connect(op, pr.Inputs()[0]); err != nil {
		return nil, err
	}
	for _, ip := range sinks {
		if err := conns.Connect(pr.Outputs()[0], ip); err != nil {
			return nil, err
		}
	}
	return pr, nil
}
