package check

import (
	"fmt"
	"strings"

	"github.com/sarchlab/synthflow/graph"
	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/query"
	"github.com/sarchlab/synthflow/stdlib"
)

// CheckCyclesPass reports any combinational cycle query.FindCycle finds,
// ignoring PipelineRegisters (which break a cycle by construction) and
// any block the InRegion hook reports as belonging to a ScheduledRegion
// (whose own schedule already accounts for feedback within the region).
// The hook alone decides which blocks count; the pass does not look at a
// region's cycle count.
type CheckCyclesPass struct {
	Report   *Report
	InRegion func(b *ir.Block) bool
}

var _ pass.ModulePass = (*CheckCyclesPass)(nil)

func (p *CheckCyclesPass) Name() string { return "CheckCycles" }

func (p *CheckCyclesPass) Run(d pass.Design) (bool, error) {
	return pass.RunModulePass(p, d)
}

func (p *CheckCyclesPass) RunModule(m *ir.Module) (bool, error) {
	if m.Conns() == nil {
		return false, nil
	}

	ignore := func(b *ir.Block) bool {
		if stdlib.IsPipelineRegister(b) {
			return true
		}
		if p.InRegion != nil && p.InRegion(b) {
			return true
		}
		return false
	}

	cycle := query.FindCycle(m, ignore)
	if cycle == nil {
		return false, nil
	}

	p.Report.add(Issue{
		Severity: SeverityError,
		Pass:     p.Name(),
		Module:   m.Name(),
		Message:  fmt.Sprintf("combinational cycle: %s", describeCycle(cycle)),
	})
	return false, nil
}

func describeCycle(cycle []graph.Edge) string {
	var sb strings.Builder
	for i, e := range cycle {
		if i > 0 {
			sb.WriteString(" -> ")
		}
		fmt.Fprintf(&sb, "%s.%s", e.Source.Owner().Name(), e.Source.Name())
	}
	return sb.String()
}
