package check

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/stdlib"
)

// CheckOutputsPass forbids, outside any scheduled region, a block with
// more than one output feeding anything but a PipelineRegister: once a
// module has been pipelined, a multi-output block's sinks are expected to
// see a uniform one-token-per-edge contract, and only a PipelineRegister
// (or a region, which this pass skips entirely) is allowed to sit
// directly downstream of it.
type CheckOutputsPass struct {
	Report   *Report
	InRegion func(m *ir.Module) bool
}

var _ pass.ModulePass = (*CheckOutputsPass)(nil)

func (p *CheckOutputsPass) Name() string { return "CheckOutputs" }

func (p *CheckOutputsPass) Run(d pass.Design) (bool, error) {
	return pass.RunModulePass(p, d)
}

func (p *CheckOutputsPass) RunModule(m *ir.Module) (bool, error) {
	conns := m.Conns()
	if conns == nil {
		return false, nil
	}
	if p.InRegion != nil && p.InRegion(m) {
		return false, nil
	}

	for _, b := range m.Blocks() {
		if len(b.Outputs()) <= 1 {
			continue
		}
		for _, op := range b.Outputs() {
			for _, ip := range conns.FindSinks(op) {
				if stdlib.IsPipelineRegister(ip.Owner()) {
					continue
				}
				p.Report.add(Issue{
					Severity: SeverityError,
					Pass:     p.Name(),
					Module:   m.Name(),
					Block:    b,
					Message: fmt.Sprintf(
						"multi-output block's %s feeds %s.%s directly, without an intervening PipelineRegister",
						op.Name(), ip.Owner().Name(), ip.Name()),
				})
			}
		}
	}
	return false, nil
}
