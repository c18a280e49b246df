package check

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/stdlib"
)

// CheckConnectionsPass finds every InputPort across a module (and its
// submodules) with no driving source. In a mutable (transparent) module
// it attaches a Never source and emits a Warning recording the block's
// history, so the design as a whole stays connectable. An opaque module
// has no ConnectionDB to inspect or repair, so the pass skips it without
// reporting anything.
type CheckConnectionsPass struct {
	Report *Report
}

var _ pass.ModulePass = (*CheckConnectionsPass)(nil)

func (p *CheckConnectionsPass) Name() string { return "CheckConnections" }

func (p *CheckConnectionsPass) Run(d pass.Design) (bool, error) {
	return pass.RunModulePass(p, d)
}

func (p *CheckConnectionsPass) RunModule(m *ir.Module) (bool, error) {
	conns := m.Conns()
	if conns == nil {
		return false, nil
	}

	changed := false
	for _, b := range m.Blocks() {
		for _, ip := range b.Inputs() {
			if _, ok := conns.FindSource(ip); ok {
				continue
			}

			nv := stdlib.Never(b.Name()+"."+ip.Name()+".never", ip.Type())
			pass.StampHistory(nv, ir.HistorySourceOptimization, b)
			if err := conns.Connect(nv.Outputs()[0], ip); err != nil {
				return changed, err
			}

			p.Report.add(Issue{
				Severity: SeverityWarning,
				Pass:     p.Name(),
				Module:   m.Name(),
				Block:    b,
				Message: fmt.Sprintf(
					"input %s had no source (history: %s); attached a Never source",
					ip.Name(), describeHistory(b)),
			})
			changed = true
		}
	}
	return changed, nil
}

func describeHistory(b *ir.Block) string {
	h := b.History()
	if h.Metadata != "" {
		return fmt.Sprintf("%s (%s)", h.Source, h.Metadata)
	}
	return h.Source.String()
}
