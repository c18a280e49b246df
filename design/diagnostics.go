package design

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/akita/v4/sim"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/lperr"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/printer"
)

// writeDiagnostics fans the design's diagnostic artifacts out across an
// errgroup: one file write per module (graphviz, connection listing) plus
// the design-wide stats.csv and check report, all running concurrently
// since they're independent, read-only walks of the same finished graph.
func writeDiagnostics(d *Design) error {
	if err := ensureWorkDir(d.Config.WorkDir); err != nil {
		return err
	}

	g, _ := errgroup.WithContext(context.Background())

	modules := allModules(d.root)
	for _, m := range modules {
		m := m
		g.Go(func() error { return writeModuleGraphviz(d, m) })
		g.Go(func() error { return writeModuleListing(d, m) })
	}
	g.Go(func() error { return writeStatsCSV(d) })
	if d.report != nil {
		g.Go(func() error { return writeCheckReport(d) })
	}

	if err := g.Wait(); err != nil {
		return lperr.External(err, "write diagnostics")
	}
	return nil
}

func allModules(root *ir.Module) []*ir.Module {
	var out []*ir.Module
	var walk func(*ir.Module)
	walk = func(m *ir.Module) {
		out = append(out, m)
		for _, sub := range m.SubModules() {
			walk(sub)
		}
	}
	walk(root)
	return out
}

func writeModuleGraphviz(d *Design, m *ir.Module) error {
	f, err := os.Create(workPath(d, sanitizeModuleName(m)+".gv"))
	if err != nil {
		return lperr.External(err, "create graphviz file for "+m.Name())
	}
	defer f.Close()
	return printer.WriteGraphviz(f, m)
}

func writeModuleListing(d *Design, m *ir.Module) error {
	f, err := os.Create(workPath(d, sanitizeModuleName(m)+".txt"))
	if err != nil {
		return lperr.External(err, "create connection listing for "+m.Name())
	}
	defer f.Close()
	return printer.WriteConnectionListing(f, m)
}

func writeStatsCSV(d *Design) error {
	f, err := os.Create(workPath(d, "stats.csv"))
	if err != nil {
		return lperr.External(err, "create stats.csv")
	}
	defer f.Close()
	return printer.WriteStatsCSV(f, d.root)
}

func writeCheckReport(d *Design) error {
	f, err := os.Create(workPath(d, "check_report.txt"))
	if err != nil {
		return lperr.External(err, "create check_report.txt")
	}
	defer f.Close()
	d.report.WriteReport(f)
	return nil
}

func sanitizeModuleName(m *ir.Module) string {
	name := m.Name()
	if name == "" {
		name = "module"
	}
	return filepath.Base(name)
}

// debugDumpHook is the Config.Debug listener: attached to a PassManager,
// it writes a graphviz snapshot of every module in the design around each
// pass (pass.HookPosPassStart / pass.HookPosPassEnd), so a failing
// rewrite can be bisected to the exact pass that introduced it. Dumps are
// best-effort: a write failure is narrated, never fatal, since the dump
// must not change whether the passes themselves succeed.
type debugDumpHook struct {
	d   *Design
	seq int
}

var _ sim.Hook = (*debugDumpHook)(nil)

func (h *debugDumpHook) Func(ctx sim.HookCtx) {
	var phase string
	switch ctx.Pos {
	case pass.HookPosPassStart:
		phase = "start"
	case pass.HookPosPassEnd:
		phase = "end"
	default:
		return
	}
	p, ok := ctx.Item.(pass.Pass)
	if !ok {
		return
	}
	h.seq++
	h.dump(fmt.Sprintf("debug_%03d_%s_%s", h.seq, p.Name(), phase))
}

func (h *debugDumpHook) dump(prefix string) {
	if err := ensureWorkDir(h.d.Config.WorkDir); err != nil {
		fmt.Printf("design %q: debug dump %s: %v\n", h.d.root.Name(), prefix, err)
		return
	}
	for _, m := range allModules(h.d.root) {
		if err := h.dumpModule(prefix, m); err != nil {
			fmt.Printf("design %q: debug dump %s: %v\n", h.d.root.Name(), prefix, err)
		}
	}
}

func (h *debugDumpHook) dumpModule(prefix string, m *ir.Module) error {
	f, err := os.Create(workPath(h.d, prefix+"_"+sanitizeModuleName(m)+".gv"))
	if err != nil {
		return lperr.External(err, "create debug graphviz for "+m.Name())
	}
	defer f.Close()
	return printer.WriteGraphviz(f, m)
}
