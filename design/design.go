// Package design ties the compiler core together into the single
// top-level entry point a frontend calls: build the IR with a Builder,
// Elaborate it to base-library primitives, grow and absorb scheduled
// regions, Optimize with the pipelining and check passes, then Close to
// flush diagnostics — the same build/run/report shape core.LoadProgramFile
// and config.DeviceBuilder give the CGRA frontend, generalized from "load
// a program" to "refine and pipeline a dataflow graph".
package design

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/synthflow/check"
	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/lperr"
	"github.com/sarchlab/synthflow/pass"
	"github.com/sarchlab/synthflow/pipeline"
	"github.com/sarchlab/synthflow/refine"
	"github.com/sarchlab/synthflow/stdlib"
)

// Design is one compilation unit: a root module plus whatever submodules
// Elaborate and region absorption add beneath it, and the configuration
// governing how far the passes below take it.
type Design struct {
	Config Config
	name   string
	root   *ir.Module

	regions map[*ir.Module]bool

	report *check.Report
	closed bool
}

// Modules implements pass.Design: the root module, walked (and
// recursed into) by every pass.ModulePass.
func (d *Design) Modules() []*ir.Module { return []*ir.Module{d.root} }

// Root returns the design's top-level module.
func (d *Design) Root() *ir.Module { return d.root }

// Name returns the design's diagnostic name, as given to Builder.Build.
func (d *Design) Name() string { return d.name }

// Report returns the accumulated check.Report; populated once Optimize
// has run with Config.EnableChecks set.
func (d *Design) Report() *check.Report { return d.report }

// baseLibraryClasses is the backend-primitive set refine.Engine stops
// at: every stdlib block whose Refinable() is false, i.e. everything
// Tagger, InterfaceMultiplexer, SparseMultiplexer, Register, and Split
// eventually refine down to.
func baseLibraryClasses() []string {
	return []string{
		"Cast", "Constant", "Extract", "Fork", "Identity", "NullSink",
		"Never", "Once", "Interface", "Join", "Multiplexer", "Router",
		"PipelineRegister", "PipelineStageController", "FiniteArray",
		"RTLReg", "Select", "Wait",
	}
}

// refinerCollection builds the priority-ordered refiner set: composite
// blocks first refine into the narrower primitives that themselves still
// need lowering (Tagger before Router/Select exist, InterfaceMultiplexer
// before Tagger), so later refiners in the list see the forms earlier
// ones produce.
func refinerCollection() *refine.PriorityCollection {
	return refine.NewPriorityCollection(
		stdlib.InterfaceMultiplexerRefiner{},
		stdlib.TaggerRefiner{},
		stdlib.SplitRefiner{},
		stdlib.RegisterRefiner{},
		stdlib.SparseMultiplexerRefiner{},
	)
}

// Elaborate drives refine.Engine to a fixed point over every module in
// the design, bounded by Config.MaxRefinePasses per module (§4.2), then
// labels every block still Unset as Unknown once refinement stops —
// a design left with Unrefined blocks is not an error here; Optimize's
// checks are what surface that as a finding.
func (d *Design) Elaborate() error {
	stop := refine.NewBaseLibraryStopCondition(baseLibraryClasses()...)
	engine := refine.NewEngine(refinerCollection(), stop)
	engine.MaxPasses = d.Config.MaxRefinePasses
	if engine.MaxPasses <= 0 {
		engine.MaxPasses = 100
	}

	if err := elaborateModule(engine, d.root); err != nil {
		return err
	}
	pass.StampUnknown(d.root)
	return nil
}

func elaborateModule(engine *refine.Engine, m *ir.Module) error {
	if _, err := engine.Run(m); err != nil {
		return err
	}
	for _, sub := range m.SubModules() {
		if err := elaborateModule(engine, sub); err != nil {
			return err
		}
	}
	return nil
}

// GrowRegions seeds a ScheduledRegion at every block seed selects,
// absorbs each into its own submodule, and schedules it — §4.6 end to
// end. Regions already absorbed are tracked so the pipelining and check
// passes below know to skip their interior.
func (d *Design) GrowRegions(seed func(*ir.Block) bool) error {
	return growRegionsIn(d, d.root, seed)
}

// InRegionModule reports whether m is a scheduled region's container —
// the RegionSkip every pipeline pass and the InRegion check-pass hook
// consult.
func (d *Design) InRegionModule(m *ir.Module) bool { return d.regions[m] }

// InRegionBlock reports whether b's owning module is a scheduled
// region's container.
func (d *Design) InRegionBlock(b *ir.Block) bool {
	return b.Module() != nil && d.regions[b.Module()]
}

// InRegionOutput reports whether op's owning block belongs to a
// scheduled region's container.
func (d *Design) InRegionOutput(op *ir.OutputPort) bool {
	return d.InRegionBlock(op.Owner())
}

// Optimize runs the pipelining passes followed by the post-condition
// checks in a fixed order: first make every edge uniform
// (LatchUntiedOutputs, SynthesizeForks), then break cycles and pace to
// the target frequency, then verify the result. With Config.Debug set,
// a graphviz snapshot of every module is written around each pass.
func (d *Design) Optimize() error {
	skip := pipeline.RegionSkip(d.InRegionModule)

	// One shared hook keeps the debug-dump sequence numbers continuous
	// across the pipelining and check managers.
	debug := &debugDumpHook{d: d}

	if d.Config.EnablePipelining {
		passes := []pass.Pass{
			&pipeline.LatchUntiedOutputs{SkipModule: skip},
			&pipeline.SynthesizeForksPass{SkipModule: skip, InRegion: d.InRegionOutput},
			&pipeline.PipelineDependentsPass{SkipModule: skip},
			&pipeline.PipelineCyclesPass{SkipModule: skip},
			&pipeline.PipelineFrequencyPass{
				Period:     d.Config.ClockPeriodPS,
				Delay:      pipeline.DefaultDelay,
				SkipModule: skip,
			},
		}
		pm := pass.NewPassManager(passes...)
		if d.Config.Debug {
			pm.AcceptHook(debug)
		}
		if _, err := pm.Run(d); err != nil {
			return err
		}
	}

	if d.Config.EnableChecks {
		d.report = &check.Report{}
		checks := []pass.Pass{
			&check.CheckConnectionsPass{Report: d.report},
			&check.CheckOutputsPass{Report: d.report, InRegion: d.InRegionModule},
			&check.CheckCyclesPass{Report: d.report, InRegion: d.InRegionBlock},
		}
		pm := pass.NewPassManager(checks...)
		if d.Config.Debug {
			pm.AcceptHook(debug)
		}
		if _, err := pm.Run(d); err != nil {
			return err
		}
		if d.report.HasErrors() {
			return lperr.InvalidCallf("design %s failed post-condition checks", d.root.Name())
		}
	}

	return nil
}

// Close flushes diagnostic artifacts to Config.WorkDir and marks the
// design closed. It is registered with atexit.Register so a best-effort
// flush still happens if a collaborator calls os.Exit before the caller
// reaches an explicit Close — the same belt-and-suspenders the samples'
// main functions get from pairing atexit.Register with atexit.Exit(0).
func (d *Design) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return writeDiagnostics(d)
}

// registerAtExit wires d.Close into atexit, printing (never panicking) on
// failure, since an atexit callback has no caller left to report to.
func registerAtExit(d *Design) {
	atexit.Register(func() {
		if d.closed {
			return
		}
		if err := d.Close(); err != nil {
			fmt.Printf("design %q: atexit flush failed: %v\n", d.root.Name(), err)
		}
	})
}

func ensureWorkDir(dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return lperr.External(err, fmt.Sprintf("create work dir %q", dir))
	}
	return nil
}

func workPath(d *Design, name string) string {
	return filepath.Join(d.Config.WorkDir, name)
}
