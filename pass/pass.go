// Package pass implements the pass framework §4.7 describes: a uniform
// Pass/ModulePass/PassManager vocabulary the pipelining and check passes
// are all built from, plus the history-stamping convention passes use to
// record provenance on blocks they create or rewrite.
package pass

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/synthflow/ir"
)

// Design is the minimal surface PassManager needs from a design: its
// root modules, walked (and recursed into) by the default ModulePass
// runner.
type Design interface {
	Modules() []*ir.Module
}

// Pass is the base unit of the framework: something that can run over an
// entire design and report whether it made any change.
type Pass interface {
	Name() string
	Run(d Design) (bool, error)
}

// ModulePass is a Pass whose real work happens one module at a time; the
// embedding Run walks the design's modules (and their submodules)
// invoking RunModule on each.
type ModulePass interface {
	Pass
	RunModule(m *ir.Module) (bool, error)
}

// RunModulePass implements ModulePass.Run's default behavior: depth-first
// walk of m and its submodules.
func RunModulePass(p ModulePass, d Design) (bool, error) {
	changed := false
	for _, m := range d.Modules() {
		c, err := runModuleRecursive(p, m)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

func runModuleRecursive(p ModulePass, m *ir.Module) (bool, error) {
	changed, err := p.RunModule(m)
	if err != nil {
		return changed, err
	}
	for _, sub := range m.SubModules() {
		c, err := runModuleRecursive(p, sub)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

// LambdaModulePass wraps a callable as a ModulePass, for passes too small
// to deserve their own named type.
type LambdaModulePass struct {
	PassName string
	Fn       func(m *ir.Module) (bool, error)
}

// Name returns the pass's diagnostic name.
func (l *LambdaModulePass) Name() string { return l.PassName }

// RunModule invokes the wrapped callable.
func (l *LambdaModulePass) RunModule(m *ir.Module) (bool, error) { return l.Fn(m) }

// Run walks the design's modules via RunModulePass.
func (l *LambdaModulePass) Run(d Design) (bool, error) { return RunModulePass(l, d) }

var (
	// HookPosPassStart and HookPosPassEnd bracket each pass's Run call,
	// the attach point for a debug-mode graphviz dump between passes.
	HookPosPassStart = &sim.HookPos{Name: "PassManager Pass Start"}
	HookPosPassEnd   = &sim.HookPos{Name: "PassManager Pass End"}
)

// PassManager runs an ordered list of passes over a design, firing hooks
// around each so a caller (e.g. the design package's debug mode) can dump
// diagnostics between passes without PassManager depending on the printer
// package.
type PassManager struct {
	sim.HookableBase

	Passes []Pass
}

// NewPassManager builds a manager over the given passes, run in order.
func NewPassManager(passes ...Pass) *PassManager {
	return &PassManager{Passes: append([]Pass(nil), passes...)}
}

// Run invokes every pass in order against d, returning whether any pass
// reported a change.
func (pm *PassManager) Run(d Design) (bool, error) {
	changed := false
	for _, p := range pm.Passes {
		pm.InvokeHook(sim.HookCtx{Domain: pm, Pos: HookPosPassStart, Item: p})
		c, err := p.Run(d)
		pm.InvokeHook(sim.HookCtx{Domain: pm, Pos: HookPosPassEnd, Item: p})
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

// StampHistory sets b's history to kind, recording parents if given, only
// if its current Source is still Unset — the convention §4.7 describes
// for passes that create or materially rewrite a block.
func StampHistory(b *ir.Block, kind ir.SourceKind, parents ...*ir.Block) {
	if b.History().Source != ir.HistorySourceUnset {
		return
	}
	b.SetHistory(b.History().WithSource(kind, parents...))
}

// StampUnknown labels every block still Unset in module (and its
// submodules) as Unknown — the default pass Design.Elaborate runs once
// refinement of every module has finished.
func StampUnknown(m *ir.Module) {
	if m.Conns() != nil {
		for _, b := range m.Blocks() {
			if b.History().Source == ir.HistorySourceUnset {
				b.SetHistory(b.History().WithSource(ir.HistorySourceUnknown))
			}
		}
	}
	for _, sub := range m.SubModules() {
		StampUnknown(sub)
	}
}
