package stdlib

import "github.com/sarchlab/synthflow/ir"

// pipelineRegister represents exactly one clock of latency: the value
// presented at its input in cycle N appears at its output in cycle N+1.
// An optional shared PipelineStageController gates it with a clock
// enable, letting several registers stall together.
type pipelineRegister struct {
	ctrl *ir.Block
}

func (p pipelineRegister) TypeName() string                                 { return "PipelineRegister" }
func (p pipelineRegister) HasState() bool                                   { return true }
func (p pipelineRegister) OutputsSeparate() bool                            { return false }
func (p pipelineRegister) OutputsTied() bool                                { return true }
func (p pipelineRegister) HasCycle() bool                                   { return false }
func (p pipelineRegister) Refinable() bool                                  { return false }
func (p pipelineRegister) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (p pipelineRegister) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	rule := ir.ANDFireOne(b.Inputs()[0])
	rule.Latencies = map[*ir.InputPort]ir.Latency{
		b.Inputs()[0]: {Time: 1, PipelineDepth: 1},
	}
	return rule
}
func (p pipelineRegister) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (p pipelineRegister) Print() string                                       { return "" }

// Controller returns the shared PipelineStageController gating this
// register, or nil if it free-runs.
func (p pipelineRegister) Controller() *ir.Block { return p.ctrl }

// PipelineRegister builds a one-cycle-latency register of type t,
// optionally gated by a shared PipelineStageController.
func PipelineRegister(name string, t ir.Type, ctrl *ir.Block) *ir.Block {
	return ir.NewBlock(name, pipelineRegister{ctrl: ctrl},
		[]ir.Type{t}, []ir.Type{t}, []string{"in"}, []string{"out"})
}

// IsPipelineRegister reports whether b was built by PipelineRegister.
func IsPipelineRegister(b *ir.Block) bool {
	_, ok := b.Impl().(pipelineRegister)
	return ok
}

// pipelineStageController is the shared clock-enable source for a set of
// PipelineRegisters that must stall and advance together.
type pipelineStageController struct{}

func (pipelineStageController) TypeName() string      { return "PipelineStageController" }
func (pipelineStageController) HasState() bool        { return true }
func (pipelineStageController) OutputsSeparate() bool { return true }
func (pipelineStageController) OutputsTied() bool     { return false }
func (pipelineStageController) HasCycle() bool        { return false }
func (pipelineStageController) Refinable() bool       { return false }
func (pipelineStageController) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) {
	return false, nil
}
func (pipelineStageController) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()...)
}
func (pipelineStageController) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort {
	return b.Inputs()
}
func (pipelineStageController) Print() string { return "" }

// PipelineStageController builds the shared control block for a pipeline
// stage: vin (valid-in), vout (valid-out), ce (clock enable) — all 1-bit.
func PipelineStageController(name string) *ir.Block {
	bit := ir.Int(1)
	return ir.NewBlock(name, pipelineStageController{},
		[]ir.Type{bit, bit}, []ir.Type{bit},
		[]string{"vin", "vout"}, []string{"ce"})
}

// IsPipelineStageController reports whether b was built by
// PipelineStageController.
func IsPipelineStageController(b *ir.Block) bool {
	_, ok := b.Impl().(pipelineStageController)
	return ok
}
