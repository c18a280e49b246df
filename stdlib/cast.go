package stdlib

import (
	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/lperr"
)

// cast reinterprets a value as a different type of identical bit-width.
type cast struct{}

func (cast) TypeName() string                                 { return "Cast" }
func (cast) HasState() bool                                   { return false }
func (cast) OutputsSeparate() bool                            { return false }
func (cast) OutputsTied() bool                                { return true }
func (cast) HasCycle() bool                                   { return false }
func (cast) Refinable() bool                                  { return false }
func (cast) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (cast) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()[0])
}
func (cast) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (cast) Print() string                                       { return "" }

// Cast builds a reinterpreting block from type from to type to. Both
// types must carry the same bit-width.
func Cast(name string, from, to ir.Type) (*ir.Block, error) {
	if from.BitWidth() != to.BitWidth() {
		return nil, lperr.TypeErrorf("cast %s -> %s: bit-width mismatch (%d != %d)",
			from, to, from.BitWidth(), to.BitWidth())
	}
	return ir.NewBlock(name, cast{}, []ir.Type{from}, []ir.Type{to}, []string{"in"}, []string{"out"}), nil
}
