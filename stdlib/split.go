package stdlib

import (
	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/lperr"
	"github.com/sarchlab/synthflow/refine"
)

// split emits each component of a composite input on its own output.
// It is refinable: SplitRefiner lowers it to one Fork feeding N Extract
// blocks, which is what the backend actually schedules.
type split struct{}

func (split) TypeName() string      { return "Split" }
func (split) HasState() bool        { return false }
func (split) OutputsSeparate() bool { return true }
func (split) OutputsTied() bool     { return false }
func (split) HasCycle() bool        { return false }
func (split) Refinable() bool       { return true }
func (split) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	return SplitRefiner{}.Refine(b, conns)
}
func (split) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()[0])
}
func (split) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (split) Print() string                                       { return "" }

// Split builds a block emitting each component of a composite input type.
func Split(name string, in ir.Type) (*ir.Block, error) {
	var outTypes []ir.Type
	switch in.Kind() {
	case ir.KindStruct:
		outTypes = in.Elems()
	case ir.KindVector:
		n := in.Len()
		outTypes = make([]ir.Type, n)
		for i := range outTypes {
			outTypes[i] = in.ElemType()
		}
	default:
		return nil, lperr.TypeErrorf("cannot split scalar type %s", in)
	}
	return ir.NewBlock(name, split{}, []ir.Type{in}, outTypes, []string{"in"}, nil), nil
}

// SplitRefiner lowers a Split into a Fork (one input, N copies) feeding an
// Extract block per output component, matching §4.5's stated refinement.
type SplitRefiner struct{}

var _ refine.Refiner = SplitRefiner{}

// Handles reports whether b is a Split block.
func (SplitRefiner) Handles(b *ir.Block) bool {
	_, ok := b.Impl().(split)
	return ok
}

// Refine replaces a Split with a Fork feeding one Extract per output,
// rewiring every existing sink of the Split's outputs onto the matching
// Extract's output.
func (SplitRefiner) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	if _, ok := b.Impl().(split); !ok {
		return false, nil
	}

	in := b.Inputs()[0]
	source, hasSource := conns.FindSource(in)
	outputs := b.Outputs()

	sinksByOutput := make([][]*ir.InputPort, len(outputs))
	for i, op := range outputs {
		sinksByOutput[i] = conns.FindSinks(op)
	}

	fk := Fork(b.Name()+".fork", in.Type(), len(outputs), false)
	extracts := make([]*ir.Block, len(outputs))
	for i := range outputs {
		ex, err := Extract(b.Name()+".extract", in.Type(), i)
		if err != nil {
			return false, err
		}
		extracts[i] = ex
	}

	conns.DestroyBlock(b)

	if hasSource {
		if err := conns.Connect(source, fk.Inputs()[0]); err != nil {
			return false, err
		}
	}
	for i := range outputs {
		if err := conns.Connect(fk.Outputs()[i], extracts[i].Inputs()[0]); err != nil {
			return false, err
		}
		for _, sink := range sinksByOutput[i] {
			if err := conns.Connect(extracts[i].Outputs()[0], sink); err != nil {
				return false, err
			}
		}
	}

	return true, nil
}
