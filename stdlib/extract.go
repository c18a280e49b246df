package stdlib

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/lperr"
)

// extract projects a composite input through a fixed sequence of
// struct/vector indices.
type extract struct {
	path []int
}

func (e extract) TypeName() string                                 { return "Extract" }
func (e extract) HasState() bool                                   { return false }
func (e extract) OutputsSeparate() bool                            { return false }
func (e extract) OutputsTied() bool                                { return true }
func (e extract) HasCycle() bool                                   { return false }
func (e extract) Refinable() bool                                  { return false }
func (e extract) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (e extract) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()[0])
}
func (e extract) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (e extract) Print() string {
	return fmt.Sprintf("path=%v", e.path)
}

// Path returns the projection indices of a block built by Extract.
func (e extract) Path() []int { return e.path }

// elemTypeAt walks t through path, returning the projected element type.
func elemTypeAt(t ir.Type, path []int) (ir.Type, error) {
	cur := t
	for _, idx := range path {
		switch cur.Kind() {
		case ir.KindStruct:
			elems := cur.Elems()
			if idx < 0 || idx >= len(elems) {
				return ir.Type{}, lperr.InvalidArgumentf("extract index %d out of range for %s", idx, cur)
			}
			cur = elems[idx]
		case ir.KindVector:
			if idx < 0 || idx >= cur.Len() {
				return ir.Type{}, lperr.InvalidArgumentf("extract index %d out of range for %s", idx, cur)
			}
			cur = cur.ElemType()
		default:
			return ir.Type{}, lperr.TypeErrorf("cannot extract from scalar type %s", cur)
		}
	}
	return cur, nil
}

// Extract builds a block projecting in's value via path, a sequence of
// struct field or vector lane indices.
func Extract(name string, in ir.Type, path ...int) (*ir.Block, error) {
	out, err := elemTypeAt(in, path)
	if err != nil {
		return nil, err
	}
	cp := make([]int, len(path))
	copy(cp, path)
	return ir.NewBlock(name, extract{path: cp}, []ir.Type{in}, []ir.Type{out}, []string{"in"}, []string{"out"}), nil
}

// ExtractPath returns the projection indices of a block built by Extract,
// if b is in fact one.
func ExtractPath(b *ir.Block) ([]int, bool) {
	e, ok := b.Impl().(extract)
	if !ok {
		return nil, false
	}
	return e.path, true
}
