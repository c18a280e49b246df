package stdlib

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/lperr"
	"github.com/sarchlab/synthflow/refine"
)

// multiplexer consumes a struct {sel, v0...vN-1} and outputs v[sel]. All
// inputs are consumed every firing (AND, Always) even though only one
// value contributes to the output — the unused lanes still occupy their
// input slot in the struct.
type multiplexer struct {
	n int
}

func (m multiplexer) TypeName() string                                 { return "Multiplexer" }
func (m multiplexer) HasState() bool                                   { return false }
func (m multiplexer) OutputsSeparate() bool                            { return false }
func (m multiplexer) OutputsTied() bool                                { return true }
func (m multiplexer) HasCycle() bool                                   { return false }
func (m multiplexer) Refinable() bool                                  { return false }
func (m multiplexer) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (m multiplexer) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()[0])
}
func (m multiplexer) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (m multiplexer) Print() string                                       { return fmt.Sprintf("n=%d", m.n) }

// Multiplexer builds a dense n-way multiplexer: one struct input
// {sel: selWidth bits, v0..v(n-1): t}, one output of type t.
func Multiplexer(name string, t ir.Type, selWidth uint, n int) *ir.Block {
	elems := make([]ir.Type, n+1)
	elems[0] = ir.Int(selWidth)
	for i := 1; i <= n; i++ {
		elems[i] = t
	}
	in := ir.Struct(elems...)
	return ir.NewBlock(name, multiplexer{n: n}, []ir.Type{in}, []ir.Type{t}, []string{"in"}, []string{"out"})
}

// router consumes a struct {sel, v} and emits v on exactly the output
// port named by sel, discarding the rest; each output's DepRule is AND
// over the single input but Maybe (not every firing reaches every
// output).
type router struct{}

func (router) TypeName() string                                 { return "Router" }
func (router) HasState() bool                                   { return false }
func (router) OutputsSeparate() bool                            { return true }
func (router) OutputsTied() bool                                { return false }
func (router) HasCycle() bool                                   { return false }
func (router) Refinable() bool                                  { return false }
func (router) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (router) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.DependenceRule{InputType: ir.AND, OutputType: ir.Maybe, Inputs: b.Inputs()}
}
func (router) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (router) Print() string                                       { return "" }

// Router builds a 1-to-n demultiplexer: one struct input {sel, v}, n
// outputs of type t.
func Router(name string, t ir.Type, selWidth uint, n int) *ir.Block {
	in := ir.Struct(ir.Int(selWidth), t)
	outTypes := make([]ir.Type, n)
	for i := range outTypes {
		outTypes[i] = t
	}
	return ir.NewBlock(name, router{}, []ir.Type{in}, outTypes, []string{"in"}, nil)
}

// sparseMultiplexer is a Multiplexer whose selector space is only
// partially populated: each present key maps to one input port, and
// default fills every unlisted selector value once refined to a dense
// Multiplexer.
type sparseMultiplexer struct {
	t        ir.Type
	selWidth uint
	keys     []int64
	hasDef   bool
	def      ir.Value
}

func (s sparseMultiplexer) TypeName() string      { return "SparseMultiplexer" }
func (s sparseMultiplexer) HasState() bool        { return false }
func (s sparseMultiplexer) OutputsSeparate() bool { return false }
func (s sparseMultiplexer) OutputsTied() bool     { return true }
func (s sparseMultiplexer) HasCycle() bool        { return false }
func (s sparseMultiplexer) Refinable() bool       { return true }
func (s sparseMultiplexer) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	return SparseMultiplexerRefiner{}.Refine(b, conns)
}
func (s sparseMultiplexer) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()...)
}
func (s sparseMultiplexer) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (s sparseMultiplexer) Print() string                                       { return fmt.Sprintf("keys=%v", s.keys) }

// SparseMultiplexer builds a block with one sel input (selWidth bits) and
// one data input per key, selecting among them by value rather than by
// dense position. If def is provided, selector values absent from keys
// produce def once refined; otherwise they are wired to a Never source.
func SparseMultiplexer(name string, t ir.Type, selWidth uint, keys []int64, def *ir.Value) (*ir.Block, error) {
	if len(keys) == 0 {
		return nil, lperr.InvalidArgumentf("SparseMultiplexer %s: no keys given", name)
	}
	inputTypes := make([]ir.Type, len(keys)+1)
	inputNames := make([]string, len(keys)+1)
	inputTypes[0] = ir.Int(selWidth)
	inputNames[0] = "sel"
	for i, k := range keys {
		inputTypes[i+1] = t
		inputNames[i+1] = fmt.Sprintf("v%d", k)
	}
	impl := sparseMultiplexer{t: t, selWidth: selWidth, keys: append([]int64(nil), keys...)}
	if def != nil {
		impl.hasDef = true
		impl.def = *def
	}
	return ir.NewBlock(name, impl, inputTypes, []ir.Type{t}, inputNames, []string{"out"}), nil
}

// SparseMultiplexerRefiner lowers a SparseMultiplexer to a dense
// Multiplexer covering every selector value in [0, 2^selWidth), filling
// gaps from the sparse key set with the declared default (or a Never
// source if none was declared), per §4.5's "default fan-in". The dense
// Multiplexer consumes a single {sel, v0..vN-1} struct, so the refiner
// also builds the Join that assembles it from the sparse block's
// separate input wires.
type SparseMultiplexerRefiner struct{}

var _ refine.Refiner = SparseMultiplexerRefiner{}

func (SparseMultiplexerRefiner) Handles(b *ir.Block) bool {
	_, ok := b.Impl().(sparseMultiplexer)
	return ok
}

func (SparseMultiplexerRefiner) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	s, ok := b.Impl().(sparseMultiplexer)
	if !ok {
		return false, nil
	}

	dense := 1 << s.selWidth
	if dense > 1<<16 {
		return false, lperr.InvalidCallf("SparseMultiplexer %s: selector width %d too wide to densify", b.Name(), s.selWidth)
	}

	byKey := map[int64]*ir.InputPort{}
	for i, k := range s.keys {
		byKey[k] = b.Inputs()[i+1]
	}

	selSource, hasSel := conns.FindSource(b.Inputs()[0])
	sourceByInput := map[*ir.InputPort]*ir.OutputPort{}
	for _, ip := range b.Inputs()[1:] {
		if op, ok := conns.FindSource(ip); ok {
			sourceByInput[ip] = op
		}
	}
	outSinks := conns.FindSinks(b.Outputs()[0])

	joinTypes := make([]ir.Type, dense+1)
	joinNames := make([]string, dense+1)
	joinTypes[0] = ir.Int(s.selWidth)
	joinNames[0] = "sel"
	for v := 0; v < dense; v++ {
		joinTypes[v+1] = s.t
		joinNames[v+1] = fmt.Sprintf("v%d", v)
	}
	jn := Join(b.Name()+".bundle", joinTypes, joinNames)
	mux := Multiplexer(b.Name()+".dense", s.t, s.selWidth, dense)

	conns.DestroyBlock(b)

	if hasSel {
		if err := conns.Connect(selSource, jn.Inputs()[0]); err != nil {
			return false, err
		}
	}
	for v := 0; v < dense; v++ {
		slot := jn.Inputs()[v+1]
		if ip, present := byKey[int64(v)]; present {
			if op, ok := sourceByInput[ip]; ok {
				if err := conns.Connect(op, slot); err != nil {
					return false, err
				}
			}
			continue
		}
		if s.hasDef {
			c := Constant(fmt.Sprintf("%s.default%d", b.Name(), v), s.def)
			if err := conns.Connect(c.Outputs()[0], slot); err != nil {
				return false, err
			}
		} else {
			nv := Never(fmt.Sprintf("%s.unused%d", b.Name(), v), s.t)
			if err := conns.Connect(nv.Outputs()[0], slot); err != nil {
				return false, err
			}
		}
	}
	if err := conns.Connect(jn.Outputs()[0], mux.Inputs()[0]); err != nil {
		return false, err
	}
	for _, sink := range outSinks {
		if err := conns.Connect(mux.Outputs()[0], sink); err != nil {
			return false, err
		}
	}

	return true, nil
}
