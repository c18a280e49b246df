package stdlib

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/refine"
)

// register is a stateful single-entry store with independent write and
// read interfaces: writing and reading do not depend on each other
// within one firing. Refinable to an RTLReg (the literal storage
// primitive) fed through a Wait gating reads on "has been written".
type register struct {
	t ir.Type
}

func (r register) TypeName() string      { return "Register" }
func (r register) HasState() bool        { return true }
func (r register) OutputsSeparate() bool { return true }
func (r register) OutputsTied() bool     { return false }
func (r register) HasCycle() bool        { return false }
func (r register) Refinable() bool       { return true }
func (r register) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	return RegisterRefiner{}.Refine(b, conns)
}
func (r register) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	if op == b.Outputs()[1] {
		return ir.ANDFireOne(b.Inputs()[1]) // read response depends on read request
	}
	return ir.ANDFireOne(b.Inputs()[0]) // write ack depends on write request
}
func (r register) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort {
	return r.DepRule(b, op).Inputs
}
func (r register) Print() string { return "" }

// Register builds a one-entry store of type t: input 0 is the write
// request, input 1 the read request; output 0 is the write ack (void),
// output 1 the read response of type t.
func Register(name string, t ir.Type) *ir.Block {
	return ir.NewBlock(name, register{t: t},
		[]ir.Type{t, ir.Void()}, []ir.Type{ir.Void(), t},
		[]string{"write", "read_req"}, []string{"write_ack", "read_resp"})
}

// finiteArray is Register generalized to N addressable entries.
type finiteArray struct {
	t     ir.Type
	depth int
}

func (f finiteArray) TypeName() string                                 { return "FiniteArray" }
func (f finiteArray) HasState() bool                                   { return true }
func (f finiteArray) OutputsSeparate() bool                            { return true }
func (f finiteArray) OutputsTied() bool                                { return false }
func (f finiteArray) HasCycle() bool                                   { return false }
func (f finiteArray) Refinable() bool                                  { return false }
func (f finiteArray) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (f finiteArray) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	if op == b.Outputs()[1] {
		return ir.ANDFireOne(b.Inputs()[1])
	}
	return ir.ANDFireOne(b.Inputs()[0])
}
func (f finiteArray) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort {
	return f.DepRule(b, op).Inputs
}
func (f finiteArray) Print() string { return fmt.Sprintf("depth=%d", f.depth) }

// FiniteArray builds a depth-entry addressable store of type t. Write
// request is {addr, data}; read request is addr; read response is data.
func FiniteArray(name string, t ir.Type, depth int) *ir.Block {
	addrWidth := bitsFor(depth)
	writeReq := ir.Struct(ir.Int(addrWidth), t)
	return ir.NewBlock(name, finiteArray{t: t, depth: depth},
		[]ir.Type{writeReq, ir.Int(addrWidth)}, []ir.Type{ir.Void(), t},
		[]string{"write", "read_req"}, []string{"write_ack", "read_resp"})
}

func bitsFor(n int) uint {
	w := uint(1)
	for (1 << w) < n {
		w++
	}
	return w
}

// rtlReg is the literal storage primitive: N independently addressed
// write ports and N independently addressed read ports, each with its own
// dependence rule — the level RTLSynthesis actually emits.
type rtlReg struct {
	t        ir.Type
	numWrite int
	numRead  int
}

func (r rtlReg) TypeName() string                                 { return "RTLReg" }
func (r rtlReg) HasState() bool                                   { return true }
func (r rtlReg) OutputsSeparate() bool                            { return true }
func (r rtlReg) OutputsTied() bool                                { return false }
func (r rtlReg) HasCycle() bool                                   { return false }
func (r rtlReg) Refinable() bool                                  { return false }
func (r rtlReg) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (r rtlReg) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	for i, o := range b.Outputs() {
		if o == op {
			return ir.ANDFireOne(b.Inputs()[r.numWrite+i])
		}
	}
	return ir.DependenceRule{}
}
func (r rtlReg) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort {
	return r.DepRule(b, op).Inputs
}
func (r rtlReg) Print() string { return fmt.Sprintf("w=%d r=%d", r.numWrite, r.numRead) }

// RTLReg builds a raw storage primitive of type t with numWrite write
// ports and numRead read ports, each with its own request/response pair.
func RTLReg(name string, t ir.Type, numWrite, numRead int) *ir.Block {
	inputTypes := make([]ir.Type, numWrite+numRead)
	inputNames := make([]string, numWrite+numRead)
	for i := 0; i < numWrite; i++ {
		inputTypes[i] = t
		inputNames[i] = fmt.Sprintf("write%d", i)
	}
	for i := 0; i < numRead; i++ {
		inputTypes[numWrite+i] = ir.Void()
		inputNames[numWrite+i] = fmt.Sprintf("read_req%d", i)
	}
	outputTypes := make([]ir.Type, numRead)
	outputNames := make([]string, numRead)
	for i := 0; i < numRead; i++ {
		outputTypes[i] = t
		outputNames[i] = fmt.Sprintf("read_resp%d", i)
	}
	return ir.NewBlock(name, rtlReg{t: t, numWrite: numWrite, numRead: numRead},
		inputTypes, outputTypes, inputNames, outputNames)
}

// BlockRAM is RTLReg's addressed-memory counterpart: same port shape,
// distinguished purely for the printer/backend's naming ("RAM" vs
// "register file") — the dependence contract is identical.
func BlockRAM(name string, t ir.Type, numWrite, numRead int) *ir.Block {
	return RTLReg(name, t, numWrite, numRead)
}

// RegisterRefiner lowers a Register to an RTLReg (one write port, one
// read port) whose read response is gated by a Wait on "a value has been
// written", matching §4.5's Register→RTLReg+Wait.
type RegisterRefiner struct{}

var _ refine.Refiner = RegisterRefiner{}

func (RegisterRefiner) Handles(b *ir.Block) bool {
	_, ok := b.Impl().(register)
	return ok
}

func (RegisterRefiner) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	r, ok := b.Impl().(register)
	if !ok {
		return false, nil
	}

	writeSrc, hasWrite := conns.FindSource(b.Inputs()[0])
	readReqSrc, hasReadReq := conns.FindSource(b.Inputs()[1])
	writeAckSinks := conns.FindSinks(b.Outputs()[0])
	readRespSinks := conns.FindSinks(b.Outputs()[1])

	reg := RTLReg(b.Name()+".rtl", r.t, 1, 1)
	w := Wait(b.Name()+".wait", r.t, 1)
	// RTLReg has no write-acknowledgement output, so the Wait gating the
	// read response needs its own "a write has happened" pulse; Once
	// stands in for that first-write trigger until a later pass refines
	// it further.
	pulse := Once(b.Name()+".written", ir.Int(1))

	conns.DestroyBlock(b)

	if hasWrite {
		if err := conns.Connect(writeSrc, reg.Inputs()[0]); err != nil {
			return false, err
		}
	}
	if hasReadReq {
		if err := conns.Connect(readReqSrc, reg.Inputs()[1]); err != nil {
			return false, err
		}
	}
	// RTLReg has no write_ack equivalent; the original write_ack (void)
	// sinks are simply left without a driver after this rewrite.
	_ = writeAckSinks

	if err := conns.Connect(reg.Outputs()[0], w.Inputs()[0]); err != nil {
		return false, err
	}
	if err := conns.Connect(pulse.Outputs()[0], w.Inputs()[1]); err != nil {
		return false, err
	}
	for _, sink := range readRespSinks {
		if err := conns.Connect(w.Outputs()[0], sink); err != nil {
			return false, err
		}
	}

	return true, nil
}
