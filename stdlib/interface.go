package stdlib

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/refine"
)

// ifaceRole distinguishes which end of a request/response pair an
// Interface block represents.
type ifaceRole int

const (
	// RoleServer receives requests and emits responses.
	RoleServer ifaceRole = iota
	// RoleClient emits requests and receives responses.
	RoleClient
)

// iface is a logical RPC channel: a request/response pair bundled as one
// block so refiners and checks can reason about "this request and that
// response belong together" without threading a side-channel tag through
// every pass.
type iface struct {
	role ifaceRole
}

func (i iface) TypeName() string                                 { return "Interface" }
func (i iface) HasState() bool                                   { return false }
func (i iface) OutputsSeparate() bool                            { return true }
func (i iface) OutputsTied() bool                                { return false }
func (i iface) HasCycle() bool                                   { return false }
func (i iface) Refinable() bool                                  { return false }
func (i iface) Refine(*ir.Block, *ir.ConnectionDB) (bool, error) { return false, nil }
func (i iface) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	return ir.ANDFireOne(b.Inputs()[0])
}
func (i iface) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort { return b.Inputs() }
func (i iface) Print() string {
	if i.role == RoleServer {
		return "server"
	}
	return "client"
}

// Interface builds a logical RPC channel: a server Interface has a
// request input and a response output; a client Interface has a request
// output and a response input (pass-through in both cases — Interface
// exists to be named and checked, not to transform data).
func Interface(name string, reqType, respType ir.Type, role ifaceRole) *ir.Block {
	if role == RoleServer {
		return ir.NewBlock(name, iface{role: role},
			[]ir.Type{reqType}, []ir.Type{respType}, []string{"req"}, []string{"resp"})
	}
	return ir.NewBlock(name, iface{role: role},
		[]ir.Type{respType}, []ir.Type{reqType}, []string{"resp"}, []string{"req"})
}

// tagger multiplexes one client across numServers servers by tagging each
// outgoing request with a selWidth-bit server id and routing each
// incoming response back by that same tag.
type tagger struct {
	reqType, respType ir.Type
	selWidth          uint
	numServers        int
}

func (t tagger) TypeName() string      { return "Tagger" }
func (t tagger) HasState() bool        { return false }
func (t tagger) OutputsSeparate() bool { return true }
func (t tagger) OutputsTied() bool     { return false }
func (t tagger) HasCycle() bool        { return false }
func (t tagger) Refinable() bool       { return true }
func (t tagger) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	return TaggerRefiner{}.Refine(b, conns)
}
func (t tagger) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	if op == b.Outputs()[t.numServers] {
		// client response output depends only on whichever server
		// response arrives (OR across the numServers server-response
		// inputs).
		return ir.DependenceRule{InputType: ir.OR, OutputType: ir.Always, Inputs: b.Inputs()[1:]}
	}
	// a server request output depends on the client request (its sel
	// field selects it).
	return ir.ANDFireOne(b.Inputs()[0])
}
func (t tagger) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort {
	return t.DepRule(b, op).Inputs
}
func (t tagger) Print() string { return "" }

// Tagger builds a request/response multiplexer for one client across
// numServers servers. Input 0 is the client request {sel, payload};
// inputs 1..numServers are the per-server responses. Outputs 0..
// numServers-1 are the per-server requests (payload only); the final
// output is the client response.
func Tagger(name string, reqType, respType ir.Type, selWidth uint, numServers int) *ir.Block {
	in, out, inNames, outNames := muxPortShape(reqType, respType, selWidth, numServers)
	return ir.NewBlock(name, tagger{reqType: reqType, respType: respType, selWidth: selWidth, numServers: numServers},
		in, out, inNames, outNames)
}

// TagWidth returns the selector width needed to address numServers
// servers: ceil(log2(numServers)), with a one-bit floor.
func TagWidth(numServers int) uint { return bitsFor(numServers) }

// muxPortShape is the port layout Tagger and InterfaceMultiplexer share:
// input 0 is the client request {sel, payload}, inputs 1..numServers the
// per-server responses; outputs 0..numServers-1 the per-server requests,
// the final output the client response.
func muxPortShape(reqType, respType ir.Type, selWidth uint, numServers int) (in, out []ir.Type, inNames, outNames []string) {
	in = make([]ir.Type, numServers+1)
	inNames = make([]string, numServers+1)
	in[0] = ir.Struct(ir.Int(selWidth), reqType)
	inNames[0] = "client_req"
	for i := 0; i < numServers; i++ {
		in[i+1] = respType
		inNames[i+1] = "server_resp"
	}

	out = make([]ir.Type, numServers+1)
	outNames = make([]string, numServers+1)
	for i := 0; i < numServers; i++ {
		out[i] = reqType
		outNames[i] = "server_req"
	}
	out[numServers] = respType
	outNames[numServers] = "client_resp"
	return in, out, inNames, outNames
}

// TaggerRefiner lowers a Tagger to explicit tag routing — §4.5's
// "Tagger→explicit tag routing". A Router sends the client request's
// payload to the server named by its sel field. On the way back, each
// server's response is Join'd with a Constant carrying that server's id,
// so the merged {tag, resp} stream through the Select still records which
// server produced each token; an Extract strips the tag again before the
// response reaches the client.
type TaggerRefiner struct{}

var _ refine.Refiner = TaggerRefiner{}

func (TaggerRefiner) Handles(b *ir.Block) bool {
	_, ok := b.Impl().(tagger)
	return ok
}

func (TaggerRefiner) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	t, ok := b.Impl().(tagger)
	if !ok {
		return false, nil
	}

	clientReqSrc, hasClientReq := conns.FindSource(b.Inputs()[0])
	serverRespSrcs := make([]*ir.OutputPort, t.numServers)
	serverRespHas := make([]bool, t.numServers)
	for i := 0; i < t.numServers; i++ {
		serverRespSrcs[i], serverRespHas[i] = conns.FindSource(b.Inputs()[i+1])
	}
	serverReqSinks := make([][]*ir.InputPort, t.numServers)
	for i := 0; i < t.numServers; i++ {
		serverReqSinks[i] = conns.FindSinks(b.Outputs()[i])
	}
	clientRespSinks := conns.FindSinks(b.Outputs()[t.numServers])

	tagged := ir.Struct(ir.Int(t.selWidth), t.respType)
	router := Router(b.Name()+".router", t.reqType, t.selWidth, t.numServers)
	sel := Select(b.Name()+".select", tagged, t.numServers)
	untag, err := Extract(b.Name()+".untag", tagged, 1)
	if err != nil {
		return false, err
	}

	joins := make([]*ir.Block, t.numServers)
	tags := make([]*ir.Block, t.numServers)
	for i := 0; i < t.numServers; i++ {
		joins[i] = Join(fmt.Sprintf("%s.tagjoin%d", b.Name(), i),
			[]ir.Type{ir.Int(t.selWidth), t.respType}, []string{"tag", "resp"})
		tags[i] = Constant(fmt.Sprintf("%s.tag%d", b.Name(), i),
			ir.NewIntValue(t.selWidth, int64(i)))
	}

	conns.DestroyBlock(b)

	if hasClientReq {
		if err := conns.Connect(clientReqSrc, router.Inputs()[0]); err != nil {
			return false, err
		}
	}
	for i := 0; i < t.numServers; i++ {
		for _, sink := range serverReqSinks[i] {
			if err := conns.Connect(router.Outputs()[i], sink); err != nil {
				return false, err
			}
		}
		if err := conns.Connect(tags[i].Outputs()[0], joins[i].Inputs()[0]); err != nil {
			return false, err
		}
		if serverRespHas[i] {
			if err := conns.Connect(serverRespSrcs[i], joins[i].Inputs()[1]); err != nil {
				return false, err
			}
		}
		if err := conns.Connect(joins[i].Outputs()[0], sel.Inputs()[i]); err != nil {
			return false, err
		}
	}
	if err := conns.Connect(sel.Outputs()[0], untag.Inputs()[0]); err != nil {
		return false, err
	}
	for _, sink := range clientRespSinks {
		if err := conns.Connect(untag.Outputs()[0], sink); err != nil {
			return false, err
		}
	}

	return true, nil
}

// interfaceMultiplexer is InterfaceMultiplexer proper: a single logical
// client interface fanned out across numServers server interfaces,
// refinable to a Tagger (which itself refines further to Router+Select).
type interfaceMultiplexer struct {
	reqType, respType ir.Type
	selWidth          uint
	numServers        int
}

func (m interfaceMultiplexer) TypeName() string      { return "InterfaceMultiplexer" }
func (m interfaceMultiplexer) HasState() bool        { return false }
func (m interfaceMultiplexer) OutputsSeparate() bool { return true }
func (m interfaceMultiplexer) OutputsTied() bool     { return false }
func (m interfaceMultiplexer) HasCycle() bool        { return false }
func (m interfaceMultiplexer) Refinable() bool       { return true }
func (m interfaceMultiplexer) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	return InterfaceMultiplexerRefiner{}.Refine(b, conns)
}
func (m interfaceMultiplexer) DepRule(b *ir.Block, op *ir.OutputPort) ir.DependenceRule {
	if op == b.Outputs()[m.numServers] {
		return ir.DependenceRule{InputType: ir.OR, OutputType: ir.Always, Inputs: b.Inputs()[1:]}
	}
	return ir.ANDFireOne(b.Inputs()[0])
}
func (m interfaceMultiplexer) Deps(b *ir.Block, op *ir.OutputPort) []*ir.InputPort {
	return m.DepRule(b, op).Inputs
}
func (m interfaceMultiplexer) Print() string { return "" }

// InterfaceMultiplexer builds a block with the same port shape as
// Tagger — the coarser, composite form a frontend emits when it wants
// one client interface fanned across several servers without caring how
// the routing is realized.
func InterfaceMultiplexer(name string, reqType, respType ir.Type, selWidth uint, numServers int) *ir.Block {
	in, out, inNames, outNames := muxPortShape(reqType, respType, selWidth, numServers)
	return ir.NewBlock(name,
		interfaceMultiplexer{reqType: reqType, respType: respType, selWidth: selWidth, numServers: numServers},
		in, out, inNames, outNames)
}

// InterfaceMultiplexerRefiner lowers an InterfaceMultiplexer to a Tagger
// with identical wiring; TaggerRefiner then lowers that to the explicit
// Router + Select + per-server tag Join form, so the two refiners
// together produce §4.5's "InterfaceMultiplexer→(Tagger + Select +
// Router + per-server Join)".
type InterfaceMultiplexerRefiner struct{}

var _ refine.Refiner = InterfaceMultiplexerRefiner{}

func (InterfaceMultiplexerRefiner) Handles(b *ir.Block) bool {
	_, ok := b.Impl().(interfaceMultiplexer)
	return ok
}

func (InterfaceMultiplexerRefiner) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	m, ok := b.Impl().(interfaceMultiplexer)
	if !ok {
		return false, nil
	}

	clientReqSrc, hasClientReq := conns.FindSource(b.Inputs()[0])
	serverRespSrcs := make([]*ir.OutputPort, m.numServers)
	serverRespHas := make([]bool, m.numServers)
	for i := 0; i < m.numServers; i++ {
		serverRespSrcs[i], serverRespHas[i] = conns.FindSource(b.Inputs()[i+1])
	}
	serverReqSinks := make([][]*ir.InputPort, m.numServers)
	for i := 0; i < m.numServers; i++ {
		serverReqSinks[i] = conns.FindSinks(b.Outputs()[i])
	}
	clientRespSinks := conns.FindSinks(b.Outputs()[m.numServers])

	tg := Tagger(b.Name()+".tagger", m.reqType, m.respType, m.selWidth, m.numServers)

	conns.DestroyBlock(b)

	if hasClientReq {
		if err := conns.Connect(clientReqSrc, tg.Inputs()[0]); err != nil {
			return false, err
		}
	}
	for i := 0; i < m.numServers; i++ {
		for _, sink := range serverReqSinks[i] {
			if err := conns.Connect(tg.Outputs()[i], sink); err != nil {
				return false, err
			}
		}
		if serverRespHas[i] {
			if err := conns.Connect(serverRespSrcs[i], tg.Inputs()[i+1]); err != nil {
				return false, err
			}
		}
	}
	for _, sink := range clientRespSinks {
		if err := conns.Connect(tg.Outputs()[m.numServers], sink); err != nil {
			return false, err
		}
	}

	return true, nil
}
