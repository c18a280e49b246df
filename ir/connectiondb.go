package ir

import (
	"sort"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/synthflow/lperr"
)

// Hook positions fired around ConnectionDB mutations, using
// github.com/sarchlab/akita/v4/sim's Hookable/HookPos/HookCtx so a
// debugger, pass tracer, or test can watch graph mutation without the
// ConnectionDB knowing who's listening.
var (
	HookPosConnect    = &sim.HookPos{Name: "ConnectionDB Connect"}
	HookPosDisconnect = &sim.HookPos{Name: "ConnectionDB Disconnect"}
	HookPosRemap      = &sim.HookPos{Name: "ConnectionDB Remap"}
)

// orderedPortSet is an insertion-ordered set of *InputPort, giving
// ConnectionDB.FindSinks a deterministic iteration order — load-bearing
// for reproducible scheduling and diagnostics.
type orderedPortSet struct {
	order []*InputPort
	index map[*InputPort]int
}

func newOrderedPortSet() *orderedPortSet {
	return &orderedPortSet{index: map[*InputPort]int{}}
}

func (s *orderedPortSet) add(ip *InputPort) {
	if _, ok := s.index[ip]; ok {
		return
	}
	s.index[ip] = len(s.order)
	s.order = append(s.order, ip)
}

func (s *orderedPortSet) remove(ip *InputPort) {
	i, ok := s.index[ip]
	if !ok {
		return
	}
	s.order = append(s.order[:i], s.order[i+1:]...)
	delete(s.index, ip)
	for j := i; j < len(s.order); j++ {
		s.index[s.order[j]] = j
	}
}

func (s *orderedPortSet) len() int { return len(s.order) }

func (s *orderedPortSet) slice() []*InputPort {
	out := make([]*InputPort, len(s.order))
	copy(out, s.order)
	return out
}

// ConnectionDB is a per-module connection store with two indices
// (sink_index, source_index), block use-counts, a blacklist of hidden
// blocks, pending lazy-remap tables, and a monotonically increasing
// change counter.
type ConnectionDB struct {
	sim.HookableBase

	// owner is the module this DB belongs to, or nil for a free-standing
	// DB. Blocks first used in an owned DB are adopted by the owner.
	owner *Module

	sinkIndex   map[*OutputPort]*orderedPortSet
	sourceIndex map[*InputPort]*OutputPort
	hidden      map[connKey]bool

	useCount  map[*Block]int
	blacklist map[*Block]bool

	inputRewrites        map[*InputPort][]*InputPort
	outputRewrites       map[*OutputPort]*OutputPort
	appliedInputRewrite  map[*InputPort]bool
	appliedOutputRewrite map[*OutputPort]bool

	changeCounter uint64
}

// NewConnectionDB creates an empty connection database.
func NewConnectionDB() *ConnectionDB {
	return &ConnectionDB{
		sinkIndex:            map[*OutputPort]*orderedPortSet{},
		sourceIndex:          map[*InputPort]*OutputPort{},
		hidden:               map[connKey]bool{},
		useCount:             map[*Block]int{},
		blacklist:            map[*Block]bool{},
		inputRewrites:        map[*InputPort][]*InputPort{},
		outputRewrites:       map[*OutputPort]*OutputPort{},
		appliedInputRewrite:  map[*InputPort]bool{},
		appliedOutputRewrite: map[*OutputPort]bool{},
	}
}

// ChangeCounter returns the monotonically increasing mutation counter.
func (db *ConnectionDB) ChangeCounter() uint64 { return db.changeCounter }

func (db *ConnectionDB) bump() {
	db.changeCounter++
}

// Blacklist hides b from FindAllBlocks and marks any connection touching
// it as Hidden at creation time.
func (db *ConnectionDB) Blacklist(b *Block) { db.blacklist[b] = true }

// Unblacklist reverses Blacklist.
func (db *ConnectionDB) Unblacklist(b *Block) { delete(db.blacklist, b) }

// IsBlacklisted reports whether b is currently blacklisted.
func (db *ConnectionDB) IsBlacklisted(b *Block) bool { return db.blacklist[b] }

// Connect creates a connection from op to ip. It fails with a TypeError
// if the port types differ, or an InvalidArgument if either endpoint has
// already been spent by a prior Remap. If ip or op carries a pending
// lazy remap queued by a prior Remap call, Connect applies that remap
// instead of creating the literal op→ip edge (§4.1, §9's "lazy remaps").
func (db *ConnectionDB) Connect(op *OutputPort, ip *InputPort) error {
	if db.appliedInputRewrite[ip] {
		return lperr.InvalidArgumentf("input port %s was already remapped away", ip.Name())
	}
	if db.appliedOutputRewrite[op] {
		return lperr.InvalidArgumentf("output port %s was already remapped away", op.Name())
	}
	if !op.Type().Equal(ip.Type()) {
		return lperr.TypeErrorf("connecting %s (%s) to %s (%s): type mismatch",
			op.Name(), op.Type(), ip.Name(), ip.Type())
	}
	if src, ok := db.sourceIndex[ip]; ok {
		return lperr.InvalidArgumentf("input port %s already has a source (%s)", ip.Name(), src.Name())
	}

	defer db.invoke(HookPosConnect, connKey{op, ip})

	if newInputs, pending := db.inputRewrites[ip]; pending {
		delete(db.inputRewrites, ip)
		db.appliedInputRewrite[ip] = true
		for _, ni := range newInputs {
			if err := db.Connect(op, ni); err != nil {
				return err
			}
		}
		return nil
	}
	if newOutput, pending := db.outputRewrites[op]; pending {
		delete(db.outputRewrites, op)
		db.appliedOutputRewrite[op] = true
		return db.Connect(newOutput, ip)
	}

	db.insert(op, ip)
	db.bump()
	return nil
}

func (db *ConnectionDB) insert(op *OutputPort, ip *InputPort) {
	set, ok := db.sinkIndex[op]
	if !ok {
		set = newOrderedPortSet()
		db.sinkIndex[op] = set
	}
	set.add(ip)
	db.sourceIndex[ip] = op

	db.registerBlock(op.Owner())
	db.registerBlock(ip.Owner())

	if db.blacklist[op.Owner()] || db.blacklist[ip.Owner()] {
		db.hidden[connKey{op, ip}] = true
	}
}

func (db *ConnectionDB) registerBlock(b *Block) {
	db.useCount[b]++
	b.useCount++
	if b.module == nil && db.owner != nil {
		db.owner.Adopt(b)
	}
}

// Disconnect removes the connection between op and ip, if any. It is a
// no-op if no such connection exists.
func (db *ConnectionDB) Disconnect(op *OutputPort, ip *InputPort) {
	if db.sourceIndex[ip] != op {
		return
	}
	db.remove(op, ip)
	db.bump()
	db.invoke(HookPosDisconnect, connKey{op, ip})
}

func (db *ConnectionDB) remove(op *OutputPort, ip *InputPort) {
	if set, ok := db.sinkIndex[op]; ok {
		set.remove(ip)
		if set.len() == 0 {
			delete(db.sinkIndex, op)
		}
	}
	delete(db.sourceIndex, ip)
	delete(db.hidden, connKey{op, ip})

	db.unregisterBlock(op.Owner())
	db.unregisterBlock(ip.Owner())
}

func (db *ConnectionDB) unregisterBlock(b *Block) {
	if db.useCount[b] > 0 {
		db.useCount[b]--
		b.useCount--
	}
	if db.useCount[b] == 0 {
		delete(db.useCount, b)
	}
}

// FindSource returns the output port driving ip, if any.
func (db *ConnectionDB) FindSource(ip *InputPort) (*OutputPort, bool) {
	op, ok := db.sourceIndex[ip]
	return op, ok
}

// FindSinks returns every input port driven by op, in connection order.
func (db *ConnectionDB) FindSinks(op *OutputPort) []*InputPort {
	set, ok := db.sinkIndex[op]
	if !ok {
		return nil
	}
	return set.slice()
}

// CountSinks returns the fan-out of op.
func (db *ConnectionDB) CountSinks(op *OutputPort) int {
	if set, ok := db.sinkIndex[op]; ok {
		return set.len()
	}
	return 0
}

// IsHidden reports whether the op→ip connection was created while one of
// its endpoints was blacklisted.
func (db *ConnectionDB) IsHidden(op *OutputPort, ip *InputPort) bool {
	return db.hidden[connKey{op, ip}]
}

// UseCount reports how many connection endpoints in this DB currently sit
// on b's ports (a port driving two sinks counts twice).
func (db *ConnectionDB) UseCount(b *Block) int { return db.useCount[b] }

// RemapInput disconnects whatever currently drives oldInput and
// reconnects that source to each of newInputs. If oldInput has no current
// source, the remap is queued: the next Connect naming oldInput as the
// sink is redirected to newInputs instead.
func (db *ConnectionDB) RemapInput(oldInput *InputPort, newInputs []*InputPort) error {
	if db.appliedInputRewrite[oldInput] {
		return lperr.InvalidCallf("input port %s already remapped", oldInput.Name())
	}
	defer db.invoke(HookPosRemap, oldInput)

	src, ok := db.sourceIndex[oldInput]
	if !ok {
		db.inputRewrites[oldInput] = append([]*InputPort(nil), newInputs...)
		return nil
	}

	db.remove(src, oldInput)
	db.appliedInputRewrite[oldInput] = true
	for _, ni := range newInputs {
		db.insert(src, ni)
	}
	db.bump()
	return nil
}

// RemapOutput disconnects every sink currently fed by oldOutput and
// reconnects each to newOutput. If oldOutput has no current fan-out, the
// remap is queued: the next Connect naming oldOutput as the source is
// redirected to newOutput instead.
func (db *ConnectionDB) RemapOutput(oldOutput, newOutput *OutputPort) error {
	if db.appliedOutputRewrite[oldOutput] {
		return lperr.InvalidCallf("output port %s already remapped", oldOutput.Name())
	}
	defer db.invoke(HookPosRemap, oldOutput)

	sinks := db.FindSinks(oldOutput)
	if len(sinks) == 0 {
		db.outputRewrites[oldOutput] = newOutput
		return nil
	}

	for _, ip := range sinks {
		db.remove(oldOutput, ip)
		db.insert(newOutput, ip)
	}
	db.appliedOutputRewrite[oldOutput] = true
	db.bump()
	return nil
}

// DestroyBlock disconnects every connection incident to b's ports. Use
// before discarding a block replaced wholesale by refinement.
func (db *ConnectionDB) DestroyBlock(b *Block) {
	for _, ip := range b.Inputs() {
		if op, ok := db.sourceIndex[ip]; ok {
			db.Disconnect(op, ip)
		}
	}
	for _, op := range b.Outputs() {
		for _, ip := range db.FindSinks(op) {
			db.Disconnect(op, ip)
		}
	}
}

// FindAllBlocks returns every block with use-count ≥ 1 that is not
// blacklisted and satisfies filter (a nil filter matches everything).
// Results are ordered by block ID so that passes iterating the result
// behave the same on every run, independent of map iteration order.
func (db *ConnectionDB) FindAllBlocks(filter func(*Block) bool) []*Block {
	seen := map[*Block]bool{}
	var out []*Block
	add := func(b *Block) {
		if b == nil || seen[b] || db.blacklist[b] {
			return
		}
		if filter != nil && !filter(b) {
			return
		}
		seen[b] = true
		out = append(out, b)
	}
	for op := range db.sinkIndex {
		add(op.Owner())
		for _, ip := range db.FindSinks(op) {
			add(ip.Owner())
		}
	}
	for ip, op := range db.sourceIndex {
		add(ip.Owner())
		add(op.Owner())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (db *ConnectionDB) invoke(pos *sim.HookPos, item interface{}) {
	db.InvokeHook(sim.HookCtx{Domain: db, Pos: pos, Item: item})
}
