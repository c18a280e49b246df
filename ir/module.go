package ir

// Module is a named container of blocks. A transparent module exposes its
// mutable ConnectionDB for direct graph surgery by refiners and passes; an
// opaque module does not — analysis can only cross its boundary via the
// ExternalDeps it declares.
type Module struct {
	name   string
	opaque bool
	conns  *ConnectionDB

	// ExternalDeps is consulted by query.FindDependencies when it would
	// otherwise need to look inside an opaque module.
	ExternalDeps map[*OutputPort]DependenceRule

	parent     *Module
	subModules []*Module
}

// NewModule creates a transparent module with a fresh ConnectionDB.
func NewModule(name string) *Module {
	m := &Module{name: name, conns: NewConnectionDB(), ExternalDeps: map[*OutputPort]DependenceRule{}}
	m.conns.owner = m
	return m
}

// NewOpaqueModule creates a module whose ConnectionDB is not exposed.
func NewOpaqueModule(name string) *Module {
	return &Module{name: name, opaque: true, ExternalDeps: map[*OutputPort]DependenceRule{}}
}

// Name returns the module's name.
func (m *Module) Name() string { return m.name }

// Opaque reports whether the module hides its internal graph.
func (m *Module) Opaque() bool { return m.opaque }

// Conns returns the module's ConnectionDB, or nil for an opaque module.
func (m *Module) Conns() *ConnectionDB {
	if m.opaque {
		return nil
	}
	return m.conns
}

// Parent returns the enclosing module, or nil at the design root.
func (m *Module) Parent() *Module { return m.parent }

// SubModules returns the module's direct children.
func (m *Module) SubModules() []*Module { return m.subModules }

// AddSubModule registers child as nested within m.
func (m *Module) AddSubModule(child *Module) {
	child.parent = m
	m.subModules = append(m.subModules, child)
}

// Adopt records m as b's owning module. ConnectionDB.registerBlock calls
// it for a block first used in a module's own DB; region absorption calls
// it again when it physically moves a member block into a container.
func (m *Module) Adopt(b *Block) { b.module = m }

// Blocks returns every live (use-count ≥ 1, non-blacklisted) block in the
// module, or nil for an opaque module.
func (m *Module) Blocks() []*Block {
	if m.opaque {
		return nil
	}
	return m.conns.FindAllBlocks(nil)
}

// ExternalInput pairs a container's externally visible input port with
// the internal OutputPort ("identity driver") that supplies its value to
// internal consumers.
type ExternalInput struct {
	External *InputPort
	Internal *OutputPort
	driver   *Block
}

// ExternalOutput pairs a container's externally visible output port with
// the internal InputPort ("identity sink") that internal producers write
// the final value to.
type ExternalOutput struct {
	External *OutputPort
	Internal *InputPort
	sink     *Block
}

// ContainerModule is a transparent Module whose external ports are backed
// internally by Identity blocks, so that refinement (e.g. splitting a
// ContainerModule into two) can rewire the internal graph without ever
// exposing a dangling external port.
type ContainerModule struct {
	*Module

	Inputs  []*ExternalInput
	Outputs []*ExternalOutput
}

// NewContainerModule creates an empty container.
func NewContainerModule(name string) *ContainerModule {
	return &ContainerModule{Module: NewModule(name)}
}

// AddExternalInput declares a new externally visible input of type t,
// backed by an internal Identity block whose output drives internal
// consumers.
func (c *ContainerModule) AddExternalInput(name string, t Type) *ExternalInput {
	driver := NewBlock(name+".driver", identityImpl{}, []Type{t}, []Type{t}, []string{"in"}, []string{"out"})
	c.Adopt(driver)
	ext := &ExternalInput{External: driver.Inputs()[0], Internal: driver.Outputs()[0], driver: driver}
	c.Inputs = append(c.Inputs, ext)
	return ext
}

// AddExternalOutput declares a new externally visible output of type t,
// backed by an internal Identity block whose input accepts the final
// internal value.
func (c *ContainerModule) AddExternalOutput(name string, t Type) *ExternalOutput {
	sink := NewBlock(name+".sink", identityImpl{}, []Type{t}, []Type{t}, []string{"in"}, []string{"out"})
	c.Adopt(sink)
	ext := &ExternalOutput{External: sink.Outputs()[0], Internal: sink.Inputs()[0], sink: sink}
	c.Outputs = append(c.Outputs, ext)
	return ext
}

// identityImpl is the minimal Identity block behavior, defined here (not
// in stdlib) to break the import cycle ir↔stdlib that a container's
// internal drivers would otherwise create. stdlib.Identity wraps the same
// contract for use elsewhere in the graph.
type identityImpl struct{}

func (identityImpl) TypeName() string                           { return "Identity" }
func (identityImpl) HasState() bool                             { return false }
func (identityImpl) OutputsSeparate() bool                      { return false }
func (identityImpl) OutputsTied() bool                          { return true }
func (identityImpl) HasCycle() bool                             { return false }
func (identityImpl) Refinable() bool                            { return false }
func (identityImpl) Refine(*Block, *ConnectionDB) (bool, error) { return false, nil }
func (identityImpl) DepRule(b *Block, op *OutputPort) DependenceRule {
	return ANDFireOne(b.Inputs()[0])
}
func (identityImpl) Deps(b *Block, op *OutputPort) []*InputPort { return b.Inputs() }
func (identityImpl) Print() string                              { return "" }
