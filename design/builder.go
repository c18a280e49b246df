package design

import (
	"fmt"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/lperr"
	"github.com/sarchlab/synthflow/region"
)

// Builder assembles a Design from a caller-populated root module, the
// same value-receiver With*-chain-then-Build(name) shape
// config.DeviceBuilder uses for a CGRA device: every With* call returns a
// modified copy, so a partially configured Builder can be safely reused
// as a template for several Designs.
type Builder struct {
	config Config
	root   *ir.Module
}

// NewBuilder starts a Builder from DefaultConfig().
func NewBuilder() Builder {
	return Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration wholesale.
func (b Builder) WithConfig(cfg Config) Builder {
	b.config = cfg
	return b
}

// WithBackend sets the target backend's diagnostic label.
func (b Builder) WithBackend(backend string) Builder {
	b.config.Backend = backend
	return b
}

// WithClockPeriodPS sets the target clock period, in picoseconds.
func (b Builder) WithClockPeriodPS(ps float64) Builder {
	b.config.ClockPeriodPS = ps
	return b
}

// WithWorkDir sets where diagnostic artifacts are written.
func (b Builder) WithWorkDir(dir string) Builder {
	b.config.WorkDir = dir
	return b
}

// WithRoot sets the module the Design elaborates and optimizes. Required
// before Build.
func (b Builder) WithRoot(root *ir.Module) Builder {
	b.root = root
	return b
}

// Build finalizes the Builder into a Design named name for diagnostics
// (the root module itself keeps whatever name it was constructed with),
// registering Close with atexit so diagnostics flush even under an
// unexpected os.Exit.
func (b Builder) Build(name string) *Design {
	if b.root == nil {
		lperr.Impossible("design: Builder.Build called with no root module; call WithRoot first")
	}

	d := &Design{
		name:    name,
		Config:  b.config,
		root:    b.root,
		regions: map[*ir.Module]bool{},
	}
	registerAtExit(d)
	return d
}

// growRegionsIn seeds, prunes, and absorbs a ScheduledRegion at every
// block in m (and its submodules, skipping already-absorbed region
// containers) that seed selects, recording each new container in
// d.regions so the pipelining and check passes skip its interior.
func growRegionsIn(d *Design, m *ir.Module, seed func(*ir.Block) bool) error {
	if d.regions[m] {
		return nil
	}
	conns := m.Conns()
	if conns == nil {
		return nil
	}

	idx := 0
	for _, b := range m.Blocks() {
		if conns.UseCount(b) == 0 || !seed(b) {
			continue
		}

		r := region.Grow(conns, b)
		if err := r.PruneToNED(); err != nil {
			return err
		}
		if len(r.Blocks()) <= 1 {
			continue
		}

		idx++
		name := fmt.Sprintf("%s.region%d", m.Name(), idx)
		container, err := r.Absorb(m, name)
		if err != nil {
			return err
		}
		if _, err := r.Schedule(container); err != nil {
			return err
		}
		d.regions[container.Module] = true
	}

	for _, sub := range m.SubModules() {
		if err := growRegionsIn(d, sub, seed); err != nil {
			return err
		}
	}
	return nil
}
