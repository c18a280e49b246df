package region

import (
	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/stdlib"
)

// Absorb moves every full member of r into a freshly built
// ContainerModule, nested under parent, creating external_input,
// external_output, and internal_* boundary ports per §4.6.3. Waits and
// non-virtual Forks entirely inside the region are redundant once the
// region carries its own schedule, so they are removed and their
// neighbors reconnected straight through.
func (r *ScheduledRegion) Absorb(parent *ir.Module, name string) (*ir.ContainerModule, error) {
	container := ir.NewContainerModule(name)
	parent.AddSubModule(container.Module)
	inner := container.Conns()

	fullBlocks := map[*ir.Block]bool{}
	for p := range r.full {
		fullBlocks[p.Owner()] = true
	}
	for _, b := range r.Blocks() {
		container.Adopt(b)
	}

	extInByDriver := map[*ir.OutputPort]*ir.ExternalInput{}
	extOutBySink := map[*ir.InputPort]*ir.ExternalOutput{}

	// Internal connections: both endpoints full members. Walking r.order
	// rather than the r.full map keeps boundary-port creation in admission
	// order, so container.Inputs/Outputs come out the same every run.
	for _, p := range r.order {
		inputPort, ok := p.(*ir.InputPort)
		if !ok {
			continue
		}
		src, hasSrc := r.conns.FindSource(inputPort)
		if !hasSrc {
			continue
		}
		if fullBlocks[src.Owner()] {
			r.conns.Disconnect(src, inputPort)
			if err := inner.Connect(src, inputPort); err != nil {
				return nil, err
			}
			continue
		}

		// External input boundary: reuse one ExternalInput per distinct
		// driving OutputPort.
		ext, ok := extInByDriver[src]
		if !ok {
			ext = container.AddExternalInput(src.Name(), src.Type())
			extInByDriver[src] = ext
			r.conns.Disconnect(src, inputPort)
			if err := r.conns.Connect(src, ext.External); err != nil {
				return nil, err
			}
		} else {
			r.conns.Disconnect(src, inputPort)
		}
		if err := inner.Connect(ext.Internal, inputPort); err != nil {
			return nil, err
		}
	}

	// External output boundary: full-member outputs with a non-member sink.
	for _, p := range r.order {
		outputPort, ok := p.(*ir.OutputPort)
		if !ok {
			continue
		}
		for _, sink := range r.conns.FindSinks(outputPort) {
			if fullBlocks[sink.Owner()] {
				continue // already handled from the input side above
			}
			ext, ok := extOutBySink[sink]
			if !ok {
				ext = container.AddExternalOutput(outputPort.Name(), outputPort.Type())
				extOutBySink[sink] = ext
				r.conns.Disconnect(outputPort, sink)
				if err := r.conns.Connect(ext.External, sink); err != nil {
					return nil, err
				}
			} else {
				r.conns.Disconnect(outputPort, sink)
			}
			if err := inner.Connect(outputPort, ext.Internal); err != nil {
				return nil, err
			}
		}
	}

	if err := removeRedundant(inner); err != nil {
		return nil, err
	}

	return container, nil
}

// removeRedundant deletes every Wait and non-virtual Fork block in conns,
// reconnecting each predecessor directly to its former sinks.
func removeRedundant(conns *ir.ConnectionDB) error {
	for {
		b := findRedundant(conns)
		if b == nil {
			return nil
		}
		if err := bypass(conns, b); err != nil {
			return err
		}
	}
}

func findRedundant(conns *ir.ConnectionDB) *ir.Block {
	for _, b := range conns.FindAllBlocks(nil) {
		switch b.TypeName() {
		case "Wait":
			return b
		case "Fork":
			if virt, ok := stdlib.IsFork(b); ok && !virt {
				return b
			}
		}
	}
	return nil
}

func bypass(conns *ir.ConnectionDB, b *ir.Block) error {
	in := b.Inputs()[0]
	src, hasSrc := conns.FindSource(in)

	var sinks []*ir.InputPort
	for _, op := range b.Outputs() {
		sinks = append(sinks, conns.FindSinks(op)...)
	}

	conns.DestroyBlock(b)

	if !hasSrc {
		return nil
	}
	for _, sink := range sinks {
		if err := conns.Connect(src, sink); err != nil {
			return err
		}
	}
	return nil
}
