package region

import (
	"testing"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/stdlib"
)

func mustConnectInternal(t *testing.T, conns *ir.ConnectionDB, op *ir.OutputPort, ip *ir.InputPort) {
	t.Helper()
	if err := conns.Connect(op, ip); err != nil {
		t.Fatalf("connect %s -> %s: %v", op.Name(), ip.Name(), err)
	}
}

func TestRemoveRedundantBypassesWaitAndFork(t *testing.T) {
	conns := ir.NewConnectionDB()
	c := stdlib.Constant("c", ir.NewIntValue(8, 1))
	w := stdlib.Wait("w", ir.Int(8), 0)
	fk := stdlib.Fork("fk", ir.Int(8), 2, false)
	sinkA := stdlib.Identity("sinkA", ir.Int(8))
	sinkB := stdlib.Identity("sinkB", ir.Int(8))

	mustConnectInternal(t, conns, c.Outputs()[0], w.Inputs()[0])
	mustConnectInternal(t, conns, w.Outputs()[0], fk.Inputs()[0])
	mustConnectInternal(t, conns, fk.Outputs()[0], sinkA.Inputs()[0])
	mustConnectInternal(t, conns, fk.Outputs()[1], sinkB.Inputs()[0])

	if err := removeRedundant(conns); err != nil {
		t.Fatalf("removeRedundant: %v", err)
	}

	for _, b := range conns.FindAllBlocks(nil) {
		if b.TypeName() == "Wait" || b.TypeName() == "Fork" {
			t.Fatalf("expected %s to be bypassed, still present", b.TypeName())
		}
	}

	srcA, ok := conns.FindSource(sinkA.Inputs()[0])
	if !ok || srcA != c.Outputs()[0] {
		t.Fatalf("sinkA should now be fed directly by the constant, got %v (ok=%v)", srcA, ok)
	}
	srcB, ok := conns.FindSource(sinkB.Inputs()[0])
	if !ok || srcB != c.Outputs()[0] {
		t.Fatalf("sinkB should now be fed directly by the constant, got %v (ok=%v)", srcB, ok)
	}
}

func TestFindRedundantIgnoresVirtualFork(t *testing.T) {
	conns := ir.NewConnectionDB()
	c := stdlib.Constant("c", ir.NewIntValue(8, 1))
	fk := stdlib.Fork("fk", ir.Int(8), 2, true)
	sinkA := stdlib.Identity("sinkA", ir.Int(8))
	sinkB := stdlib.Identity("sinkB", ir.Int(8))

	mustConnectInternal(t, conns, c.Outputs()[0], fk.Inputs()[0])
	mustConnectInternal(t, conns, fk.Outputs()[0], sinkA.Inputs()[0])
	mustConnectInternal(t, conns, fk.Outputs()[1], sinkB.Inputs()[0])

	if b := findRedundant(conns); b != nil {
		t.Fatalf("a virtual fork must not be treated as redundant, got %s", b.Name())
	}
}
