package query_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/query"
	"github.com/sarchlab/synthflow/stdlib"
)

func mustConnect(t *testing.T, conns *ir.ConnectionDB, op *ir.OutputPort, ip *ir.InputPort) {
	t.Helper()
	if err := conns.Connect(op, ip); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func TestFindCycleDetectsFeedback(t *testing.T) {
	m := ir.NewModule("m")
	conns := m.Conns()

	a := stdlib.Identity("a", ir.Int(8))
	b := stdlib.Identity("b", ir.Int(8))
	mustConnect(t, conns, a.Outputs()[0], b.Inputs()[0])
	mustConnect(t, conns, b.Outputs()[0], a.Inputs()[0])

	cycle := query.FindCycle(m, nil)
	if len(cycle) == 0 {
		t.Fatal("expected a cycle to be found")
	}
}

func TestFindCycleReturnsNilOnAcyclicGraph(t *testing.T) {
	m := ir.NewModule("m")
	conns := m.Conns()

	a := stdlib.Identity("a", ir.Int(8))
	b := stdlib.Identity("b", ir.Int(8))
	mustConnect(t, conns, a.Outputs()[0], b.Inputs()[0])

	if cycle := query.FindCycle(m, nil); cycle != nil {
		t.Fatalf("expected no cycle, got %v", cycle)
	}
}

func TestFindCycleHonorsIgnore(t *testing.T) {
	m := ir.NewModule("m")
	conns := m.Conns()

	a := stdlib.Identity("a", ir.Int(8))
	reg := stdlib.Identity("reg", ir.Int(8))
	mustConnect(t, conns, a.Outputs()[0], reg.Inputs()[0])
	mustConnect(t, conns, reg.Outputs()[0], a.Inputs()[0])

	cycle := query.FindCycle(m, func(b *ir.Block) bool { return b == reg })
	if cycle != nil {
		t.Fatalf("expected cycle through reg to be ignored, got %v", cycle)
	}
}

func TestFindDominatorsWalksBackward(t *testing.T) {
	conns := ir.NewConnectionDB()
	a := stdlib.Identity("a", ir.Int(8))
	b := stdlib.Identity("b", ir.Int(8))
	c := stdlib.Identity("c", ir.Int(8))
	mustConnect(t, conns, a.Outputs()[0], b.Inputs()[0])
	mustConnect(t, conns, b.Outputs()[0], c.Inputs()[0])

	doms := query.FindDominators(conns, c)
	seen := map[*ir.Block]bool{}
	for _, b := range doms {
		seen[b] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("expected a and b among dominators of c, got %v", doms)
	}
}

func TestFindConsumersWalksForwardAndSkipsIgnored(t *testing.T) {
	m := ir.NewModule("m")
	conns := m.Conns()
	src := stdlib.Identity("src", ir.Int(8))
	mid := stdlib.Identity("mid", ir.Int(8))
	leaf := stdlib.Identity("leaf", ir.Int(8))
	mustConnect(t, conns, src.Outputs()[0], mid.Inputs()[0])
	mustConnect(t, conns, mid.Outputs()[0], leaf.Inputs()[0])

	all := query.FindConsumers(m, src.Outputs()[0], nil)
	if len(all) != 2 {
		t.Fatalf("expected 2 consumers, got %d", len(all))
	}

	filtered := query.FindConsumers(m, src.Outputs()[0], func(b *ir.Block) bool { return b == mid })
	if len(filtered) != 0 {
		t.Fatalf("expected ignore(mid) to prune leaf too, got %d", len(filtered))
	}
}

func TestFindConstantsPropagatesThroughFullyConstInputs(t *testing.T) {
	m := ir.NewModule("m")
	conns := m.Conns()

	c1 := stdlib.Constant("c1", ir.NewIntValue(8, 1))
	c2 := stdlib.Constant("c2", ir.NewIntValue(8, 2))
	join := stdlib.Join("j", []ir.Type{ir.Int(8), ir.Int(8)}, []string{"x", "y"})
	mustConnect(t, conns, c1.Outputs()[0], join.Inputs()[0])
	mustConnect(t, conns, c2.Outputs()[0], join.Inputs()[1])

	constBlocks, constPorts := query.FindConstants(m)
	if !constBlocks[join] {
		t.Error("expected join (all-const inputs) to be recognized as constant")
	}
	if !constPorts[join.Outputs()[0]] {
		t.Error("expected join's output port to be marked constant")
	}
}

func TestFindConstantsLeavesPartiallyConstUnmarked(t *testing.T) {
	m := ir.NewModule("m")
	conns := m.Conns()

	c1 := stdlib.Constant("c1", ir.NewIntValue(8, 1))
	nonConst := stdlib.Identity("nc", ir.Int(8))
	join := stdlib.Join("j", []ir.Type{ir.Int(8), ir.Int(8)}, []string{"x", "y"})
	mustConnect(t, conns, c1.Outputs()[0], join.Inputs()[0])
	mustConnect(t, conns, nonConst.Outputs()[0], join.Inputs()[1])

	constBlocks, _ := query.FindConstants(m)
	if constBlocks[join] {
		t.Error("join with one non-const input should not be marked constant")
	}
}

func TestFindDependenciesCombinesAND(t *testing.T) {
	m := ir.NewModule("m")
	conns := m.Conns()

	a := stdlib.Identity("a", ir.Int(8))
	b := stdlib.Identity("b", ir.Int(8))
	join := stdlib.Join("j", []ir.Type{ir.Int(8), ir.Int(8)}, []string{"x", "y"})
	sink := stdlib.Identity("sink", join.Outputs()[0].Type())
	mustConnect(t, conns, a.Outputs()[0], join.Inputs()[0])
	mustConnect(t, conns, b.Outputs()[0], join.Inputs()[1])
	mustConnect(t, conns, join.Outputs()[0], sink.Inputs()[0])

	deps, rule := query.FindDependencies(m, sink.Inputs()[0])
	if rule.InputType != ir.AND {
		t.Errorf("InputType = %v, want AND (join requires both inputs)", rule.InputType)
	}

	var got []string
	for _, ip := range rule.Inputs {
		got = append(got, ip.Name())
	}
	want := []string{join.Inputs()[0].Name(), join.Inputs()[1].Name()}
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("FindDependencies(sink) inputs mismatch (-want +got):\n%s", diff)
	}

	depSet := map[*ir.OutputPort]bool{}
	for _, op := range deps {
		depSet[op] = true
	}
	if !depSet[a.Outputs()[0]] || !depSet[b.Outputs()[0]] {
		t.Errorf("expected the frontier outputs of a and b among deps, got %d dep(s)", len(deps))
	}
}

func TestTokenOrderAnalysisSingleSource(t *testing.T) {
	conns := ir.NewConnectionDB()
	a := stdlib.Identity("a", ir.Int(8))
	b := stdlib.Identity("b", ir.Int(8))
	mustConnect(t, conns, a.Outputs()[0], b.Inputs()[0])

	result := query.TokenOrderAnalysis(conns, a.Outputs()[0], b.Inputs()[0])
	if !result.SingleSource {
		t.Error("expected a direct identity hop to be single-sourced")
	}
	if result.Cyclic {
		t.Error("expected no cycle on a linear chain")
	}
}

func TestCouldReorderTokensFalseOnDirectLink(t *testing.T) {
	conns := ir.NewConnectionDB()
	a := stdlib.Identity("a", ir.Int(8))
	b := stdlib.Identity("b", ir.Int(8))
	mustConnect(t, conns, a.Outputs()[0], b.Inputs()[0])

	if query.CouldReorderTokens(conns, a.Outputs()[0], b.Inputs()[0]) {
		t.Error("a direct, single-sourced link should not admit reordering")
	}
}
