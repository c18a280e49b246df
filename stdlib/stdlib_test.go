package stdlib_test

import (
	"testing"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/stdlib"
)

func TestConstructorsSetExpectedTypeNameAndPortCounts(t *testing.T) {
	cases := []struct {
		name      string
		build     func() (*ir.Block, error)
		wantType  string
		wantIns   int
		wantOuts  int
		refinable bool
	}{
		{"Identity", func() (*ir.Block, error) { return stdlib.Identity("x", ir.Int(8)), nil }, "Identity", 1, 1, false},
		{"NullSink", func() (*ir.Block, error) { return stdlib.NullSink("x", ir.Int(8)), nil }, "NullSink", 1, 0, false},
		{"Never", func() (*ir.Block, error) { return stdlib.Never("x", ir.Int(8)), nil }, "Never", 0, 1, false},
		{"Once", func() (*ir.Block, error) { return stdlib.Once("x", ir.Int(8)), nil }, "Once", 0, 1, false},
		{"Fork", func() (*ir.Block, error) { return stdlib.Fork("x", ir.Int(8), 3, false), nil }, "Fork", 1, 3, false},
		{"Join", func() (*ir.Block, error) {
			return stdlib.Join("x", []ir.Type{ir.Int(8), ir.Int(16)}, []string{"a", "b"}), nil
		}, "Join", 2, 1, false},
		{"Select", func() (*ir.Block, error) { return stdlib.Select("x", ir.Int(8), 4), nil }, "Select", 4, 1, false},
		{"Wait", func() (*ir.Block, error) { return stdlib.Wait("x", ir.Int(8), 2), nil }, "Wait", 3, 1, false},
		{"Multiplexer", func() (*ir.Block, error) { return stdlib.Multiplexer("x", ir.Int(8), 2, 4), nil }, "Multiplexer", 1, 1, false},
		{"Router", func() (*ir.Block, error) { return stdlib.Router("x", ir.Int(8), 2, 4), nil }, "Router", 1, 4, false},
		{"Register", func() (*ir.Block, error) { return stdlib.Register("x", ir.Int(8)), nil }, "Register", 2, 2, true},
		{"FiniteArray", func() (*ir.Block, error) { return stdlib.FiniteArray("x", ir.Int(8), 16), nil }, "FiniteArray", 2, 2, false},
		{"RTLReg", func() (*ir.Block, error) { return stdlib.RTLReg("x", ir.Int(8), 2, 3), nil }, "RTLReg", 5, 3, false},
		{"PipelineStageController", func() (*ir.Block, error) { return stdlib.PipelineStageController("x"), nil }, "PipelineStageController", -1, -1, false},
		{"Split", func() (*ir.Block, error) { return stdlib.Split("x", ir.Struct(ir.Int(8), ir.Int(16))) }, "Split", 1, 2, true},
		{"Extract", func() (*ir.Block, error) { return stdlib.Extract("x", ir.Struct(ir.Int(8), ir.Int(16)), 1) }, "Extract", 1, 1, false},
		{"Cast", func() (*ir.Block, error) { return stdlib.Cast("x", ir.Int(8), ir.Int(8)) }, "Cast", 1, 1, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b, err := c.build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if b.TypeName() != c.wantType {
				t.Errorf("TypeName() = %q, want %q", b.TypeName(), c.wantType)
			}
			if c.wantIns >= 0 && len(b.Inputs()) != c.wantIns {
				t.Errorf("len(Inputs()) = %d, want %d", len(b.Inputs()), c.wantIns)
			}
			if c.wantOuts >= 0 && len(b.Outputs()) != c.wantOuts {
				t.Errorf("len(Outputs()) = %d, want %d", len(b.Outputs()), c.wantOuts)
			}
			impl, ok := b.Impl().(interface{ Refinable() bool })
			if !ok {
				t.Fatal("impl does not expose Refinable()")
			}
			if impl.Refinable() != c.refinable {
				t.Errorf("Refinable() = %v, want %v", impl.Refinable(), c.refinable)
			}
		})
	}
}

func TestCastRejectsBitWidthMismatch(t *testing.T) {
	if _, err := stdlib.Cast("x", ir.Int(8), ir.Int(16)); err == nil {
		t.Fatal("expected an error casting between different bit-widths")
	}
}

func TestExtractRejectsOutOfRangeIndex(t *testing.T) {
	if _, err := stdlib.Extract("x", ir.Struct(ir.Int(8), ir.Int(16)), 5); err == nil {
		t.Fatal("expected an error for an out-of-range extract path")
	}
}

func TestExtractRejectsScalarInput(t *testing.T) {
	if _, err := stdlib.Extract("x", ir.Int(8), 0); err == nil {
		t.Fatal("expected an error extracting from a scalar type")
	}
}

func TestSplitRejectsScalarInput(t *testing.T) {
	if _, err := stdlib.Split("x", ir.Int(8)); err == nil {
		t.Fatal("expected an error splitting a scalar type")
	}
}

func TestConstantRoundTripsItsValue(t *testing.T) {
	v := ir.NewIntValue(8, 42)
	b := stdlib.Constant("c", v)

	got, ok := stdlib.ConstantValue(b)
	if !ok {
		t.Fatal("expected ConstantValue to recognize a Constant block")
	}
	if !got.Equal(v) {
		t.Errorf("ConstantValue = %v, want %v", got, v)
	}

	if _, ok := stdlib.ConstantValue(stdlib.Identity("id", ir.Int(8))); ok {
		t.Error("ConstantValue should reject a non-Constant block")
	}
}

func TestIsForkReportsVirtuality(t *testing.T) {
	real := stdlib.Fork("f", ir.Int(8), 2, false)
	virt := stdlib.Fork("vf", ir.Int(8), 2, true)

	if v, ok := stdlib.IsFork(real); !ok || v {
		t.Errorf("IsFork(real fork) = (%v, %v), want (false, true)", v, ok)
	}
	if v, ok := stdlib.IsFork(virt); !ok || !v {
		t.Errorf("IsFork(virtual fork) = (%v, %v), want (true, true)", v, ok)
	}
	if _, ok := stdlib.IsFork(stdlib.Identity("id", ir.Int(8))); ok {
		t.Error("IsFork should reject a non-Fork block")
	}
}

func TestRegisterRefinerLowersToRTLRegAndWait(t *testing.T) {
	conns := ir.NewConnectionDB()

	writer := stdlib.Identity("writer", ir.Int(8))
	reader := stdlib.Never("reader", ir.Void())
	reg := stdlib.Register("reg", ir.Int(8))
	sink := stdlib.Identity("sink", ir.Int(8))

	if err := conns.Connect(writer.Outputs()[0], reg.Inputs()[0]); err != nil {
		t.Fatalf("Connect write: %v", err)
	}
	if err := conns.Connect(reader.Outputs()[0], reg.Inputs()[1]); err != nil {
		t.Fatalf("Connect read_req: %v", err)
	}
	if err := conns.Connect(reg.Outputs()[1], sink.Inputs()[0]); err != nil {
		t.Fatalf("Connect read_resp: %v", err)
	}

	changed, err := stdlib.RegisterRefiner{}.Refine(reg, conns)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if !changed {
		t.Fatal("expected RegisterRefiner to report a change")
	}

	src, ok := conns.FindSource(sink.Inputs()[0])
	if !ok {
		t.Fatal("expected sink to still have a driver after refinement")
	}
	if src.Owner().TypeName() != "Wait" {
		t.Errorf("sink driven by %s, want Wait", src.Owner().TypeName())
	}
	if conns.UseCount(reg) != 0 {
		t.Error("expected the original Register to be destroyed")
	}
}

func TestSplitRefinerLowersToForkAndExtracts(t *testing.T) {
	conns := ir.NewConnectionDB()
	in := ir.Struct(ir.Int(8), ir.Int(16), ir.Int(8))

	src := stdlib.Identity("src", in)
	sp, err := stdlib.Split("sp", in)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	sink0 := stdlib.Identity("sink0", ir.Int(8))
	sink2 := stdlib.Identity("sink2", ir.Int(8))

	if err := conns.Connect(src.Outputs()[0], sp.Inputs()[0]); err != nil {
		t.Fatalf("Connect in: %v", err)
	}
	if err := conns.Connect(sp.Outputs()[0], sink0.Inputs()[0]); err != nil {
		t.Fatalf("Connect out0: %v", err)
	}
	if err := conns.Connect(sp.Outputs()[2], sink2.Inputs()[0]); err != nil {
		t.Fatalf("Connect out2: %v", err)
	}

	changed, err := stdlib.SplitRefiner{}.Refine(sp, conns)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if !changed {
		t.Fatal("expected SplitRefiner to report a change")
	}
	if conns.UseCount(sp) != 0 {
		t.Error("expected the Split to be destroyed")
	}

	for _, sink := range []*ir.Block{sink0, sink2} {
		drv, ok := conns.FindSource(sink.Inputs()[0])
		if !ok {
			t.Fatalf("%s lost its driver", sink.Name())
		}
		if drv.Owner().TypeName() != "Extract" {
			t.Errorf("%s driven by %s, want Extract", sink.Name(), drv.Owner().TypeName())
		}
	}

	forkSinks := conns.FindSinks(src.Outputs()[0])
	if len(forkSinks) != 1 || forkSinks[0].Owner().TypeName() != "Fork" {
		t.Fatalf("expected the Split's source to now feed a Fork, got %d sink(s)", len(forkSinks))
	}
	if got := len(conns.FindSinks(forkSinks[0].Owner().Outputs()[1])); got != 1 {
		t.Errorf("expected the unused component's Fork branch to still feed its Extract, got %d", got)
	}
}

func TestTaggerRefinerLowersToExplicitTagRouting(t *testing.T) {
	req, resp := ir.Int(8), ir.Int(16)
	const n = 2
	selW := stdlib.TagWidth(n)
	conns := ir.NewConnectionDB()

	client := stdlib.Identity("client", ir.Struct(ir.Int(selW), req))
	tg := stdlib.Tagger("tg", req, resp, selW, n)
	servers := make([]*ir.Block, n)
	resps := make([]*ir.Block, n)
	for i := 0; i < n; i++ {
		servers[i] = stdlib.Identity("server", req)
		resps[i] = stdlib.Identity("resp", resp)
	}
	clientSink := stdlib.Identity("clientSink", resp)

	if err := conns.Connect(client.Outputs()[0], tg.Inputs()[0]); err != nil {
		t.Fatalf("Connect client req: %v", err)
	}
	for i := 0; i < n; i++ {
		if err := conns.Connect(tg.Outputs()[i], servers[i].Inputs()[0]); err != nil {
			t.Fatalf("Connect server req %d: %v", i, err)
		}
		if err := conns.Connect(resps[i].Outputs()[0], tg.Inputs()[i+1]); err != nil {
			t.Fatalf("Connect server resp %d: %v", i, err)
		}
	}
	if err := conns.Connect(tg.Outputs()[n], clientSink.Inputs()[0]); err != nil {
		t.Fatalf("Connect client resp: %v", err)
	}

	changed, err := stdlib.TaggerRefiner{}.Refine(tg, conns)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if !changed {
		t.Fatal("expected TaggerRefiner to report a change")
	}
	if conns.UseCount(tg) != 0 {
		t.Error("expected the Tagger to be destroyed")
	}

	for i := 0; i < n; i++ {
		drv, ok := conns.FindSource(servers[i].Inputs()[0])
		if !ok || drv.Owner().TypeName() != "Router" {
			t.Errorf("server %d request driven by %v, want a Router output", i, drv)
		}
	}

	drv, ok := conns.FindSource(clientSink.Inputs()[0])
	if !ok || drv.Owner().TypeName() != "Extract" {
		t.Fatalf("client response driven by %v, want the untagging Extract", drv)
	}
	selIn, ok := conns.FindSource(drv.Owner().Inputs()[0])
	if !ok || selIn.Owner().TypeName() != "Select" {
		t.Fatalf("untag Extract driven by %v, want the Select merge", selIn)
	}
	for i, ip := range selIn.Owner().Inputs() {
		jn, ok := conns.FindSource(ip)
		if !ok || jn.Owner().TypeName() != "Join" {
			t.Errorf("Select input %d driven by %v, want a tag Join", i, jn)
			continue
		}
		tag, ok := conns.FindSource(jn.Owner().Inputs()[0])
		if !ok || tag.Owner().TypeName() != "Constant" {
			t.Errorf("Join %d's tag driven by %v, want a Constant server id", i, tag)
		}
	}
}

func TestInterfaceMultiplexerRefinerProducesATagger(t *testing.T) {
	req, resp := ir.Int(8), ir.Int(16)
	const n = 3
	selW := stdlib.TagWidth(n)
	conns := ir.NewConnectionDB()

	client := stdlib.Identity("client", ir.Struct(ir.Int(selW), req))
	im := stdlib.InterfaceMultiplexer("im", req, resp, selW, n)
	sink := stdlib.Identity("sink", req)

	if im.TypeName() != "InterfaceMultiplexer" {
		t.Fatalf("TypeName() = %q, want InterfaceMultiplexer", im.TypeName())
	}
	if !(stdlib.InterfaceMultiplexerRefiner{}).Handles(im) {
		t.Fatal("expected InterfaceMultiplexerRefiner to handle an InterfaceMultiplexer")
	}

	if err := conns.Connect(client.Outputs()[0], im.Inputs()[0]); err != nil {
		t.Fatalf("Connect client req: %v", err)
	}
	if err := conns.Connect(im.Outputs()[0], sink.Inputs()[0]); err != nil {
		t.Fatalf("Connect server req: %v", err)
	}

	changed, err := stdlib.InterfaceMultiplexerRefiner{}.Refine(im, conns)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if !changed {
		t.Fatal("expected InterfaceMultiplexerRefiner to report a change")
	}

	drv, ok := conns.FindSource(sink.Inputs()[0])
	if !ok || drv.Owner().TypeName() != "Tagger" {
		t.Fatalf("server request driven by %v, want a Tagger", drv)
	}
}

func TestSparseMultiplexerRefinerDensifiesWithNeverFill(t *testing.T) {
	conns := ir.NewConnectionDB()
	el := ir.Int(8)

	selSrc := stdlib.Identity("sel", ir.Int(2))
	v0 := stdlib.Identity("v0", el)
	v3 := stdlib.Identity("v3", el)
	sm, err := stdlib.SparseMultiplexer("sm", el, 2, []int64{0, 3}, nil)
	if err != nil {
		t.Fatalf("SparseMultiplexer: %v", err)
	}
	sink := stdlib.Identity("sink", el)

	if err := conns.Connect(selSrc.Outputs()[0], sm.Inputs()[0]); err != nil {
		t.Fatalf("Connect sel: %v", err)
	}
	if err := conns.Connect(v0.Outputs()[0], sm.Inputs()[1]); err != nil {
		t.Fatalf("Connect v0: %v", err)
	}
	if err := conns.Connect(v3.Outputs()[0], sm.Inputs()[2]); err != nil {
		t.Fatalf("Connect v3: %v", err)
	}
	if err := conns.Connect(sm.Outputs()[0], sink.Inputs()[0]); err != nil {
		t.Fatalf("Connect out: %v", err)
	}

	changed, err := stdlib.SparseMultiplexerRefiner{}.Refine(sm, conns)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if !changed {
		t.Fatal("expected SparseMultiplexerRefiner to report a change")
	}
	if conns.UseCount(sm) != 0 {
		t.Error("expected the SparseMultiplexer to be destroyed")
	}

	mux, ok := conns.FindSource(sink.Inputs()[0])
	if !ok || mux.Owner().TypeName() != "Multiplexer" {
		t.Fatalf("sink driven by %v, want the dense Multiplexer", mux)
	}
	jnOut, ok := conns.FindSource(mux.Owner().Inputs()[0])
	if !ok || jnOut.Owner().TypeName() != "Join" {
		t.Fatalf("Multiplexer fed by %v, want the assembling Join", jnOut)
	}

	jn := jnOut.Owner()
	if got := len(jn.Inputs()); got != 5 {
		t.Fatalf("Join has %d inputs, want sel + 4 dense slots", got)
	}
	wantDrivers := []string{"Identity", "Identity", "Never", "Never", "Identity"}
	for i, want := range wantDrivers {
		drv, ok := conns.FindSource(jn.Inputs()[i])
		if !ok {
			t.Fatalf("Join input %d has no driver", i)
		}
		if drv.Owner().TypeName() != want {
			t.Errorf("Join input %d driven by %s, want %s", i, drv.Owner().TypeName(), want)
		}
	}
}

func TestExtractPathRoundTrips(t *testing.T) {
	b, err := stdlib.Extract("x", ir.Struct(ir.Int(8), ir.Struct(ir.Int(4), ir.Int(4))), 1, 0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	path, ok := stdlib.ExtractPath(b)
	if !ok {
		t.Fatal("expected ExtractPath to recognize an Extract block")
	}
	if len(path) != 2 || path[0] != 1 || path[1] != 0 {
		t.Errorf("ExtractPath = %v, want [1 0]", path)
	}
}
