package refine_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/refine"
	"github.com/sarchlab/synthflow/stdlib"
)

var _ = Describe("PriorityCollection", func() {
	It("matches and caches refiners by a block's TypeName", func() {
		c := refine.NewPriorityCollection(stdlib.SplitRefiner{})

		b, err := stdlib.Split("s", ir.Struct(ir.Int(8), ir.Int(8)))
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Matching(b)).To(HaveLen(1))
		// second call exercises the cache path; same answer either way.
		Expect(c.Matching(b)).To(HaveLen(1))

		id := stdlib.Identity("id", ir.Int(8))
		Expect(c.Matching(id)).To(BeEmpty())
	})
})

var _ = Describe("BaseLibraryStopCondition", func() {
	It("stops only at the named classes", func() {
		stop := refine.NewBaseLibraryStopCondition("Identity", "NullSink")

		id := stdlib.Identity("id", ir.Int(8))
		sink := stdlib.NullSink("sink", ir.Int(8))
		split, err := stdlib.Split("s", ir.Struct(ir.Int(8), ir.Int(8)))
		Expect(err).NotTo(HaveOccurred())

		Expect(stop.Stop(id)).To(BeTrue())
		Expect(stop.Stop(sink)).To(BeTrue())
		Expect(stop.Stop(split)).To(BeFalse())

		Expect(refine.Unrefined(stop, []*ir.Block{id, sink, split})).To(ConsistOf(split))
	})
})

var _ = Describe("Engine", func() {
	It("lowers a Split into a Fork and per-component Extracts", func() {
		m := ir.NewModule("m")
		conns := m.Conns()

		src := stdlib.Identity("src", ir.Struct(ir.Int(8), ir.Int(16)))
		split, err := stdlib.Split("sp", ir.Struct(ir.Int(8), ir.Int(16)))
		Expect(err).NotTo(HaveOccurred())
		sinkA := stdlib.Identity("sinkA", ir.Int(8))
		sinkB := stdlib.Identity("sinkB", ir.Int(16))

		Expect(conns.Connect(src.Outputs()[0], split.Inputs()[0])).To(Succeed())
		Expect(conns.Connect(split.Outputs()[0], sinkA.Inputs()[0])).To(Succeed())
		Expect(conns.Connect(split.Outputs()[1], sinkB.Inputs()[0])).To(Succeed())

		stop := refine.NewBaseLibraryStopCondition("Identity", "Fork", "Extract")
		engine := refine.NewEngine(refine.NewPriorityCollection(stdlib.SplitRefiner{}), stop)

		report, err := engine.Run(m)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Unrefined).To(BeEmpty())

		typeNames := map[string]int{}
		for _, b := range m.Blocks() {
			if conns.UseCount(b) > 0 {
				typeNames[b.TypeName()]++
			}
		}
		Expect(typeNames["Fork"]).To(Equal(1))
		Expect(typeNames["Extract"]).To(Equal(2))
		Expect(typeNames["Split"]).To(Equal(0))

		srcA, ok := conns.FindSource(sinkA.Inputs()[0])
		Expect(ok).To(BeTrue())
		Expect(srcA.Owner().TypeName()).To(Equal("Extract"))
	})

	It("stops after MaxPasses even if a refiner keeps reporting progress", func() {
		m := ir.NewModule("m")
		conns := m.Conns()
		id := stdlib.Identity("id", ir.Int(8))
		sink := stdlib.Identity("sink", ir.Int(8))
		Expect(conns.Connect(id.Outputs()[0], sink.Inputs()[0])).To(Succeed())

		stop := refine.NewBaseLibraryStopCondition("sink-only-this-never-matches")
		engine := refine.NewEngine(refine.NewPriorityCollection(alwaysProgressRefiner{}), stop)
		engine.MaxPasses = 3

		report, err := engine.Run(m)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Passes).To(Equal(3))
		Expect(report.Unrefined).NotTo(BeEmpty())
	})
})

// alwaysProgressRefiner claims to handle and successfully refine every
// block without ever changing conns, simulating a refiner that can never
// reach the stop condition — used to exercise Engine.MaxPasses.
type alwaysProgressRefiner struct{}

func (alwaysProgressRefiner) Handles(b *ir.Block) bool { return true }
func (alwaysProgressRefiner) Refine(b *ir.Block, conns *ir.ConnectionDB) (bool, error) {
	return true, nil
}
