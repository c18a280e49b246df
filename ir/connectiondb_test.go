package ir_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/synthflow/ir"
	"github.com/sarchlab/synthflow/stdlib"
)

var _ = Describe("ConnectionDB", func() {
	var db *ir.ConnectionDB

	BeforeEach(func() {
		db = ir.NewConnectionDB()
	})

	It("connects a compatible output to an input", func() {
		src := stdlib.Constant("c", ir.NewIntValue(8, 42))
		sink := stdlib.Identity("id", ir.Int(8))

		Expect(db.Connect(src.Outputs()[0], sink.Inputs()[0])).To(Succeed())
		op, ok := db.FindSource(sink.Inputs()[0])
		Expect(ok).To(BeTrue())
		Expect(op).To(Equal(src.Outputs()[0]))
		Expect(db.FindSinks(src.Outputs()[0])).To(ConsistOf(sink.Inputs()[0]))
	})

	It("rejects a type mismatch", func() {
		src := stdlib.Identity("src", ir.Int(8))
		sink := stdlib.Identity("sink", ir.Int(16))

		err := db.Connect(src.Outputs()[0], sink.Inputs()[0])
		Expect(err).To(HaveOccurred())
	})

	It("rejects connecting an input that already has a source", func() {
		a := stdlib.Identity("a", ir.Int(8))
		b := stdlib.Identity("b", ir.Int(8))
		sink := stdlib.Identity("sink", ir.Int(8))

		Expect(db.Connect(a.Outputs()[0], sink.Inputs()[0])).To(Succeed())
		err := db.Connect(b.Outputs()[0], sink.Inputs()[0])
		Expect(err).To(HaveOccurred())
	})

	It("tracks use counts across Connect and Disconnect", func() {
		src := stdlib.Identity("src", ir.Int(8))
		sink := stdlib.Identity("sink", ir.Int(8))

		Expect(db.Connect(src.Outputs()[0], sink.Inputs()[0])).To(Succeed())
		Expect(db.UseCount(src)).To(Equal(1))
		Expect(db.UseCount(sink)).To(Equal(1))

		db.Disconnect(src.Outputs()[0], sink.Inputs()[0])
		Expect(db.UseCount(src)).To(Equal(0))
		Expect(db.UseCount(sink)).To(Equal(0))
	})

	It("queues RemapInput when the target has no current source yet", func() {
		src := stdlib.Identity("src", ir.Int(8))
		oldSink := stdlib.Identity("old", ir.Int(8))
		newSink := stdlib.Identity("new", ir.Int(8))

		Expect(db.RemapInput(oldSink.Inputs()[0], []*ir.InputPort{newSink.Inputs()[0]})).To(Succeed())
		Expect(db.Connect(src.Outputs()[0], oldSink.Inputs()[0])).To(Succeed())

		_, hasOldSource := db.FindSource(oldSink.Inputs()[0])
		Expect(hasOldSource).To(BeFalse())
		op, ok := db.FindSource(newSink.Inputs()[0])
		Expect(ok).To(BeTrue())
		Expect(op).To(Equal(src.Outputs()[0]))
	})

	It("applies RemapInput immediately when the target already has a source", func() {
		src := stdlib.Identity("src", ir.Int(8))
		oldSink := stdlib.Identity("old", ir.Int(8))
		newSink := stdlib.Identity("new", ir.Int(8))

		Expect(db.Connect(src.Outputs()[0], oldSink.Inputs()[0])).To(Succeed())
		Expect(db.RemapInput(oldSink.Inputs()[0], []*ir.InputPort{newSink.Inputs()[0]})).To(Succeed())

		_, hasOldSource := db.FindSource(oldSink.Inputs()[0])
		Expect(hasOldSource).To(BeFalse())
		op, ok := db.FindSource(newSink.Inputs()[0])
		Expect(ok).To(BeTrue())
		Expect(op).To(Equal(src.Outputs()[0]))
	})

	It("hides connections touching a blacklisted block", func() {
		src := stdlib.Identity("src", ir.Int(8))
		sink := stdlib.Identity("sink", ir.Int(8))
		db.Blacklist(src)

		Expect(db.Connect(src.Outputs()[0], sink.Inputs()[0])).To(Succeed())
		Expect(db.IsHidden(src.Outputs()[0], sink.Inputs()[0])).To(BeTrue())
		Expect(db.FindAllBlocks(nil)).NotTo(ContainElement(src))
	})

	It("destroys a block by disconnecting every incident port", func() {
		a := stdlib.Identity("a", ir.Int(8))
		b := stdlib.Identity("b", ir.Int(8))
		mid := stdlib.Identity("mid", ir.Int(8))

		Expect(db.Connect(a.Outputs()[0], mid.Inputs()[0])).To(Succeed())
		Expect(db.Connect(mid.Outputs()[0], b.Inputs()[0])).To(Succeed())

		db.DestroyBlock(mid)

		Expect(db.UseCount(mid)).To(Equal(0))
		_, ok := db.FindSource(b.Inputs()[0])
		Expect(ok).To(BeFalse())
	})

	It("bumps the change counter on every mutation", func() {
		src := stdlib.Identity("src", ir.Int(8))
		sink := stdlib.Identity("sink", ir.Int(8))

		before := db.ChangeCounter()
		Expect(db.Connect(src.Outputs()[0], sink.Inputs()[0])).To(Succeed())
		Expect(db.ChangeCounter()).To(BeNumerically(">", before))
	})
})
