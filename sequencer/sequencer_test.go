package sequencer_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/pbj/asm"
	"github.com/sarchlab/pbj/core"
	"github.com/sarchlab/pbj/sequencer"
)

func load(s *sequencer.Sequencer, src string) {
	prog, err := core.ParseFile("test.pbj", strings.NewReader(src))
	Expect(err).NotTo(HaveOccurred())
	Expect(s.LoadProgram(prog)).To(Succeed())
}

var _ = Describe("Sequencer", func() {
	var (
		engine sim.Engine
		seq    *sequencer.Sequencer
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		seq = sequencer.NewBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithMaxCycles(10000).
			Build("Seq")
	})

	It("should latch patterns and honor delays", func() {
		load(seq, "0 0x1 continue 3\n1 0x2 continue 2\n")

		Expect(sequencer.Run(engine, seq)).To(Succeed())

		Expect(seq.Status()).To(Equal(sequencer.StatusDone))
		Expect(seq.Patterns()).To(Equal([]uint32{0x1, 0x2}))
		Expect(seq.Events()[0].Cycle).To(Equal(uint64(1)))
		Expect(seq.Events()[1].Cycle).To(Equal(uint64(4)))
		Expect(seq.Outputs()).To(Equal(uint32(0x2)))
		Expect(seq.Cycles()).To(Equal(uint64(6)))
	})

	It("should repeat a loop body", func() {
		load(seq, "0 0x0 start_loop,3 2\n"+
			"1 0x1 continue 2\n"+
			"2 0x2 end_loop 2\n"+
			"3 0x3 continue 2\n")

		Expect(sequencer.Run(engine, seq)).To(Succeed())

		Expect(seq.Patterns()).To(Equal([]uint32{0, 1, 2, 1, 2, 1, 2, 3}))
	})

	It("should call and return from a subroutine", func() {
		load(seq, "0 0x1 call_sub,3 2\n"+
			"1 0x2 jump_if,now,4 2\n"+
			"2 0x7 continue 2\n"+
			"3 0x3 ret_sub 2\n"+
			"4 0x4 continue 2\n")

		Expect(sequencer.Run(engine, seq)).To(Succeed())

		Expect(seq.Patterns()).To(Equal([]uint32{1, 3, 2, 4}))
	})

	It("should branch on an input", func() {
		src := "0 0x1 jump_if,in1_high,2 2\n1 0x2 continue 2\n2 0x3 continue 2\n"
		load(seq, src)

		seq.SetInput(core.In1, true)
		Expect(sequencer.Run(engine, seq)).To(Succeed())
		Expect(seq.Patterns()).To(Equal([]uint32{1, 3}))

		engine = sim.NewSerialEngine()
		seq = sequencer.NewBuilder().WithEngine(engine).Build("Seq")
		load(seq, src)

		Expect(sequencer.Run(engine, seq)).To(Succeed())
		Expect(seq.Patterns()).To(Equal([]uint32{1, 2, 3}))
	})

	It("should never branch on never", func() {
		load(seq, "0 0x1 jump_if,never,2 2\n1 0x2 continue 2\n2 0x3 continue 2\n")

		Expect(sequencer.Run(engine, seq)).To(Succeed())
		Expect(seq.Patterns()).To(Equal([]uint32{1, 2, 3}))
	})

	It("should stall on wait_for until the input changes", func() {
		load(seq, "0 0x1 wait_for,in2_low 2\n1 0x2 continue 2\n")
		seq.SetInput(core.In2, true)

		Expect(sequencer.Run(engine, seq)).To(Succeed())
		Expect(seq.Status()).To(Equal(sequencer.StatusStalled))
		Expect(seq.PC()).To(Equal(uint16(0)))
		Expect(seq.Patterns()).To(Equal([]uint32{1}))

		seq.SetInput(core.In2, false)
		seq.Resume()
		Expect(engine.Run()).To(Succeed())

		Expect(seq.Status()).To(Equal(sequencer.StatusDone))
		Expect(seq.Patterns()).To(Equal([]uint32{1, 1, 2}))
	})

	It("should hand a zero-delay wait to the next instruction", func() {
		load(seq, "0 0x1 continue 0,5\n1 0x2 continue 2\n2 0x3 continue 2\n")

		Expect(sequencer.Run(engine, seq)).To(Succeed())

		ev := seq.Events()
		Expect(ev).To(HaveLen(3))
		Expect(ev[0].Cycle).To(Equal(uint64(1)))
		Expect(ev[1].Cycle).To(Equal(uint64(2)))
		Expect(ev[2].Cycle).To(Equal(uint64(7)))
	})

	It("should stop at the cycle limit", func() {
		engine = sim.NewSerialEngine()
		seq = sequencer.NewBuilder().
			WithEngine(engine).
			WithMaxCycles(50).
			Build("Seq")
		load(seq, "0 0x1 continue 2\n1 0x2 jump_if,now,0 2\n")

		Expect(sequencer.Run(engine, seq)).To(Succeed())

		Expect(seq.Status()).To(Equal(sequencer.StatusCycleLimit))
		Expect(seq.Cycles()).To(Equal(uint64(50)))
	})

	It("should fault on an unprogrammed address", func() {
		load(seq, "0 0x1 jump_if,now,5 2\n6 0x2 continue 2\n")

		err := sequencer.Run(engine, seq)

		Expect(errors.Is(err, sequencer.ErrNotProgrammed)).To(BeTrue())
		Expect(seq.Status()).To(Equal(sequencer.StatusFault))
	})

	It("should fault on a stray ret_sub", func() {
		load(seq, "0 0x1 ret_sub 2\n")

		err := sequencer.Run(engine, seq)

		Expect(errors.Is(err, sequencer.ErrStackUnderflow)).To(BeTrue())
	})

	It("should fault when the stack overflows", func() {
		load(seq, "0 0x1 call_sub,0 2\n")

		err := sequencer.Run(engine, seq)

		Expect(errors.Is(err, sequencer.ErrStackOverflow)).To(BeTrue())
		Expect(seq.Patterns()).To(HaveLen(sequencer.StackDepth + 1))
	})

	It("should be programmed through the loopback transport", func() {
		a, err := asm.Assemble("loop.pbj", strings.NewReader(
			"0 0x0 start_loop,2 2\n1 0xFFFFFF continue 0,4\n2 0x0 end_loop 2\n"))
		Expect(err).NotTo(HaveOccurred())

		lb := sequencer.NewLoopback(seq)
		for _, f := range a.Commands() {
			Expect(lb.Send(f)).To(Succeed())
		}
		Expect(lb.Close()).To(Succeed())
		Expect(seq.Programmed()).To(Equal(3))

		Expect(sequencer.Run(engine, seq)).To(Succeed())
		Expect(seq.Patterns()).To(Equal([]uint32{0, 0xFFFFFF, 0, 0xFFFFFF, 0}))

		Expect(lb.Send(a.Commands()[0])).NotTo(Succeed())
	})

	It("should reject a malformed frame", func() {
		lb := sequencer.NewLoopback(seq)

		Expect(lb.Send("PBJ0,1,0;")).NotTo(Succeed())
		Expect(seq.Programmed()).To(Equal(0))
	})

	It("should print the trace", func() {
		load(seq, "0 0x800001 continue 2\n")
		Expect(sequencer.Run(engine, seq)).To(Succeed())

		var buf bytes.Buffer
		sequencer.PrintTrace(&buf, seq.Events())

		Expect(buf.String()).To(ContainSubstring("0x800001"))
		Expect(buf.String()).To(ContainSubstring("1" + strings.Repeat(".", 22) + "1"))
	})

	It("should clear the memory", func() {
		load(seq, "0 0x1 continue 2\n")
		seq.Clear()

		Expect(seq.Programmed()).To(Equal(0))
		Expect(sequencer.Run(engine, seq)).To(Succeed())
		Expect(seq.Status()).To(Equal(sequencer.StatusDone))
		Expect(seq.Patterns()).To(BeEmpty())
	})
})
