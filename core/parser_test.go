package core_test

import (
	"bytes"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/sarchlab/pbj/core"
)

var _ = Describe("ParseLine", func() {
	It("should parse a plain continue", func() {
		inst, err := core.ParseLine("0 0x3 continue 99")

		Expect(err).NotTo(HaveOccurred())
		Expect(inst.Address).To(Equal(uint16(0)))
		Expect(inst.PatternText).To(Equal("0x3"))
		Expect(inst.Pattern).To(Equal(uint32(3)))
		Expect(inst.Op).To(Equal(core.Continue{}))
		Expect(inst.Delay).To(Equal(uint32(99)))
		Expect(inst.ZeroDelay).To(BeFalse())
	})

	It("should accept tabs and surrounding whitespace", func() {
		inst, err := core.ParseLine("  12\t0xFF   end_loop 2\r")

		Expect(err).NotTo(HaveOccurred())
		Expect(inst.Address).To(Equal(uint16(12)))
		Expect(inst.Pattern).To(Equal(uint32(0xFF)))
		Expect(inst.Op).To(Equal(core.EndLoop{}))
	})

	It("should accept a pattern without prefix", func() {
		inst, err := core.ParseLine("1 ffffff continue 2")

		Expect(err).NotTo(HaveOccurred())
		Expect(inst.Pattern).To(Equal(uint32(core.MaxPattern)))
	})

	DescribeTable("typed operands",
		func(line string, op core.Op) {
			inst, err := core.ParseLine(line)

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(op))
		},
		Entry("start_loop", "0 0x0 start_loop,4 10", core.StartLoop{Count: 4}),
		Entry("end_loop", "0 0x0 end_loop 10", core.EndLoop{}),
		Entry("call_sub", "0 0x0 call_sub,17 10", core.CallSub{Target: 17}),
		Entry("ret_sub", "0 0x0 ret_sub 10", core.RetSub{}),
		Entry("jump_if", "0 0x0 jump_if,in2_high,5 10",
			core.JumpIf{Cond: core.CondIn2High, Target: 5}),
		Entry("wait_for", "0 0x0 wait_for,mosi_low 10",
			core.WaitFor{Cond: core.CondMOSILow}),
	)

	It("should parse the zero-delay form on continue", func() {
		inst, err := core.ParseLine("3 0x1 continue 0,30")

		Expect(err).NotTo(HaveOccurred())
		Expect(inst.ZeroDelay).To(BeTrue())
		Expect(inst.Delay).To(Equal(uint32(30)))
	})

	DescribeTable("errors",
		func(line string, kind error, address int) {
			_, err := core.ParseLine(line)

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, kind)).To(BeTrue(), err.Error())

			var pe *core.ParseError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Address).To(Equal(address))
		},
		Entry("empty", "", core.ErrEmptyLine, -1),
		Entry("whitespace only", " \t ", core.ErrEmptyLine, -1),
		Entry("too few fields", "0 0x3 continue", core.ErrMalformedLine, -1),
		Entry("too many fields", "0 0x3 continue 9 9", core.ErrMalformedLine, -1),
		Entry("bad address", "a 0x3 continue 9", core.ErrInvalidNumber, -1),
		Entry("address too large", "1024 0x3 continue 9", core.ErrRange, -1),
		Entry("negative address", "-1 0x3 continue 9", core.ErrRange, -1),
		Entry("bad pattern", "0 0xZZ continue 9", core.ErrInvalidPattern, 0),
		Entry("pattern too wide", "0 0x1000000 continue 9", core.ErrRange, 0),
		Entry("negative pattern", "0 -0x1 continue 9", core.ErrRange, 0),
		Entry("unknown opcode", "0 0x0 halt 9", core.ErrInvalidOpcode, 0),
		Entry("missing operand", "0 0x0 start_loop 9", core.ErrInvalidOpcode, 0),
		Entry("extra operand", "0 0x0 ret_sub,1 9", core.ErrInvalidOpcode, 0),
		Entry("unknown condition", "0 0x0 wait_for,in5_low 9", core.ErrInvalidOpcode, 0),
		Entry("bad loop count", "0 0x0 start_loop,x 9", core.ErrInvalidNumber, 0),
		Entry("zero loop count", "0 0x0 start_loop,0 9", core.ErrRange, 0),
		Entry("target too large", "7 0x0 call_sub,2000 9", core.ErrRange, 7),
		Entry("bad delay", "0 0x0 continue x", core.ErrInvalidNumber, 0),
		Entry("short delay", "0 0x0 continue 1", core.ErrIllegalZeroDelay, 0),
		Entry("zero delay on loop", "0 0x0 end_loop 0,10", core.ErrZeroDelayNotAllowed, 0),
		Entry("nonzero marker", "0 0x0 continue 1,10", core.ErrIllegalZeroDelay, 0),
		Entry("short deferred delay", "0 0x0 continue 0,1", core.ErrIllegalZeroDelay, 0),
		Entry("three part delay", "0 0x0 continue 0,1,2", core.ErrMalformedLine, 0),
		Entry("delay too large", "0 0x0 continue 2147483648", core.ErrRange, 0),
	)

	It("should accept every address and reject the one past the end", func() {
		for a := 0; a <= core.MaxAddress; a++ {
			line := strconv.Itoa(a) + " 0xFFFFFF continue 2"
			_, err := core.ParseLine(line)
			Expect(err).NotTo(HaveOccurred())
		}

		_, err := core.ParseLine("1024 0x0 continue 2")
		Expect(errors.Is(err, core.ErrRange)).To(BeTrue())
	})

	It("should render an instruction back to source form", func() {
		for _, line := range []string{
			"0 0x3 continue 99",
			"4 0x10 jump_if,we_low,0 5",
			"9 0xABC continue 0,7",
		} {
			inst, err := core.ParseLine(line)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.String()).To(Equal(line))
		}
	})
})

var _ = Describe("ParseFile", func() {
	It("should build a program in insertion order", func() {
		src := "1 0x5 continue 30\n0 0x3 continue 99\n"

		prog, err := core.ParseFile("two.pbj", strings.NewReader(src))

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Len()).To(Equal(2))
		Expect(prog.Instructions[0].Address).To(Equal(uint16(1)))
		Expect(prog.Instructions[1].Address).To(Equal(uint16(0)))
		Expect(prog.HighestAddress).To(Equal(uint16(1)))
	})

	It("should report the line of the first error", func() {
		src := "0 0x3 continue 99\n\n1 0x5 continue 30\n"

		prog, err := core.ParseFile("blank.pbj", strings.NewReader(src))

		Expect(prog).To(BeNil())
		Expect(errors.Is(err, core.ErrEmptyLine)).To(BeTrue())
		Expect(err.Error()).To(HavePrefix("blank.pbj:2: "))
	})

	It("should reject a duplicate address", func() {
		src := "0 0x3 continue 99\n0 0x5 continue 30\n"

		_, err := core.ParseFile("dup.pbj", strings.NewReader(src))

		Expect(errors.Is(err, core.ErrDuplicateAddress)).To(BeTrue())

		var pe *core.ParseError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Line).To(Equal(2))
		Expect(pe.Address).To(Equal(0))
	})

	It("should report an over-long line as a malformed line", func() {
		src := "0 0x3 continue 99\n1 0x5 continue " + strings.Repeat("9", 70000) + "\n"

		prog, err := core.ParseFile("long.pbj", strings.NewReader(src))

		Expect(prog).To(BeNil())
		Expect(errors.Is(err, core.ErrMalformedLine)).To(BeTrue())

		var pe *core.ParseError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Source).To(Equal("long.pbj"))
		Expect(pe.Line).To(Equal(2))
	})

	It("should return an empty program for empty input", func() {
		prog, err := core.ParseFile("empty.pbj", strings.NewReader(""))

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.IsEmpty()).To(BeTrue())
	})
})

var _ = Describe("PrintProgram", func() {
	It("should list every instruction", func() {
		prog, err := core.ParseFile("p.pbj",
			strings.NewReader("0 0x1 start_loop,3 10\n1 0x800000 end_loop 10\n"))
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		core.PrintProgram(&buf, prog)

		Expect(buf.String()).To(ContainSubstring("start_loop,3"))
		Expect(buf.String()).To(ContainSubstring("1" + strings.Repeat(".", 23)))
	})
})
