package emu

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/slowlang/henlo/compiler/asm/henlo"
)

var _ = Describe("Machine", func() {
	var m *Machine

	run := func(words ...uint16) {
		var code []byte
		for _, w := range words {
			code = henlo.AppendWord(code, w)
		}

		Expect(m.Load(0, code)).To(Succeed())
		Expect(m.Run(uint16(len(code)), 100)).To(Succeed())
	}

	BeforeEach(func() {
		m = New(0x1000)
		m.Regs[henlo.SP] = 0x1000
	})

	Context("Arithmetic", func() {
		It("should add registers", func() {
			m.Regs[henlo.R1] = 5
			m.Regs[henlo.R2] = 7
			run(henlo.EncodeR3F(henlo.ADD, henlo.R0, henlo.R1, henlo.R2, 0))
			Expect(m.Regs[henlo.R0]).To(Equal(uint16(12)))
			Expect(m.Ind).To(BeFalse())
		})

		It("should sign extend addi immediates", func() {
			m.Regs[henlo.R1] = 10
			run(henlo.EncodeRI(henlo.ADDI, henlo.R1, -3))
			Expect(m.Regs[henlo.R1]).To(Equal(uint16(7)))
		})

		It("should not sign extend muli immediates", func() {
			m.Regs[henlo.ACC] = 3
			run(henlo.EncodeRI(henlo.MULI, henlo.ACC, 256))
			Expect(m.Regs[henlo.ACC]).To(Equal(uint16(768)))
		})

		It("should negate", func() {
			m.Regs[henlo.R2] = 1
			run(henlo.EncodeR2F(henlo.NEG, henlo.R1, henlo.R2, false))
			Expect(m.Regs[henlo.R1]).To(Equal(uint16(0xffff)))
		})

		It("should zero a register with self xor", func() {
			m.Regs[henlo.ACC] = 0xbeef
			run(henlo.EncodeR3(henlo.XOR, henlo.ACC, henlo.ACC, henlo.ACC))
			Expect(m.Regs[henlo.ACC]).To(BeZero())
		})
	})

	Context("Indicator", func() {
		It("should capture the sign of a signed sum", func() {
			m.Regs[henlo.R1] = 5
			m.Regs[henlo.R2] = uint16(0x10000 - 7)
			run(
				henlo.EncodeR3F(henlo.ADD, henlo.CMP, henlo.R1, henlo.R2, henlo.FlagCapture|henlo.FlagSigned),
				henlo.EncodeR2F(henlo.SOV, henlo.CMP, 0, false),
			)
			Expect(m.Regs[henlo.CMP]).To(Equal(uint16(1)))
		})

		It("should capture unsigned carry", func() {
			m.Regs[henlo.R1] = 1
			m.Regs[henlo.R2] = 0xffff
			run(
				henlo.EncodeR3F(henlo.ADD, henlo.CMP, henlo.R1, henlo.R2, henlo.FlagCapture),
				henlo.EncodeR2F(henlo.SOV, henlo.R0, 0, false),
			)
			Expect(m.Regs[henlo.CMP]).To(BeZero())
			Expect(m.Regs[henlo.R0]).To(Equal(uint16(1)))
		})

		It("should keep the indicator on plain adds", func() {
			m.Ind = true
			run(henlo.EncodeR3F(henlo.ADD, henlo.R0, henlo.R1, henlo.R2, 0))
			Expect(m.Ind).To(BeTrue())
		})
	})

	Context("Memory", func() {
		It("should store and load words big-endian", func() {
			m.Regs[henlo.R1] = 0x1234
			m.Regs[henlo.ACC] = 0x100
			run(
				henlo.EncodeR2F(henlo.ST, henlo.R1, henlo.ACC, false),
				henlo.EncodeR2F(henlo.LD, henlo.R2, henlo.ACC, false),
			)
			Expect(m.Mem[0x100:0x102]).To(Equal([]byte{0x12, 0x34}))
			Expect(m.Regs[henlo.R2]).To(Equal(uint16(0x1234)))
		})

		It("should load bytes zero extended", func() {
			m.Mem[0x200] = 0xff
			m.Regs[henlo.ACC] = 0x200
			run(henlo.EncodeR2F(henlo.LD, henlo.R0, henlo.ACC, true))
			Expect(m.Regs[henlo.R0]).To(Equal(uint16(0xff)))
		})

		It("should fail outside of memory", func() {
			m.Regs[henlo.ACC] = 0xfff0
			code := henlo.AppendWord(nil, henlo.EncodeR2F(henlo.LD, henlo.R0, henlo.ACC, false))
			Expect(m.Load(0, code)).To(Succeed())
			Expect(m.Step()).NotTo(Succeed())
		})
	})

	Context("Control flow", func() {
		It("should branch relative to the branch instruction", func() {
			m.Regs[henlo.ACC] = 3
			code := henlo.AppendWord(nil, henlo.EncodeR2F(henlo.BR, henlo.R1, henlo.ACC, false))
			Expect(m.Load(0x10, code)).To(Succeed())
			m.Regs[henlo.PC] = 0x10
			Expect(m.Step()).To(Succeed())
			Expect(m.PC()).To(Equal(uint16(0x16)))
		})

		It("should fall through when the branch is not taken", func() {
			m.Regs[henlo.R1] = 1
			m.Regs[henlo.ACC] = 3
			code := henlo.AppendWord(nil, henlo.EncodeR2F(henlo.BR, henlo.R1, henlo.ACC, false))
			Expect(m.Load(0, code)).To(Succeed())
			Expect(m.Step()).To(Succeed())
			Expect(m.PC()).To(Equal(uint16(2)))
		})

		It("should jump backwards", func() {
			m.Regs[henlo.ACC] = 0xfffe
			code := henlo.AppendWord(nil, henlo.EncodeR2F(henlo.JMP, henlo.ACC, 0, false))
			Expect(m.Load(0x20, code)).To(Succeed())
			m.Regs[henlo.PC] = 0x20
			Expect(m.Step()).To(Succeed())
			Expect(m.PC()).To(Equal(uint16(0x1c)))
		})

		It("should jump absolute and through pc writes", func() {
			m.Regs[henlo.ACC] = 0x40
			code := henlo.AppendWord(nil, henlo.EncodeR2F(henlo.JMP, henlo.ACC, 0, true))
			Expect(m.Load(0, code)).To(Succeed())
			Expect(m.Step()).To(Succeed())
			Expect(m.PC()).To(Equal(uint16(0x40)))

			code = henlo.AppendWord(nil, henlo.EncodeR2F(henlo.MOV, henlo.PC, henlo.R1, false))
			m.Regs[henlo.R1] = 0x80
			Expect(m.Load(0x40, code)).To(Succeed())
			Expect(m.Step()).To(Succeed())
			Expect(m.PC()).To(Equal(uint16(0x80)))
		})

		It("should read pc as the current instruction address", func() {
			code := henlo.AppendWord(nil, henlo.EncodeR2F(henlo.MOV, henlo.CMP, henlo.PC, false))
			Expect(m.Load(0x30, code)).To(Succeed())
			m.Regs[henlo.PC] = 0x30
			Expect(m.Step()).To(Succeed())
			Expect(m.Regs[henlo.CMP]).To(Equal(uint16(0x30)))
		})

		It("should stop at the step limit", func() {
			m.Regs[henlo.ACC] = 0
			code := henlo.AppendWord(nil, henlo.EncodeR2F(henlo.JMP, henlo.ACC, 0, false))
			Expect(m.Load(0, code)).To(Succeed())
			Expect(m.Run(0x100, 10)).To(MatchError(ContainSubstring("step limit")))
		})
	})

	It("should load wide constants", func() {
		for _, v := range []uint16{0, 1, 0xff, 0x100, 0x1234, 0xffff} {
			m = New(0x100)
			code := henlo.AppendWideLoad(nil, henlo.ACC, v)
			Expect(code).To(HaveLen(henlo.WideLoadLen))
			Expect(m.Load(0, code)).To(Succeed())
			Expect(m.Run(henlo.WideLoadLen, 10)).To(Succeed())
			Expect(m.Regs[henlo.ACC]).To(Equal(v))
		}
	})
})
