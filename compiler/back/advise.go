package back

import (
	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/ir"
)

type (
	// Slot is an operand position of an op.
	Slot int

	// Mask constrains one slot: zero if unused, a register class
	// the allocator picks from, or an immediate width marker.
	Mask uint32

	Constraints struct {
		Slots [NumSlots]Mask

		// Tmp lists registers clobbered by the op.
		Tmp henlo.RegMask
	}
)

const (
	RD Slot = iota
	R1
	R2
	R3

	NumSlots
)

const immMarker Mask = 1 << 16

const (
	tmps    = Mask(henlo.TmpRegs)
	immWord = immMarker | 16
)

func Regs(m henlo.RegMask) Mask { return Mask(m) }
func Imm(bits int) Mask         { return immMarker | Mask(bits) }

func (m Mask) IsReg() bool             { return m != 0 && m&immMarker == 0 }
func (m Mask) IsImm() bool             { return m&immMarker != 0 }
func (m Mask) ImmBits() int            { return int(m &^ immMarker) }
func (m Mask) Regs() henlo.RegMask     { return henlo.RegMask(m) }
func (m Mask) Allows(r henlo.Reg) bool { return m.IsReg() && m.Regs().Has(r) }

func (s Slot) String() string {
	switch s {
	case RD:
		return "rd"
	case R1:
		return "r1"
	case R2:
		return "r2"
	case R3:
		return "r3"
	}

	return "slot?"
}

// Constraint tells the allocator which operands of op need a register
// and which registers are acceptable. It depends on op alone.
// Lowering reads exactly the register and immediate slots described here.
func Constraint(op ir.Op) (c Constraints, err error) {
	if err = op.Check(); err != nil {
		return c, err
	}

	s := &c.Slots
	num := op.Kind() == ir.Num

	// rhs is either a register or an immediate
	rhs := func(bits int) Mask {
		if num {
			return Imm(bits)
		}

		return tmps
	}

	switch op.Class() {
	case ir.ClassAdd, ir.ClassMul, ir.ClassCmp:
		s[RD], s[R1], s[R2] = tmps, tmps, rhs(16)
	case ir.ClassShift:
		s[RD], s[R1], s[R2] = tmps, tmps, rhs(5)
	case ir.ClassUnary:
		s[RD], s[R1] = tmps, tmps
	case ir.ClassMov:
		s[RD] = tmps

		if op.Kind() == ir.Reg {
			s[R1] = tmps
		} else {
			s[R1] = immWord
		}
	case ir.ClassLoad:
		s[RD] = tmps

		switch op.Kind() {
		case ir.Reg:
			s[R1], s[R2] = tmps, tmps
		case ir.Num:
			s[R1], s[R2] = tmps, immWord
		case ir.Loc:
			s[R1] = immWord
		case ir.Sym:
			s[R1], s[R2] = immWord, immWord
		}
	case ir.ClassStore:
		s[R1] = tmps

		switch op.Kind() {
		case ir.Reg:
			s[R2], s[R3] = tmps, tmps
		case ir.Num:
			s[R2], s[R3] = tmps, immWord
		case ir.Loc:
			s[R2] = immWord
		case ir.Sym:
			s[R2], s[R3] = immWord, immWord
		}
	case ir.ClassMem:
		s[R1], s[R2], s[R3] = tmps, tmps, tmps
	case ir.ClassCall:
		s[RD] = Regs(1 << henlo.RetReg)
		c.Tmp = 1 << henlo.RetReg

		if op.Kind() != ir.Sym {
			s[R1] = tmps
		}
	case ir.ClassRet:
		s[R1] = rhs(16)
	case ir.ClassJZ:
		s[R1] = tmps
	case ir.ClassJCC:
		s[R1], s[R2] = tmps, rhs(16)
	case ir.ClassJmp:
	}

	return c, nil
}
