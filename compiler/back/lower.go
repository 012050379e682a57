package back

import (
	"tlog.app/go/tlog"

	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/ir"
)

type (
	// operands gives lowering access to the op arguments
	// and records which slots were used as registers or immediates.
	operands struct {
		op ir.Op
		v  [NumSlots]int64

		regs, imms uint8

		err error
	}
)

const acc = henlo.ACC

// callRet is the distance from the call sequence start to the return address.
const callRet = 5*henlo.WordSize + henlo.WideLoadLen

// Ins lowers one op with registers already assigned by the allocator.
// Jumps take the destination label in rd.
// On error nothing is emitted or recorded.
func (f *Func) Ins(op ir.Op, rd, r1, r2, r3 int64) (err error) {
	if err = op.Check(); err != nil {
		return unsupported(op, err.Error())
	}

	o := operands{op: op, v: [NumSlots]int64{rd, r1, r2, r3}}

	st, m := f.buf.Len(), f.led.mark()

	err = f.lower(&o)
	if err == nil {
		err = o.err
	}

	if err != nil {
		f.buf.truncate(st)
		f.led.rollback(m)

		return err
	}

	if tlog.If("dump_ins") {
		tlog.Printw("ins", "op", op, "args", o.v[:], "off", st, "text", string(henlo.Disasm(nil, f.buf.Bytes()[st:], st)))
	}

	return nil
}

func (f *Func) lower(o *operands) error {
	switch o.op.Class() {
	case ir.ClassAdd:
		return f.lowerAdd(o)
	case ir.ClassShift:
		return f.lowerShift(o)
	case ir.ClassMul:
		return f.lowerMul(o)
	case ir.ClassCmp:
		return f.lowerCmp(o)
	case ir.ClassUnary:
		return f.lowerUnary(o)
	case ir.ClassMov:
		return f.lowerMov(o)
	case ir.ClassLoad:
		return f.lowerLoad(o)
	case ir.ClassStore:
		return f.lowerStore(o)
	case ir.ClassMem:
		return unsupported(o.op, "block memory op")
	case ir.ClassCall:
		return f.lowerCall(o)
	case ir.ClassRet:
		return f.lowerRet(o)
	case ir.ClassJmp, ir.ClassJZ, ir.ClassJCC:
		return f.lowerJump(o)
	}

	return unsupported(o.op, "unknown op class")
}

func (f *Func) lowerAdd(o *operands) error {
	if err := regOrNum(o.op); err != nil {
		return err
	}

	b := &f.buf
	rd, a := o.reg(RD), o.reg(R1)
	rhs := f.rhs(o, R2, acc)

	if o.op.Base() == ir.SUB {
		b.R2F(henlo.NEG, acc, rhs, false)
		rhs = acc
	}

	b.R3(aluOp(o.op), rd, a, rhs)

	return nil
}

func (f *Func) lowerShift(o *operands) error {
	if o.op.Base() == ir.SHR {
		return unsupported(o.op, "right shift")
	}

	if o.op.Kind() != ir.Num {
		return unsupported(o.op, "shift by register amount")
	}

	if n := o.raw(R2); n < 0 || n > 15 {
		return overflow(o.op, "shift amount", n, 4)
	}

	rd, a := o.reg(RD), o.reg(R1)
	n := o.imm(R2)

	f.buf.loadImm(acc, 1<<n)
	f.buf.R3(henlo.MUL, rd, a, acc)

	return nil
}

func (f *Func) lowerMul(o *operands) error {
	switch o.op.Base() {
	case ir.DIV:
		return unsupported(o.op, "no hardware divide")
	case ir.MOD:
		return unsupported(o.op, "no hardware modulo")
	}

	if err := regOrNum(o.op); err != nil {
		return err
	}

	rd, a := o.reg(RD), o.reg(R1)
	rhs := f.rhs(o, R2, acc)

	f.buf.R3(henlo.MUL, rd, a, rhs)

	return nil
}

// lowerCmp sets rd to 1 if the condition holds and to 0 otherwise.
func (f *Func) lowerCmp(o *operands) error {
	if err := regOrNum(o.op); err != nil {
		return err
	}

	cond := o.op.Cond()

	if err := signedOnly(o.op, cond); err != nil {
		return err
	}

	b := &f.buf
	rd, a := o.reg(RD), o.reg(R1)
	f.loadRHS(o, R2, acc)

	nz := b.compare(cond, a, acc)

	if !cond.Relational() {
		// cmp = cmp != 0: adding all ones carries out for any nonzero value
		b.loadImm(acc, 1)
		b.R2F(henlo.NEG, acc, acc, false)
		b.R3F(henlo.ADD, henlo.CMP, henlo.CMP, acc, henlo.FlagCapture)
		b.R2F(henlo.SOV, henlo.CMP, 0, false)
	}

	if nz {
		b.R2F(henlo.MOV, rd, henlo.CMP, false)

		return nil
	}

	b.loadImm(acc, 1)
	b.R3(henlo.XOR, rd, henlo.CMP, acc)

	return nil
}

func (f *Func) lowerUnary(o *operands) error {
	if o.op.Kind() != ir.Reg {
		return unsupported(o.op, "operand kind")
	}

	b := &f.buf
	rd, a := o.reg(RD), o.reg(R1)

	if o.op.Base() == ir.NEG {
		b.R2F(henlo.NEG, rd, a, false)

		return nil
	}

	// all ones is -1
	b.loadImm(acc, 1)
	b.R2F(henlo.NEG, acc, acc, false)
	b.R3(henlo.XOR, rd, a, acc)

	return nil
}

func (f *Func) lowerMov(o *operands) error {
	b := &f.buf

	switch o.op.Kind() {
	case ir.Reg:
		rd, a := o.reg(RD), o.reg(R1)
		b.R2F(henlo.MOV, rd, a, false)
	case ir.Num:
		rd := o.reg(RD)
		b.loadImm(acc, o.imm(R1))
		b.R2F(henlo.MOV, rd, acc, false)
	case ir.Loc:
		rd := o.reg(RD)
		b.loadImm(acc, o.imm(R1))
		b.R3F(henlo.ADD, rd, henlo.FP, acc, 0)
	default:
		return unsupported(o.op, "symbolic move")
	}

	return nil
}

func (f *Func) lowerLoad(o *operands) error {
	if o.op.Kind() == ir.Sym {
		return unsupported(o.op, "symbolic load")
	}

	b := &f.buf
	rd := o.reg(RD)

	f.address(o, R1)
	b.R2F(henlo.LD, rd, acc, o.op.Type().Byte())

	return nil
}

func (f *Func) lowerStore(o *operands) error {
	if o.op.Kind() == ir.Sym {
		return unsupported(o.op, "symbolic store")
	}

	b := &f.buf
	v := o.reg(R1)

	f.address(o, R2)
	b.R2F(henlo.ST, v, acc, o.op.Type().Byte())

	return nil
}

// address computes the effective address described by the slots
// starting at s into the accumulator.
//
//	reg: base + index
//	num: base + displacement
//	loc: fp + frame slot
func (f *Func) address(o *operands, s Slot) {
	b := &f.buf

	switch o.op.Kind() {
	case ir.Reg:
		base, idx := o.reg(s), o.reg(s+1)
		b.R3F(henlo.ADD, acc, base, idx, 0)
	case ir.Num:
		base := o.reg(s)
		b.loadImm(acc, o.imm(s+1))
		b.R3F(henlo.ADD, acc, acc, base, 0)
	case ir.Loc:
		b.loadImm(acc, o.imm(s))
		b.R3F(henlo.ADD, acc, acc, henlo.FP, 0)
	}
}

// lowerCall pushes the return address and jumps to the symbol.
// The object writer fills the placeholder with the symbol address load.
func (f *Func) lowerCall(o *operands) error {
	if o.op.Kind() != ir.Sym {
		return unsupported(o.op, "indirect call")
	}

	if rd := o.reg(RD); rd != henlo.RetReg {
		return unsupported(o.op, "call result must be in "+henlo.RetReg.String())
	}

	b := &f.buf
	sym := o.raw(R1)

	b.R2F(henlo.MOV, henlo.CMP, henlo.PC, false)
	b.RI(henlo.ADDI, henlo.CMP, callRet)
	b.push(henlo.CMP)

	off := b.reserve()
	f.led.AddReloc(Reloc{Sym: sym, Flags: RelocCode, Off: off})

	b.R2F(henlo.JMP, acc, 0, true)

	return nil
}

func (f *Func) lowerRet(o *operands) error {
	b := &f.buf

	switch o.op.Kind() {
	case ir.Reg:
		if r := o.reg(R1); r != henlo.RetReg {
			b.R2F(henlo.MOV, henlo.RetReg, r, false)
		}
	case ir.Num:
		b.loadImm(henlo.RetReg, o.imm(R1))
	default:
		return unsupported(o.op, "operand kind")
	}

	off := f.emitJump(ir.JMP, 0)
	f.led.AddJump(Jump{Off: off, Label: ExitLabel, Op: o.op})

	return nil
}

func (f *Func) lowerJump(o *operands) error {
	op := o.op

	id := o.raw(RD)
	if id < 0 {
		return &LedgerError{Label: int(id), Offset: f.buf.Len(), Reason: "negative label id"}
	}

	var a henlo.Reg

	switch op.Class() {
	case ir.ClassJZ:
		if op.Kind() != ir.Reg {
			return unsupported(op, "operand kind")
		}

		a = o.reg(R1)
	case ir.ClassJCC:
		if err := regOrNum(op); err != nil {
			return err
		}

		if err := signedOnly(op, op.Cond()); err != nil {
			return err
		}

		a = o.reg(R1)
		f.loadRHS(o, R2, acc)
	case ir.ClassJmp:
		if op.Kind() != ir.Reg {
			return unsupported(op, "operand kind")
		}
	}

	off := f.emitJump(op, a)
	f.led.AddJump(Jump{Off: off, Label: int(id) + 1, Op: op})

	return nil
}

// rhs returns the register holding the second operand.
// Immediates are loaded into dst.
func (f *Func) rhs(o *operands, s Slot, dst henlo.Reg) henlo.Reg {
	if o.op.Kind() == ir.Num {
		f.buf.loadImm(dst, o.imm(s))

		return dst
	}

	return o.reg(s)
}

// loadRHS moves or loads the second operand into dst.
func (f *Func) loadRHS(o *operands, s Slot, dst henlo.Reg) {
	if r := f.rhs(o, s, dst); r != dst {
		f.buf.R2F(henlo.MOV, dst, r, false)
	}
}

func aluOp(op ir.Op) henlo.Opcode {
	switch op.Base() {
	case ir.AND:
		return henlo.AND
	case ir.OR:
		return henlo.OR
	case ir.XOR:
		return henlo.XOR
	}

	return henlo.ADD
}

func regOrNum(op ir.Op) error {
	switch op.Kind() {
	case ir.Reg, ir.Num:
		return nil
	}

	return unsupported(op, "operand kind")
}

func signedOnly(op ir.Op, c ir.Cond) error {
	if c.Relational() && !op.Type().Signed() {
		return unsupported(op, "unsigned relational comparison")
	}

	return nil
}

func (o *operands) reg(s Slot) henlo.Reg {
	o.regs |= 1 << s

	v := o.v[s]
	if (v < 0 || v >= henlo.NumRegs) && o.err == nil {
		o.err = overflow(o.op, s.String()+" register", v, 3)
	}

	return henlo.Reg(v)
}

func (o *operands) imm(s Slot) uint16 {
	o.imms |= 1 << s

	v, err := imm16(o.op, s.String()+" immediate", o.v[s])
	if err != nil && o.err == nil {
		o.err = err
	}

	return v
}

func (o *operands) raw(s Slot) int64 { return o.v[s] }
