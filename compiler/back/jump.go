package back

import (
	"context"
	"math"

	"nikand.dev/go/heap"
	"tlog.app/go/tlog"

	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/ir"
)

// emitJump emits the condition test if any, a displacement placeholder
// and the branch through the accumulator. It returns the placeholder offset.
// For ClassJCC the accumulator must already hold the right hand operand.
func (f *Func) emitJump(op ir.Op, a henlo.Reg) (off int) {
	b := &f.buf

	switch op.Class() {
	case ir.ClassJZ:
		off = b.reserve()
		b.R2F(henlo.BR, a, acc, op.Base() == ir.JNZ)
	case ir.ClassJCC:
		nz := b.compare(op.Cond(), a, acc)

		off = b.reserve()
		b.R2F(henlo.BR, henlo.CMP, acc, nz)
	default:
		off = b.reserve()
		b.R2F(henlo.JMP, acc, 0, false)
	}

	return off
}

// compare leaves the outcome of "a cond rhs" in the comparison register,
// rhs being in the accumulator r. It returns true if the condition holds
// when the register is nonzero and false if it holds when it is zero.
//
// Signed order is the unsigned order of the operands with the sign bit flipped,
// and x + ^y carries out exactly when x > y unsigned.
func (b *Buffer) compare(c ir.Cond, a, r henlo.Reg) (nz bool) {
	switch c {
	case ir.LT, ir.GE:
		// rhs > a
		b.greater(r, a, 0x8000, 0x7fff)

		return c == ir.LT
	case ir.GT, ir.LE:
		// a > rhs
		b.greater(r, a, 0x7fff, 0x8000)

		return c == ir.GT
	default:
		b.R3(henlo.XOR, henlo.CMP, a, r)

		return c == ir.NE
	}
}

// greater sets the comparison register to the carry of (r^rk) + (a^ak).
// r is clobbered, a is preserved.
func (b *Buffer) greater(r, a henlo.Reg, rk, ak uint16) {
	b.loadImm(henlo.CMP, rk)
	b.R3(henlo.XOR, r, r, henlo.CMP)

	b.loadImm(henlo.CMP, ak)
	b.R3(henlo.XOR, henlo.CMP, a, henlo.CMP)

	b.R3F(henlo.ADD, henlo.CMP, r, henlo.CMP, henlo.FlagCapture)
	b.R2F(henlo.SOV, henlo.CMP, 0, false)
}

// resolve fills every jump placeholder with the load of its
// word displacement counted from the branch following the placeholder.
func (f *Func) resolve(ctx context.Context) error {
	tr := tlog.SpanFromContext(ctx)

	q := heap.Heap[Jump]{Less: jumpLess}

	for _, j := range f.led.jumps {
		q.Push(j)
	}

	var p [henlo.WideLoadLen]byte

	for q.Len() != 0 {
		j := q.Pop()

		dst, ok := f.led.Label(j.Label)
		if !ok {
			return &LedgerError{Label: j.Label, Offset: j.Off, Reason: "jump to undeclared label"}
		}

		disp := (dst - (j.Off + henlo.WideLoadLen)) / henlo.WordSize
		if disp < math.MinInt16 || disp > math.MaxInt16 {
			return overflow(j.Op, "jump displacement", int64(disp), 16)
		}

		err := f.buf.Overwrite(j.Off, henlo.AppendWideLoad(p[:0], acc, uint16(int16(disp))))
		if err != nil {
			return err
		}

		tr.V("resolve").Printw("jump resolved", "off", j.Off, "label", j.Label, "dst", dst, "disp", disp, "op", j.Op)
	}

	return nil
}

func jumpLess(d []Jump, i, j int) bool {
	return d[i].Off < d[j].Off
}
