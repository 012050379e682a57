package back

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/henlo/compiler/asm/henlo"
)

type (
	Frame struct {
		// InitFP establishes a frame pointer.
		InitFP bool

		// Locals is the stack space reserved below the saved registers.
		Locals int

		// Saved registers are preserved across the call.
		Saved henlo.RegMask
	}
)

// Wrap surrounds the lowered body with prologue and epilogue
// and moves every recorded offset by the prologue size.
// It must run before Code resolves the jumps.
//
//	[push fp; mov fp, sp]
//	push saved...
//	[sp -= locals]
//	body
//	exit: [sp += locals]
//	pop saved...
//	[mov sp, fp; pop fp]
//	pop acc; mov pc, acc
func (f *Func) Wrap(ctx context.Context, fr Frame) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "back: wrap", "init_fp", fr.InitFP, "locals", fr.Locals, "saved", fr.Saved)
	defer tr.Finish("err", &err)

	if f.wrapped {
		return &LedgerError{Label: ExitLabel, Offset: f.buf.Len(), Reason: "function is already wrapped"}
	}

	if x := fr.Saved &^ henlo.SaveRegs; x != 0 {
		return errors.New("registers %v can't be saved", x.Regs())
	}

	locals := align(fr.Locals, henlo.WordSize)
	if locals < 0 || locals > 0x7fff {
		return overflow(0, "frame size", int64(fr.Locals), 15)
	}

	body := f.buf.Take()
	f.led.SetLabel(ExitLabel, len(body))

	b := &f.buf
	saved := fr.Saved.Regs()

	if fr.InitFP {
		b.push(henlo.FP)
		b.R2F(henlo.MOV, henlo.FP, henlo.SP, false)
	}

	for _, r := range saved {
		b.push(r)
	}

	if locals != 0 {
		b.addSP(-locals)
	}

	p := b.Len()
	b.Append(body...)

	if locals != 0 {
		b.addSP(locals)
	}

	for i := len(saved) - 1; i >= 0; i-- {
		b.pop(saved[i])
	}

	if fr.InitFP {
		b.R2F(henlo.MOV, henlo.SP, henlo.FP, false)
		b.pop(henlo.FP)
	}

	b.pop(acc)
	b.R2F(henlo.MOV, henlo.PC, acc, false)

	f.led.Rebase(p)

	f.wrapped = true
	f.prologue = p

	tr.Printw("wrapped", "prologue", p, "body", len(body), "epilogue", b.Len()-p-len(body))

	return nil
}

func (b *Buffer) push(r henlo.Reg) {
	b.RI(henlo.ADDI, henlo.SP, -henlo.WordSize)
	b.R2F(henlo.ST, r, henlo.SP, false)
}

func (b *Buffer) pop(r henlo.Reg) {
	b.R2F(henlo.LD, r, henlo.SP, false)
	b.RI(henlo.ADDI, henlo.SP, henlo.WordSize)
}

func (b *Buffer) addSP(n int) {
	if n >= -0x100 && n < 0x100 {
		b.RI(henlo.ADDI, henlo.SP, n)
		return
	}

	b.loadImm(acc, uint16(n))
	b.R3F(henlo.ADD, henlo.SP, henlo.SP, acc, 0)
}

func align(x, a int) int {
	return (x + a - 1) &^ (a - 1)
}
