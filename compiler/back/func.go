package back

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/henlo/compiler/asm/henlo"
)

type (
	// Func is the assembly context of the function being compiled.
	// It is reset after its code is taken by Code, so one Func
	// compiles any number of functions one after another.
	Func struct {
		buf Buffer
		led Ledger

		wrapped  bool
		prologue int
	}

	// Object is the finalized function handed to the object writer.
	Object struct {
		Code   []byte
		Relocs []Reloc

		// Labels are final label offsets indexed by ledger id, -1 for undeclared.
		Labels []int
	}
)

func New() *Func {
	return &Func{}
}

// Pos is the current code offset.
func (f *Func) Pos() int { return f.buf.Len() }

func (f *Func) Bytes() []byte   { return f.buf.Bytes() }
func (f *Func) Ledger() *Ledger { return &f.led }

// Prologue is the prologue size inserted by Wrap.
func (f *Func) Prologue() int { return f.prologue }

// Label marks the front end label id at the current position.
func (f *Func) Label(id int) error {
	if id < 0 {
		return &LedgerError{Label: id, Offset: f.buf.Len(), Reason: "negative label id"}
	}

	f.led.SetLabel(id+1, f.buf.Len())

	return nil
}

// Code resolves pending jumps and transfers the code and relocations
// to the caller. The context is reset for the next function either way.
func (f *Func) Code(ctx context.Context) (obj Object, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: finalize", "size", f.buf.Len(), "jumps", len(f.led.jumps), "relocs", len(f.led.relocs))
	defer tr.Finish("err", &err)

	defer f.Reset()

	err = f.resolve(ctx)
	if err != nil {
		return obj, err
	}

	if tr.If("dump_code") {
		tr.Printw("code", "size", f.buf.Len(), "text", string(henlo.Disasm(nil, f.buf.Bytes(), 0)))
	}

	obj.Code = f.buf.Take()
	obj.Relocs = f.led.TakeRelocs()
	obj.Labels = append([]int(nil), f.led.Labels()...)

	return obj, nil
}

// Reset drops everything recorded for the current function.
func (f *Func) Reset() {
	f.buf.Take()
	f.led.Reset()

	f.wrapped = false
	f.prologue = 0
}
