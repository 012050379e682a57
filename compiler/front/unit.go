package front

import (
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/henlo/compiler/back"
	"github.com/slowlang/henlo/compiler/ir"
)

type (
	// Unit is a register-allocated program.
	// Symbol ids index Syms: defined funcs come first in order, then externals.
	Unit struct {
		Funcs []*Func
		Syms  []string
	}

	Func struct {
		Name  string
		Frame back.Frame

		Code []Ins

		// Labels are names by label id.
		Labels []string
	}

	// Ins is one allocated op. Op zero marks label Args[0] instead.
	Ins struct {
		Op   ir.Op
		Args [back.NumSlots]int64

		Line int
	}
)

func LabelIns(id int, line int) Ins {
	return Ins{Args: [back.NumSlots]int64{int64(id)}, Line: line}
}

func (x Ins) IsLabel() bool { return x.Op == 0 }

// Label is the label id marked by a label pseudo-instruction.
func (x Ins) Label() int { return int(x.Args[0]) }

// Sym returns the id of a symbol, or -1.
func (u *Unit) Sym(name string) int {
	for i, s := range u.Syms {
		if s == name {
			return i
		}
	}

	return -1
}

func (u *Unit) SymName(id int64) string {
	if id < 0 || id >= int64(len(u.Syms)) {
		return ""
	}

	return u.Syms[id]
}

func (x Ins) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if x.IsLabel() {
		b = e.AppendMap(b, 2)
		b = e.AppendKeyInt(b, "label", x.Label())
		b = e.AppendKeyInt(b, "line", x.Line)

		return b
	}

	b = e.AppendMap(b, 3)
	b = e.AppendKey(b, "op")
	b = e.AppendString(b, x.Op.String())

	b = e.AppendKey(b, "args")
	b = e.AppendArray(b, len(x.Args))

	for _, a := range x.Args {
		b = e.AppendInt(b, int(a))
	}

	b = e.AppendKeyInt(b, "line", x.Line)

	return b
}
