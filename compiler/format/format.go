package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/henlo/compiler"
	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/back"
	"github.com/slowlang/henlo/compiler/front"
	"github.com/slowlang/henlo/compiler/ir"
)

// Format appends a listing of an IR unit or a linked image.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *front.Unit:
		return formatUnit(ctx, b, x, d)
	case *compiler.Image:
		return formatImage(ctx, b, x, d)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatUnit(ctx context.Context, b []byte, u *front.Unit, d int) (_ []byte, err error) {
	for i, f := range u.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b, err = formatFunc(ctx, b, u, f, d)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, u *front.Unit, f *front.Func, d int) (_ []byte, err error) {
	b = app(b, d, "func %v", f.Name)
	b = formatFrame(b, f.Frame)
	b = append(b, " {\n"...)

	for _, x := range f.Code {
		if x.IsLabel() {
			b = app(b, d, "%v:\n", labelName(f, x.Label()))
			continue
		}

		b, err = formatIns(ctx, b, u, f, x, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "line %d", x.Line)
		}
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatFrame(b []byte, fr back.Frame) []byte {
	if fr.InitFP {
		b = append(b, " fp"...)
	}

	if fr.Locals != 0 {
		b = hfmt.Appendf(b, " locals %d", fr.Locals)
	}

	if fr.Saved != 0 {
		b = append(b, " save"...)

		for _, r := range fr.Saved.Regs() {
			b = append(b, ' ')
			b = append(b, r.String()...)
		}
	}

	return b
}

func formatIns(ctx context.Context, b []byte, u *front.Unit, f *front.Func, x front.Ins, d int) ([]byte, error) {
	c, err := back.Constraint(x.Op)
	if err != nil {
		return nil, err
	}

	b = app(b, d, "%-14v", x.Op)

	n := 0
	sep := func() {
		if n != 0 {
			b = append(b, ", "...)
		}

		n++
	}

	for s, m := range c.Slots {
		switch {
		case m.IsReg():
			sep()
			b = hfmt.Appendf(b, "%v", henlo.Reg(x.Args[s]))
		case m.IsImm():
			sep()
			b = hfmt.Appendf(b, "%d", x.Args[s])
		}
	}

	switch {
	case x.Op.IsJump():
		sep()
		b = append(b, labelName(f, int(x.Args[back.RD]))...)
	case x.Op.Kind() == ir.Sym && c.Slots[back.R1] == 0:
		sep()
		b = append(b, u.SymName(x.Args[back.R1])...)
	}

	b = append(b, '\n')

	return b, nil
}

func formatImage(ctx context.Context, b []byte, im *compiler.Image, d int) ([]byte, error) {
	for i, f := range im.Funcs() {
		if i != 0 {
			b = append(b, '\n')
		}

		base := int(im.Base) + f.Off

		b = app(b, d, "func %v  @%04x  size %#x\n", f.Name, base, len(f.Code))

		for off := 0; off < len(f.Code); off += henlo.WordSize {
			for id, l := range f.Labels {
				if l != off {
					continue
				}

				if id == back.ExitLabel {
					b = app(b, d, "exit:\n")
				} else {
					b = app(b, d, "L%d:\n", id-1)
				}
			}

			for _, r := range f.Relocs {
				if r.Off == off {
					b = app(b, d+1, "; reloc %v\n", symName(im.Syms, r.Sym))
				}
			}

			end := off + henlo.WordSize
			if end > len(f.Code) {
				end = len(f.Code)
			}

			b = app(b, d+1, "")
			b = henlo.Disasm(b, f.Code[off:end], base+off)
		}
	}

	return b, nil
}

func labelName(f *front.Func, id int) string {
	if id >= 0 && id < len(f.Labels) {
		return f.Labels[id]
	}

	return string(hfmt.Appendf(nil, "L%d", id))
}

func symName(syms []string, id int64) string {
	if id >= 0 && id < int64(len(syms)) {
		return syms[id]
	}

	return string(hfmt.Appendf(nil, "sym%d", id))
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
