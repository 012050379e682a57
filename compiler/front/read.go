package front

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/back"
	"github.com/slowlang/henlo/compiler/ir"
)

type (
	// Reader reads allocated IR units from YAML.
	//
	//	syms: [putc]
	//	funcs:
	//	  - name: twice
	//	    frame: {init_fp: true, locals: 2, save: [r1]}
	//	    code:
	//	      - {op: add, rd: r0, r1: r1, r2: r1}
	//	      - label: loop
	//	      - {op: jnz, r1: r0, to: loop}
	//	      - {op: call.sym, rd: r0, sym: putc}
	//	      - {op: ret, r1: r0}
	Reader struct{}

	rawUnit struct {
		Syms  []string  `yaml:"syms"`
		Funcs []rawFunc `yaml:"funcs"`
	}

	rawFunc struct {
		Name  string   `yaml:"name"`
		Frame rawFrame `yaml:"frame"`
		Code  []rawIns `yaml:"code"`
	}

	rawFrame struct {
		InitFP bool     `yaml:"init_fp"`
		Locals int      `yaml:"locals"`
		Save   []string `yaml:"save"`
	}

	rawIns struct {
		Label string `yaml:"label"`

		Op string `yaml:"op"`
		RD *Arg   `yaml:"rd"`
		R1 *Arg   `yaml:"r1"`
		R2 *Arg   `yaml:"r2"`
		R3 *Arg   `yaml:"r3"`

		To  string `yaml:"to"`
		Sym string `yaml:"sym"`

		line int
	}

	// Arg is a register name or an integer.
	Arg int64
)

func (r *Reader) ReadFile(ctx context.Context, name string) (*Unit, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(data), "name", name)

	return r.ReadData(ctx, data)
}

func (r *Reader) ReadData(ctx context.Context, data []byte) (u *Unit, err error) {
	var raw rawUnit

	err = yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}

	u = &Unit{}

	for _, f := range raw.Funcs {
		if f.Name == "" {
			return nil, errors.New("func without a name")
		}

		if u.Sym(f.Name) >= 0 {
			return nil, errors.New("func %v: redefined", f.Name)
		}

		u.Syms = append(u.Syms, f.Name)
	}

	for _, s := range raw.Syms {
		if u.Sym(s) < 0 {
			u.Syms = append(u.Syms, s)
		}
	}

	for _, rf := range raw.Funcs {
		f, err := r.readFunc(ctx, u, &rf)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", rf.Name)
		}

		u.Funcs = append(u.Funcs, f)
	}

	return u, nil
}

func (r *Reader) readFunc(ctx context.Context, u *Unit, rf *rawFunc) (f *Func, err error) {
	f = &Func{
		Name: rf.Name,
		Frame: back.Frame{
			InitFP: rf.Frame.InitFP,
			Locals: rf.Frame.Locals,
		},
	}

	for _, s := range rf.Frame.Save {
		reg, ok := henlo.ParseReg(s)
		if !ok {
			return nil, errors.New("frame: unknown register: %q", s)
		}

		f.Frame.Saved |= 1 << reg
	}

	labels := map[string]int{}

	label := func(name string) int {
		if id, ok := labels[name]; ok {
			return id
		}

		id := len(f.Labels)
		labels[name] = id
		f.Labels = append(f.Labels, name)

		return id
	}

	defined := map[string]bool{}

	for _, ri := range rf.Code {
		x, err := r.readIns(u, &ri, label)
		if err != nil {
			return nil, errors.Wrap(err, "line %d", ri.line)
		}

		if ri.Label != "" {
			if defined[ri.Label] {
				return nil, errors.New("line %d: label %v redefined", ri.line, ri.Label)
			}

			defined[ri.Label] = true
		}

		f.Code = append(f.Code, x)
	}

	for _, l := range f.Labels {
		if !defined[l] {
			return nil, errors.New("label %v used but not defined", l)
		}
	}

	if tlog.If("dump_ir") {
		tlog.SpanFromContext(ctx).Printw("func", "name", f.Name, "frame", f.Frame, "code", f.Code, "labels", f.Labels)
	}

	return f, nil
}

func (r *Reader) readIns(u *Unit, ri *rawIns, label func(string) int) (x Ins, err error) {
	x.Line = ri.line

	if ri.Label != "" {
		if ri.Op != "" {
			return x, errors.New("label and op in one item")
		}

		return LabelIns(label(ri.Label), ri.line), nil
	}

	if ri.Op == "" {
		return x, errors.New("neither label nor op")
	}

	x.Op, err = ir.ParseOp(ri.Op)
	if err != nil {
		return x, err
	}

	for i, a := range []*Arg{ri.RD, ri.R1, ri.R2, ri.R3} {
		if a != nil {
			x.Args[i] = int64(*a)
		}
	}

	if x.Op.IsJump() {
		if ri.To == "" {
			return x, errors.New("%v: jump target expected", x.Op)
		}

		x.Args[back.RD] = int64(label(ri.To))
	}

	if ri.Sym != "" {
		id := u.Sym(ri.Sym)
		if id < 0 {
			return x, errors.New("%v: undefined symbol: %v", x.Op, ri.Sym)
		}

		x.Args[back.R1] = int64(id)
	}

	return x, nil
}

func (ri *rawIns) UnmarshalYAML(n *yaml.Node) error {
	type plain rawIns

	err := n.Decode((*plain)(ri))
	if err != nil {
		return err
	}

	ri.line = n.Line

	return nil
}

func (a *Arg) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return errors.New("line %d: operand: scalar expected", n.Line)
	}

	if n.Tag == "!!int" {
		var v int64

		err := n.Decode(&v)
		if err != nil {
			return err
		}

		*a = Arg(v)

		return nil
	}

	r, ok := henlo.ParseReg(n.Value)
	if !ok {
		return errors.New("line %d: operand: register or integer expected: %q", n.Line, n.Value)
	}

	*a = Arg(r)

	return nil
}
