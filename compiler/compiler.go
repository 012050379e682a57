package compiler

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/back"
	"github.com/slowlang/henlo/compiler/front"
	"github.com/slowlang/henlo/compiler/ir"
)

//go:generate mockgen -write_package_comment=false -source=compiler.go -package=$GOPACKAGE -destination=mock_writer_test.go

type (
	// Policy decides what happens after a function fails to compile.
	Policy int

	Options struct {
		Policy Policy
	}

	// ObjectWriter receives finalized functions in unit order.
	ObjectWriter interface {
		WriteFunc(name string, obj back.Object) error
	}

	Compiler struct {
		Options

		f *back.Func
	}

	// FuncError locates a failed instruction.
	FuncError struct {
		Func string
		Line int
		Op   ir.Op
		Err  error
	}

	// Errors is every function failure collected under the Collect policy.
	Errors []error
)

const (
	// Abort stops at the first failure.
	Abort Policy = iota

	// Collect compiles the rest of the functions and reports all failures.
	Collect
)

var ErrRegister = errors.New("register not allowed")

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "abort", "":
		return Abort, nil
	case "collect":
		return Collect, nil
	}

	return 0, errors.New("unknown error policy: %q", s)
}

func (p Policy) String() string {
	switch p {
	case Abort:
		return "abort"
	case Collect:
		return "collect"
	}

	return fmt.Sprintf("policy(%d)", int(p))
}

func New(opts Options) *Compiler {
	return &Compiler{
		Options: opts,
		f:       back.New(),
	}
}

func CompileFile(ctx context.Context, name string, w ObjectWriter, opts Options) (u *front.Unit, err error) {
	var r front.Reader

	u, err = r.ReadFile(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "read unit")
	}

	err = New(opts).CompileUnit(ctx, u, w)
	if err != nil {
		return u, errors.Wrap(err, "compile")
	}

	return u, nil
}

func (c *Compiler) CompileUnit(ctx context.Context, u *front.Unit, w ObjectWriter) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile unit", "funcs", len(u.Funcs), "policy", c.Policy)
	defer tr.Finish("err", &err)

	var errs Errors

	for _, fn := range u.Funcs {
		obj, err := c.CompileFunc(ctx, fn)
		if err != nil {
			if c.Policy == Abort {
				return err
			}

			errs = append(errs, err)

			continue
		}

		err = w.WriteFunc(fn.Name, obj)
		if err != nil {
			return errors.Wrap(err, "write func %v", fn.Name)
		}
	}

	if len(errs) != 0 {
		return errs
	}

	return nil
}

// CompileFunc lowers, wraps and finalizes one function.
func (c *Compiler) CompileFunc(ctx context.Context, fn *front.Func) (obj back.Object, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile func", "name", fn.Name, "ops", len(fn.Code))
	defer tr.Finish("err", &err)

	f := c.f
	if f == nil {
		f = back.New()
		c.f = f
	}

	defer func() {
		if err != nil {
			f.Reset()
		}
	}()

	for _, x := range fn.Code {
		if x.IsLabel() {
			err = f.Label(x.Label())
		} else {
			err = c.ins(f, x)
		}

		if err != nil {
			return obj, &FuncError{Func: fn.Name, Line: x.Line, Op: x.Op, Err: err}
		}

		if tr.If("dump_ops") {
			tr.Printw("op", "ins", x, "pos", f.Pos())
		}
	}

	err = f.Wrap(ctx, fn.Frame)
	if err != nil {
		return obj, &FuncError{Func: fn.Name, Err: errors.Wrap(err, "wrap")}
	}

	obj, err = f.Code(ctx)
	if err != nil {
		return obj, &FuncError{Func: fn.Name, Err: err}
	}

	return obj, nil
}

func (c *Compiler) ins(f *back.Func, x front.Ins) error {
	cs, err := back.Constraint(x.Op)
	if err != nil {
		return errors.Wrap(back.ErrUnsupported, "%v", err)
	}

	for s, m := range cs.Slots {
		if !m.IsReg() {
			continue
		}

		if r := x.Args[s]; r < 0 || r > 0xff || !m.Allows(henlo.Reg(r)) {
			return errors.Wrap(ErrRegister, "%v: %v = %d (allowed %v)", x.Op, back.Slot(s), r, m.Regs().Regs())
		}
	}

	return f.Ins(x.Op, x.Args[back.RD], x.Args[back.R1], x.Args[back.R2], x.Args[back.R3])
}

func (e *FuncError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("func %v: %v", e.Func, e.Err)
	}

	return fmt.Sprintf("func %v: line %d: %v", e.Func, e.Line, e.Err)
}

func (e *FuncError) Unwrap() error { return e.Err }

func (e Errors) Error() string {
	var b strings.Builder

	for i, err := range e {
		if i != 0 {
			b.WriteString("; ")
		}

		b.WriteString(err.Error())
	}

	return b.String()
}

func (e Errors) Unwrap() []error { return e }
