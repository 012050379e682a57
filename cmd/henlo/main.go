package main

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"github.com/tebeka/atexit"
	"golang.org/x/term"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/henlo/compiler"
	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/format"
	"github.com/slowlang/henlo/compiler/front"
)

// failed is set before exit handlers run.
var failed bool

func main() {
	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile allocated IR into linked henlo machine code",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file, stdout if empty"),
			cli.NewFlag("policy", "abort", "error policy: abort or collect"),
			cli.NewFlag("base", 0, "image load address"),
			cli.NewFlag("define", "", "external symbol addresses: name=addr,..."),
			cli.NewFlag("listing", false, "write a listing instead of raw code (default on a terminal)"),
		},
	}

	disasmCmd := &cli.Command{
		Name:        "disasm",
		Description: "disassemble raw henlo machine code",
		Action:      disasmAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("base", 0, "load address"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile a unit and call one of its functions in the emulator",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("func", "main", "function to call"),
			cli.NewFlag("arg", "", "initial registers: r1=5,r2=-3"),
			cli.NewFlag("base", 0x100, "image load address"),
			cli.NewFlag("steps", 1000000, "step limit, negative for none"),
			cli.NewFlag("define", "", "external symbol addresses: name=addr,..."),
		},
	}

	app := &cli.Command{
		Name:        "henlo",
		Description: "henlo is a machine code back end for the henlo 16-bit isa",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr", "log output file"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			compileCmd,
			disasmCmd,
			runCmd,
		},
	}

	err := cli.Run(app, os.Args, os.Environ())
	if err != nil {
		failed = true

		_, _ = os.Stderr.Write(hfmt.Appendf(nil, "error: %v\n", err))
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func before(c *cli.Command) error {
	var w io.Writer = os.Stderr

	if name := c.String("log"); name != "" && name != "stderr" {
		f, err := os.Create(name)
		if err != nil {
			return errors.Wrap(err, "open log")
		}

		atexit.Register(func() {
			_ = f.Close()
		})

		w = f
	}

	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(w, tlog.LstdFlags))

	if v := c.String("verbosity"); v != "" {
		tlog.SetVerbosity(v)
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) != 1 {
		return errors.New("one input file expected")
	}

	policy, err := compiler.ParsePolicy(c.String("policy"))
	if err != nil {
		return err
	}

	im, u, err := build(ctx, c, c.Args[0], compiler.Options{Policy: policy})
	if err != nil {
		return err
	}

	out := os.Stdout

	if name := c.String("output"); name != "" {
		out, err = createOutput(name)
		if err != nil {
			return err
		}

		defer func() {
			e := out.Close()
			if err == nil && e != nil {
				err = errors.Wrap(e, "close output")
			}
		}()
	}

	listing := c.Bool("listing") || out == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))

	b, err := im.Link(ctx)
	if err != nil {
		return err
	}

	if listing {
		b, err = format.Format(ctx, nil, u)
		if err != nil {
			return errors.Wrap(err, "format unit")
		}

		b = append(b, '\n')

		b, err = format.Format(ctx, b, im)
		if err != nil {
			return errors.Wrap(err, "format image")
		}
	}

	_, err = out.Write(b)
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}

func disasmAct(c *cli.Command) (err error) {
	base := c.Int("base")

	for _, a := range c.Args {
		code, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read")
		}

		b := hfmt.Appendf(nil, "%v:\n", a)
		b = henlo.Disasm(b, code, base)

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) != 1 {
		return errors.New("one input file expected")
	}

	regs, err := parseRegs(c.String("arg"))
	if err != nil {
		return errors.Wrap(err, "arg")
	}

	im, _, err := build(ctx, c, c.Args[0], compiler.Options{})
	if err != nil {
		return err
	}

	code, err := im.Link(ctx)
	if err != nil {
		return err
	}

	name := c.String("func")

	entry, ok := im.Addr(name)
	if !ok {
		return errors.Wrap(compiler.ErrUndefined, "func %v", name)
	}

	m, err := compiler.Run(ctx, code, im.Base, entry, compiler.RunOptions{
		Regs:      regs,
		StepLimit: c.Int("steps"),
	})
	if err != nil {
		return err
	}

	r0 := m.Regs[henlo.RetReg]

	b := hfmt.Appendf(nil, "%v() = %d (%#04x)  steps %d\n", name, int16(r0), r0, m.Steps)

	_, err = os.Stdout.Write(b)

	return err
}

// build reads and compiles a unit into an image at the base address.
func build(ctx context.Context, c *cli.Command, name string, opts compiler.Options) (*compiler.Image, *front.Unit, error) {
	base := c.Int("base")
	if base < 0 || base > 0xffff {
		return nil, nil, errors.New("base address out of range: %#x", base)
	}

	defs, err := parseDefs(c.String("define"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "define")
	}

	var r front.Reader

	u, err := r.ReadFile(ctx, name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read %v", name)
	}

	im := compiler.NewImage(uint16(base), u.Syms)

	for n, a := range defs {
		im.Define(n, a)
	}

	err = compiler.New(opts).CompileUnit(ctx, u, im)
	if err != nil {
		return nil, nil, errors.Wrap(err, "compile %v", name)
	}

	return im, u, nil
}

// createOutput removes the file on a failed exit.
func createOutput(name string) (*os.File, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, "create output")
	}

	atexit.Register(func() {
		if failed {
			_ = os.Remove(name)
		}
	})

	return f, nil
}

func parseDefs(s string) (map[string]uint16, error) {
	defs := map[string]uint16{}

	err := pairs(s, func(k, v string) error {
		a, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			return errors.Wrap(err, "symbol %v", k)
		}

		defs[k] = uint16(a)

		return nil
	})

	return defs, err
}

func parseRegs(s string) (map[henlo.Reg]uint16, error) {
	regs := map[henlo.Reg]uint16{}

	err := pairs(s, func(k, v string) error {
		r, ok := henlo.ParseReg(k)
		if !ok {
			return errors.New("unknown register: %q", k)
		}

		x, err := strconv.ParseInt(v, 0, 32)
		if err != nil || x < -0x8000 || x > 0xffff {
			return errors.New("register %v: bad value: %q", k, v)
		}

		regs[r] = uint16(x)

		return nil
	})

	return regs, err
}

func pairs(s string, f func(k, v string) error) error {
	if s == "" {
		return nil
	}

	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return errors.New("key=value expected: %q", kv)
		}

		err := f(strings.TrimSpace(k), strings.TrimSpace(v))
		if err != nil {
			return err
		}
	}

	return nil
}
