package compiler

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/asm/henlo/emu"
)

type (
	RunOptions struct {
		// Regs are the initial register values, arguments included.
		Regs map[henlo.Reg]uint16

		// StepLimit is the maximum number of executed instructions. Negative means unlimited.
		StepLimit int
	}
)

const (
	stackTop = 0xff00
	haltAddr = 0xfffe
)

// Run calls entry of the linked code loaded at base
// and returns the machine state after it returns.
func Run(ctx context.Context, code []byte, base, entry uint16, opts RunOptions) (m *emu.Machine, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "run", "base", base, "entry", entry, "size", len(code))
	defer func() {
		var steps int
		if m != nil {
			steps = m.Steps
		}

		tr.Finish("steps", steps, "err", &err)
	}()

	if int(base)+len(code) > stackTop {
		return nil, errors.New("code at %#x..%#x overlaps the stack", base, int(base)+len(code))
	}

	m = emu.New(0x10000)

	err = m.Load(int(base), code)
	if err != nil {
		return nil, errors.Wrap(err, "load code")
	}

	m.Regs[henlo.SP] = stackTop

	for r, v := range opts.Regs {
		m.Regs[r] = v
	}

	err = m.Push(haltAddr)
	if err != nil {
		return nil, errors.Wrap(err, "push return address")
	}

	m.Regs[henlo.PC] = entry

	err = m.Run(haltAddr, opts.StepLimit)
	if err != nil {
		return m, errors.Wrap(err, "run")
	}

	return m, nil
}
