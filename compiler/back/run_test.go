package back

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/asm/henlo/emu"
	"github.com/slowlang/henlo/compiler/ir"
)

const (
	memSize  = 0x10000
	stackTop = 0xf000
	retAddr  = 0xfff0
)

const r0, r1, r2 = int64(henlo.R0), int64(henlo.R1), int64(henlo.R2)

type ins struct {
	op             ir.Op
	rd, r1, r2, r3 int64
}

// label marks a position in a test program.
func label(id int64) ins { return ins{rd: id} }

func build(t testing.TB, fr *Frame, prog ...ins) []byte {
	t.Helper()

	ctx := context.Background()
	f := New()

	for _, x := range prog {
		if x.op == 0 {
			require.NoError(t, f.Label(int(x.rd)))
			continue
		}

		require.NoError(t, f.Ins(x.op, x.rd, x.r1, x.r2, x.r3), "op %v", x.op)
	}

	if fr != nil {
		require.NoError(t, f.Wrap(ctx, *fr))
	}

	obj, err := f.Code(ctx)
	require.NoError(t, err)
	require.Empty(t, obj.Relocs)

	return obj.Code
}

// exec runs an unwrapped body until it falls off its end.
func exec(t testing.TB, code []byte, regs map[henlo.Reg]uint16) *emu.Machine {
	t.Helper()

	m := emu.New(memSize)
	require.NoError(t, m.Load(0, code))

	m.Regs[henlo.SP] = stackTop

	for r, v := range regs {
		m.Regs[r] = v
	}

	require.NoError(t, m.Run(uint16(len(code)), 10000))

	return m
}

// call runs a wrapped function the way a caller would.
func call(t testing.TB, code []byte, regs map[henlo.Reg]uint16) *emu.Machine {
	t.Helper()

	m := emu.New(memSize)
	require.NoError(t, m.Load(0, code))

	m.Regs[henlo.SP] = stackTop

	for r, v := range regs {
		m.Regs[r] = v
	}

	require.NoError(t, m.Push(retAddr))
	require.NoError(t, m.Run(retAddr, 10000))

	return m
}
