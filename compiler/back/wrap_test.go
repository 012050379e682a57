package back

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/ir"
)

func TestWrapFrame(t *testing.T) {
	fr := Frame{InitFP: true, Locals: 4, Saved: 1<<henlo.R1 | 1<<henlo.R2}

	code := build(t, &fr,
		ins{op: ir.MOV.With(ir.Num), rd: r1, r1: 7},
		ins{op: ir.ST.With(ir.Loc), r1: r1, r2: -6},
		ins{op: ir.MOV.With(ir.Num), rd: r2, r1: 0},
		ins{op: ir.LD.With(ir.Loc), rd: r2, r1: -6},
		ins{op: ir.ADD, rd: r0, r1: r2, r2: r2},
		ins{op: ir.RET, r1: r0},
	)

	m := call(t, code, map[henlo.Reg]uint16{henlo.R1: 11, henlo.R2: 22, henlo.FP: 0x1234})

	assert.Equal(t, uint16(14), m.Regs[henlo.R0])
	assert.Equal(t, uint16(11), m.Regs[henlo.R1])
	assert.Equal(t, uint16(22), m.Regs[henlo.R2])
	assert.Equal(t, uint16(0x1234), m.Regs[henlo.FP])
	assert.Equal(t, uint16(stackTop), m.Regs[henlo.SP])

	// return address, saved fp, r1, r2, local
	fp := stackTop - 4
	assert.Equal(t, []byte{0x12, 0x34}, m.Mem[fp:fp+2])
	assert.Equal(t, []byte{0, 11}, m.Mem[fp-2:fp])
	assert.Equal(t, []byte{0, 22}, m.Mem[fp-4:fp-2])
	assert.Equal(t, []byte{0, 7}, m.Mem[fp-6:fp-4])
}

func TestWrapRebase(t *testing.T) {
	ctx := context.Background()
	f := New()

	require.NoError(t, f.Ins(ir.MOV.With(ir.Num), r0, 1, 0, 0))
	require.NoError(t, f.Label(0))
	require.NoError(t, f.Ins(ir.RET.With(ir.Num), 0, 5, 0, 0))

	body := f.Pos()
	require.Equal(t, 20, body)

	off, ok := f.Ledger().Label(1)
	require.True(t, ok)
	require.Equal(t, 6, off)

	_, ok = f.Ledger().Label(ExitLabel)
	require.False(t, ok)

	err := f.Wrap(ctx, Frame{InitFP: true, Locals: 3, Saved: 1 << henlo.R1})
	require.NoError(t, err)

	p := f.Prologue()
	assert.Equal(t, 12, p)
	assert.Equal(t, p+body+18, f.Pos())

	off, ok = f.Ledger().Label(1)
	assert.True(t, ok)
	assert.Equal(t, p+6, off)

	off, ok = f.Ledger().Label(ExitLabel)
	assert.True(t, ok)
	assert.Equal(t, p+body, off)

	assert.Equal(t, []Jump{{Off: p + 10, Label: ExitLabel, Op: ir.RET.With(ir.Num)}}, f.Ledger().Jumps())

	err = f.Wrap(ctx, Frame{})
	assert.True(t, errors.Is(err, ErrLedger), "err: %v", err)

	obj, err := f.Code(ctx)
	require.NoError(t, err)

	m := call(t, obj.Code, map[henlo.Reg]uint16{henlo.R1: 9})
	assert.Equal(t, uint16(5), m.Regs[henlo.R0])
	assert.Equal(t, uint16(9), m.Regs[henlo.R1])
	assert.Equal(t, uint16(stackTop), m.Regs[henlo.SP])
}

func TestWrapMinimal(t *testing.T) {
	code := build(t, &Frame{}, ins{op: ir.RET.With(ir.Num), r1: 42})

	// ret: load r0, jump to exit. exit: pop acc, mov pc, acc
	assert.Len(t, code, 4+henlo.WideLoadLen+2+4+2)

	m := call(t, code, nil)
	assert.Equal(t, uint16(42), m.Regs[henlo.R0])
	assert.Equal(t, uint16(stackTop), m.Regs[henlo.SP])
}

func TestWrapLargeFrame(t *testing.T) {
	fr := Frame{Locals: 0x400}

	code := build(t, &fr,
		ins{op: ir.MOV, rd: r0, r1: r1},
		ins{op: ir.ADD, rd: r0, r1: r0, r2: r0},
	)

	m := call(t, code, map[henlo.Reg]uint16{henlo.R1: 21})
	assert.Equal(t, uint16(42), m.Regs[henlo.R0])
	assert.Equal(t, uint16(stackTop), m.Regs[henlo.SP])
}

func TestWrapErrors(t *testing.T) {
	ctx := context.Background()

	for _, fr := range []Frame{
		{Saved: 1 << henlo.ACC},
		{Saved: 1 << henlo.R0},
		{Locals: -2},
		{Locals: 0x8000},
	} {
		f := New()
		require.NoError(t, f.Ins(ir.MOV, r0, r1, 0, 0))

		err := f.Wrap(ctx, fr)
		assert.Error(t, err, "frame %+v", fr)

		// nothing changed
		assert.Equal(t, 2, f.Pos(), "frame %+v", fr)
		assert.Equal(t, 0, f.Prologue(), "frame %+v", fr)
	}
}
