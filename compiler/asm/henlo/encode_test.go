package henlo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFields(t *testing.T) {
	assert.Equal(t, uint16(0x0000), EncodeR3(ADD, R0, R0, R0))
	assert.Equal(t, uint16(0x8b68), EncodeR3(XOR, ACC, ACC, ACC))
	assert.Equal(t, uint16(0x1aff), EncodeRI(ADDI, ACC, 255))
	assert.Equal(t, uint16(0x1bfe), EncodeRI(ADDI, ACC, -2))
	assert.Equal(t, uint16(0x3b00), EncodeRI(MULI, ACC, 256))
	assert.Equal(t, uint16(0xb360), EncodeR2F(BR, R1, ACC, true))
	assert.Equal(t, uint16(0x068b), EncodeR3F(ADD, CMP, R2, R1, FlagCapture|FlagSigned))

	// fields are masked, not checked
	assert.Equal(t, EncodeR3(MOV, R1, R2, R0), EncodeR3(MOV, R1|8, R2|16, 8))
	assert.Equal(t, EncodeRI(ADDI, R0, 0x3ff), EncodeRI(ADDI, R0, 0x1ff))
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, i := range []Inst{
		{Op: ADD, R1: R0, R2: R1, R3: R2},
		{Op: ADD, R1: CMP, R2: ACC, R3: CMP, Flags: FlagCapture | FlagSigned},
		{Op: ADDI, R1: SP, Imm: -2},
		{Op: ADDI, R1: ACC, Imm: 255},
		{Op: MULI, R1: ACC, Imm: 256},
		{Op: LD, R1: R2, R2: ACC, Flags: FlagByte},
		{Op: ST, R1: R1, R2: SP},
		{Op: BR, R1: CMP, R2: ACC, Flags: FlagNonZero},
		{Op: JMP, R1: ACC, Flags: FlagAbsolute},
		{Op: SOV, R1: CMP},
		{Op: MOV, R1: PC, R2: ACC},
	} {
		w := i.Encode()

		d, err := Decode(w)
		require.NoError(t, err, "%v", i)
		assert.Equal(t, i, d, "word %04x", w)
	}
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode(0xe000)
	assert.Error(t, err)

	_, err = DecodeAt([]byte{0x00}, 0)
	assert.Error(t, err)
}

func TestDisasm(t *testing.T) {
	var code []byte

	code = AppendWord(code, EncodeR3(XOR, ACC, ACC, ACC))
	code = AppendWord(code, EncodeRI(ADDI, ACC, 5))
	code = AppendWord(code, EncodeR2F(BR, R1, ACC, true))
	code = AppendWord(code, 0xf000)

	exp := "" +
		"0010:  8b68  xor  acc, acc, acc\n" +
		"0012:  1a05  addi acc, 5\n" +
		"0014:  b360  br   r1, acc, nz\n" +
		"0016:  f000  .word\n"

	assert.Equal(t, exp, string(Disasm(nil, code, 0x10)))
}

func TestRegMask(t *testing.T) {
	assert.Equal(t, []Reg{R0, R1, R2}, TmpRegs.Regs())
	assert.True(t, SaveRegs.Has(R2))
	assert.False(t, SaveRegs.Has(R0))
	assert.False(t, TmpRegs.Has(ACC))
	assert.False(t, TmpRegs.Has(42))
}
