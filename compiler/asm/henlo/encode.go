package henlo

import (
	"encoding/binary"

	"tlog.app/go/errors"
)

// Instruction words are big-endian.
//
//	R3   oooo aaab bbcc c000
//	RI   oooo aaai iiii iiii
//	R2F  oooo aaab bbf0 0000
//	R3F  oooo aaab bbcc cfff
//
// Fields are masked to their width, nothing is range checked.

func EncodeR3(op Opcode, r1, r2, r3 Reg) uint16 {
	return head(op, r1) | uint16(r2&7)<<6 | uint16(r3&7)<<3
}

func EncodeRI(op Opcode, r1 Reg, imm int) uint16 {
	return head(op, r1) | uint16(imm)&0x1ff
}

func EncodeR2F(op Opcode, r1, r2 Reg, flag bool) uint16 {
	w := head(op, r1) | uint16(r2&7)<<6
	if flag {
		w |= 1 << 5
	}

	return w
}

func EncodeR3F(op Opcode, r1, r2, r3 Reg, flags uint8) uint16 {
	return EncodeR3(op, r1, r2, r3) | uint16(flags&7)
}

func head(op Opcode, r1 Reg) uint16 {
	return uint16(op&0xf)<<12 | uint16(r1&7)<<9
}

func AppendWord(b []byte, w uint16) []byte {
	return binary.BigEndian.AppendUint16(b, w)
}

// AppendWideLoad appends the fixed-width sequence leaving v in r:
// zero r, add the high byte, multiply by 256, add the low byte.
// It is always WideLoadLen bytes long so it can fill reserved placeholders.
func AppendWideLoad(b []byte, r Reg, v uint16) []byte {
	b = AppendWord(b, EncodeR3(XOR, r, r, r))
	b = AppendWord(b, EncodeRI(ADDI, r, int(v>>8)))
	b = AppendWord(b, EncodeRI(MULI, r, 256))
	b = AppendWord(b, EncodeRI(ADDI, r, int(v&0xff)))

	return b
}

func Decode(w uint16) (i Inst, err error) {
	i.Op = Opcode(w >> 12)
	i.R1 = Reg(w >> 9 & 7)

	if !i.Op.Valid() {
		return i, errors.New("invalid opcode %#x in word %04x", uint8(i.Op), w)
	}

	switch i.Op.Format() {
	case FormatRI:
		i.Imm = int(w & 0x1ff)

		if i.Op == ADDI && i.Imm&0x100 != 0 {
			i.Imm -= 0x200
		}
	case FormatR2F:
		i.R2 = Reg(w >> 6 & 7)
		i.Flags = uint8(w >> 5 & 1)
	case FormatR3:
		i.R2 = Reg(w >> 6 & 7)
		i.R3 = Reg(w >> 3 & 7)
	case FormatR3F:
		i.R2 = Reg(w >> 6 & 7)
		i.R3 = Reg(w >> 3 & 7)
		i.Flags = uint8(w & 7)
	}

	return i, nil
}

// DecodeAt decodes the word at byte offset off.
func DecodeAt(code []byte, off int) (Inst, error) {
	if off < 0 || off+WordSize > len(code) {
		return Inst{}, errors.New("decode at %#x: out of code (len %#x)", off, len(code))
	}

	return Decode(binary.BigEndian.Uint16(code[off:]))
}

func (i Inst) Encode() uint16 {
	switch i.Op.Format() {
	case FormatRI:
		return EncodeRI(i.Op, i.R1, i.Imm)
	case FormatR2F:
		return EncodeR2F(i.Op, i.R1, i.R2, i.Flags&1 != 0)
	case FormatR3F:
		return EncodeR3F(i.Op, i.R1, i.R2, i.R3, i.Flags)
	default:
		return EncodeR3(i.Op, i.R1, i.R2, i.R3)
	}
}
